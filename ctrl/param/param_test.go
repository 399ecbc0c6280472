package param

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/cwbudde/algo-ctrl/ctrl/frd"
	"github.com/cwbudde/algo-ctrl/internal/polyroot"
	"github.com/cwbudde/algo-ctrl/internal/testutil"
)

func piController() frd.TF {
	return frd.TF{Num: []float64{101, -96}, Den: []float64{1, -1}, Ts: 1}
}

func TestNew_IntegratorFactor(t *testing.T) {
	s, err := New(piController(), 3, nil, []float64{1, -1})
	if err != nil {
		t.Fatal(err)
	}

	testutil.RequireSliceNearlyEqual(t, s.FreeNum(), []float64{101, -96, 0, 0}, 1e-12)
	testutil.RequireSliceNearlyEqual(t, s.FreeDen(), []float64{0, 0}, 1e-12)

	if s.NumVars() != 6 {
		t.Fatalf("NumVars = %d, want 6", s.NumVars())
	}

	k := s.Controller()
	testutil.RequireSliceNearlyEqual(t, k.Num, []float64{101, -96, 0, 0}, 1e-12)
	testutil.RequireSliceNearlyEqual(t, k.Den, []float64{1, -1, 0, 0}, 1e-12)
}

func TestNew_StrictlyProperPadding(t *testing.T) {
	// 1/(z-1) padded to order 3 must keep the same transfer function.
	k0 := frd.TF{Num: []float64{1}, Den: []float64{1, -1}, Ts: 1}

	s, err := New(k0, 3, nil, []float64{1, -1})
	if err != nil {
		t.Fatal(err)
	}

	k := s.Controller()
	for _, w := range []float64{0.01, 0.3, 2} {
		z := cmplx.Exp(complex(0, w))
		if d := cmplx.Abs(k.Eval(z) - k0.Eval(z)); d > 1e-12 {
			t.Fatalf("w=%v: padded controller differs by %v", w, d)
		}
	}
}

func TestNew_OrderPreserved(t *testing.T) {
	for order := 1; order <= 6; order++ {
		s, err := New(piController(), order, nil, []float64{1, -1})
		if err != nil {
			t.Fatalf("order %d: %v", order, err)
		}

		k := s.Controller()
		if len(k.Num) != order+1 || len(k.Den) != order+1 {
			t.Fatalf("order %d: len(num)=%d len(den)=%d", order, len(k.Num), len(k.Den))
		}

		// free coefficients changed arbitrarily keep the order
		x := s.Vector()
		for i := range x {
			x[i] += 0.1 * float64(i+1)
		}

		s2, err := s.WithVector(x)
		if err != nil {
			t.Fatal(err)
		}

		if k2 := s2.Controller(); len(k2.Den) != order+1 || k2.Den[0] != 1 {
			t.Fatalf("order %d: updated den = %v", order, k2.Den)
		}
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		init   frd.TF
		order  int
		fx, fy []float64
		want   error
	}{
		{"integrator missing", frd.TF{Num: []float64{1, 0.5}, Den: []float64{1, -0.5}, Ts: 1}, 3, nil, []float64{1, -1}, ErrMalformedFixedFactor},
		{"numerator factor missing", piController(), 3, []float64{1, 1}, nil, ErrMalformedFixedFactor},
		{"factor too long", piController(), 1, nil, []float64{1, -2, 1}, ErrMalformedFixedFactor},
		{"zero leading factor", piController(), 3, nil, []float64{0, 1}, ErrMalformedFixedFactor},
		{"order too low", frd.TF{Num: []float64{1}, Den: []float64{1, 0, 0, -1}, Ts: 1}, 2, nil, nil, ErrOrderTooLow},
		{"improper", frd.TF{Num: []float64{1, 0, 0}, Den: []float64{1, -1}, Ts: 1}, 3, nil, nil, ErrImproperController},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.init, tc.order, tc.fx, tc.fy)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestReconstructRoundTrip(t *testing.T) {
	s, err := New(frd.TF{Num: []float64{1, 0.5}, Den: []float64{1, -1}, Ts: 1}, 4, []float64{1, 0.5}, []float64{1, -1})
	if err != nil {
		t.Fatal(err)
	}

	noise := testutil.DeterministicNoise(3, 1, 60)
	fx, fy := s.Fx(), s.Fy()

	for start := 0; start+s.NumVars() <= len(noise); start += s.NumVars() {
		x := noise[start : start+s.NumVars()]

		s2, err := s.WithVector(x)
		if err != nil {
			t.Fatal(err)
		}

		num, den := s2.Reconstruct(s2.FreeNum(), s2.FreeDen())

		gotNum, err := polyroot.DeconvExact(num, fx)
		if err != nil {
			t.Fatal(err)
		}

		testutil.RequireSliceNearlyEqual(t, gotNum, s2.FreeNum(), 1e-9)

		gotDen, err := polyroot.DeconvExact(den, fy)
		if err != nil {
			t.Fatal(err)
		}

		testutil.RequireSliceNearlyEqual(t, gotDen, append([]float64{1}, s2.FreeDen()...), 1e-9)

		// re-parametrizing the reconstructed controller is lossless
		s3, err := New(frd.TF{Num: num, Den: den, Ts: 1}, 4, fx, fy)
		if err != nil {
			t.Fatal(err)
		}

		testutil.RequireSliceNearlyEqual(t, s3.Vector(), x, 1e-9)
	}
}

func TestWithVector_Length(t *testing.T) {
	s, err := New(piController(), 3, nil, []float64{1, -1})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.WithVector([]float64{1, 2}); !errors.Is(err, ErrVectorLength) {
		t.Fatalf("err = %v, want ErrVectorLength", err)
	}
}

func TestBasisMatchesReconstruct(t *testing.T) {
	// the padded PI numerator 101z^3-96z^2 is divisible by z
	s, err := New(piController(), 3, []float64{1, 0}, []float64{1, -1})
	if err != nil {
		t.Fatal(err)
	}

	x := []float64{0.3, -1.2, 4, 0.25, -0.5}

	s2, err := s.WithVector(x)
	if err != nil {
		t.Fatal(err)
	}

	k := s2.Controller()
	for _, w := range []float64{0.01, 1, math.Pi} {
		z := cmplx.Exp(complex(0, w))
		bn, bd, d0 := s2.Basis(z)

		xn, yd := complex(0, 0), d0
		for i, v := range x {
			xn += bn[i] * complex(v, 0)
			yd += bd[i] * complex(v, 0)
		}

		if cmplx.Abs(xn-polyroot.EvalReal(k.Num, z)) > 1e-12 {
			t.Fatalf("w=%v: numerator basis mismatch", w)
		}

		if cmplx.Abs(yd-polyroot.EvalReal(k.Den, z)) > 1e-12 {
			t.Fatalf("w=%v: denominator basis mismatch", w)
		}
	}
}
