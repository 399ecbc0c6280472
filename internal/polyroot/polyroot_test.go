package polyroot

import (
	"errors"
	"math"
	"math/cmplx"
	"sort"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-ctrl/internal/testutil"
)

func almostEqual(valA, valB, tol float64) bool {
	if valA == valB {
		return true
	}

	diff := math.Abs(valA - valB)
	if tol > 0 && tol < 1 {
		mag := math.Max(math.Abs(valA), math.Abs(valB))
		if mag > 1 {
			return diff/mag < tol
		}
	}

	return diff < tol
}

func TestConv(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want []float64
	}{
		{"integrator times monic", []float64{1, -1}, []float64{1, 0.5}, []float64{1, -0.5, -0.5}},
		{"scalar", []float64{2}, []float64{1, 2, 3}, []float64{2, 4, 6}},
		{"square", []float64{1, 1}, []float64{1, 1}, []float64{1, 2, 1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			testutil.RequireSliceNearlyEqual(t, Conv(tc.a, tc.b), tc.want, 1e-15)
		})
	}

	if Conv(nil, []float64{1}) != nil {
		t.Fatal("Conv with empty operand should return nil")
	}
}

func TestDeconvRoundTrip(t *testing.T) {
	noise := testutil.DeterministicNoise(7, 2, 40)
	factors := [][]float64{{1}, {1, -1}, {1, -2, 1}, {0.5, 0.1, -0.3}}

	for _, f := range factors {
		for start := 0; start+5 <= len(noise); start += 5 {
			q := noise[start : start+5]

			got, err := DeconvExact(Conv(q, f), f)
			if err != nil {
				t.Fatalf("factor %v: %v", f, err)
			}

			testutil.RequireSliceNearlyEqual(t, got, q, 1e-9)
		}
	}
}

func TestDeconvExact_NonDivisor(t *testing.T) {
	// z^2 + 1 is not divisible by z - 1.
	_, err := DeconvExact([]float64{1, 0, 1}, []float64{1, -1})
	if !errors.Is(err, ErrNonZeroRemainder) {
		t.Fatalf("err = %v, want ErrNonZeroRemainder", err)
	}
}

func TestDeconv_ZeroLeadingDivisor(t *testing.T) {
	_, _, err := Deconv([]float64{1, 2}, []float64{0, 1})
	if !errors.Is(err, ErrDegeneratePolynomial) {
		t.Fatalf("err = %v, want ErrDegeneratePolynomial", err)
	}
}

func TestAdd(t *testing.T) {
	got := Add([]float64{1}, []float64{1, 2, 3})
	testutil.RequireSliceNearlyEqual(t, got, []float64{1, 2, 4}, 0)
}

func TestTrimLeading(t *testing.T) {
	got := TrimLeading([]float64{0, 1e-14, 2, 0}, 1e-12)
	testutil.RequireSliceNearlyEqual(t, got, []float64{2, 0}, 0)

	got = TrimLeading([]float64{0, 0}, 0)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
}

func TestRoots(t *testing.T) {
	// (z - 0.5)(z + 0.25)(z^2 - 1.6z + 0.89): roots 0.5, -0.25, 0.8±0.5j
	c := Conv(Conv([]float64{1, -0.5}, []float64{1, 0.25}), []float64{1, -1.6, 0.89})

	roots, err := Roots(c)
	if err != nil {
		t.Fatal(err)
	}

	if len(roots) != 4 {
		t.Fatalf("expected 4 roots, got %d", len(roots))
	}

	for i, r := range roots {
		if v := EvalReal(c, r); cmplx.Abs(v) > 1e-10 {
			t.Errorf("root %d: p(%v) = %v, expected ~0", i, r, v)
		}
	}

	mods := make([]float64, len(roots))
	for i, r := range roots {
		mods[i] = cmplx.Abs(r)
	}

	sort.Float64s(mods)

	want := []float64{0.25, 0.5, math.Sqrt(0.89), math.Sqrt(0.89)}
	testutil.RequireSliceNearlyEqual(t, mods, want, 1e-10)

	if !almostEqual(MaxModulus(roots), math.Sqrt(0.89), 1e-10) {
		t.Errorf("MaxModulus = %v", MaxModulus(roots))
	}
}

func TestRoots_FallbackWithoutEigen(t *testing.T) {
	saved := eigenvalues
	eigenvalues = func(*mat.Dense) ([]complex128, bool) { return nil, false }

	t.Cleanup(func() { eigenvalues = saved })

	// closed-loop pattern z^2 (z-0.9)^2 plus an unstable real root
	c := Conv(Conv([]float64{1, 0, 0}, Conv([]float64{1, -0.9}, []float64{1, -0.9})), []float64{1, -1.002})

	roots, err := Roots(c)
	if err != nil {
		t.Fatal(err)
	}

	if len(roots) != 5 {
		t.Fatalf("expected 5 roots, got %d", len(roots))
	}

	for i, r := range roots {
		if v := EvalReal(c, r); cmplx.Abs(v) > 1e-6 {
			t.Errorf("root %d: p(%v) = %v, expected ~0", i, r, v)
		}
	}

	if !almostEqual(MaxModulus(roots), 1.002, 1e-6) {
		t.Errorf("MaxModulus = %v, want 1.002", MaxModulus(roots))
	}
}

func TestRoots_LeadingZerosIgnored(t *testing.T) {
	roots, err := Roots([]float64{0, 0, 1, -1.002})
	if err != nil {
		t.Fatal(err)
	}

	if len(roots) != 1 || !almostEqual(real(roots[0]), 1.002, 1e-12) {
		t.Fatalf("roots = %v, want [1.002]", roots)
	}
}

func TestRoots_Constant(t *testing.T) {
	roots, err := Roots([]float64{3})
	if err != nil || len(roots) != 0 {
		t.Fatalf("roots = %v, err = %v", roots, err)
	}

	if _, err := Roots([]float64{0}); !errors.Is(err, ErrDegeneratePolynomial) {
		t.Fatalf("err = %v, want ErrDegeneratePolynomial", err)
	}
}

func TestEvalReal(t *testing.T) {
	// 1/(z-1) denominator on the unit circle at w = pi: z = -1 -> -2
	v := EvalReal([]float64{1, -1}, cmplx.Exp(complex(0, math.Pi)))
	if !almostEqual(real(v), -2, 1e-12) || !almostEqual(imag(v), 0, 1e-12) {
		t.Errorf("EvalReal = %v, want -2", v)
	}

	if EvalReal(nil, 1) != 0 {
		t.Error("empty polynomial should evaluate to 0")
	}
}

func TestDurandKerner_Quadratic(t *testing.T) {
	// z^2 - 3z + 2 = (z-1)(z-2), roots at 1 and 2
	coeff := []complex128{1, -3, 2}

	roots, err := DurandKerner(coeff)
	if err != nil {
		t.Fatal(err)
	}

	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}

	r := [2]float64{real(roots[0]), real(roots[1])}
	if r[0] > r[1] {
		r[0], r[1] = r[1], r[0]
	}

	if !almostEqual(r[0], 1.0, 1e-10) || !almostEqual(r[1], 2.0, 1e-10) {
		t.Errorf("expected roots {1,2}, got {%v, %v}", r[0], r[1])
	}
}

func TestDurandKerner_ClusteredRoots(t *testing.T) {
	// (z - 0.9)^2 * (z - 0.8)^2 - two double roots, a typical closed-loop
	// pole pattern after pole placement
	coeff := make([]complex128, 5)
	for i, v := range Conv(Conv([]float64{1, -0.9}, []float64{1, -0.9}), Conv([]float64{1, -0.8}, []float64{1, -0.8})) {
		coeff[i] = complex(v, 0)
	}

	roots, err := DurandKerner(coeff)
	if err != nil {
		t.Fatal(err)
	}

	for i, r := range roots {
		val := PolyEval(coeff, r)
		if cmplx.Abs(val) > 1e-6 {
			t.Errorf("clustered root %d: p(%v) = %v, expected ~0", i, r, val)
		}
	}
}

func TestDurandKerner_Degenerate(t *testing.T) {
	if _, err := DurandKerner([]complex128{0, 1}); !errors.Is(err, ErrDegeneratePolynomial) {
		t.Fatalf("err = %v, want ErrDegeneratePolynomial", err)
	}
}

func TestPolyEval(t *testing.T) {
	// p(z) = 2z^3 - 3z + 5, p(2) = 16 - 6 + 5 = 15
	coeff := []complex128{2, 0, -3, 5}

	val := PolyEval(coeff, 2)
	if !almostEqual(real(val), 15, 1e-12) || !almostEqual(imag(val), 0, 1e-12) {
		t.Errorf("PolyEval: expected 15, got %v", val)
	}
}
