package weight

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-ctrl/ctrl/frd"
)

func testGrid(t *testing.T, n int) frd.Grid {
	t.Helper()

	g, err := frd.Linspace(0.1, 3, n, 1)
	if err != nil {
		t.Fatal(err)
	}

	return g
}

func unitWeight(t *testing.T, g frd.Grid) *frd.Model {
	t.Helper()

	m, err := frd.FromTF(frd.TF{Num: []float64{1}, Den: []float64{1}, Ts: g.Ts()}, g)
	if err != nil {
		t.Fatal(err)
	}

	return m
}

func TestValidate(t *testing.T) {
	g := testGrid(t, 10)
	other := testGrid(t, 11)
	w := unitWeight(t, g)
	wOther := unitWeight(t, other)

	tests := []struct {
		name    string
		entries []Entry
		want    error
	}{
		{"objective only", []Entry{{Name: "s", Channel: Sensitivity, Norm: H2, Weight: w}}, nil},
		{"objective and constraint", []Entry{
			{Name: "s", Channel: Sensitivity, Norm: H2, Weight: w},
			{Name: "t", Channel: Complementary, Norm: HInf, Weight: w, Bound: 1},
		}, nil},
		{"no objective", []Entry{{Name: "t", Channel: Complementary, Norm: HInf, Weight: w, Bound: 1}}, ErrNoObjective},
		{"empty", nil, ErrNoObjective},
		{"duplicate", []Entry{
			{Name: "s", Norm: H2, Weight: w},
			{Name: "s", Norm: HInf, Weight: w},
		}, ErrDuplicateName},
		{"h2 constraint", []Entry{
			{Name: "s", Norm: H2, Weight: w},
			{Name: "u", Channel: ControlSensitivity, Norm: H2, Weight: w, Bound: 2},
		}, ErrH2Constraint},
		{"negative bound", []Entry{{Name: "s", Norm: HInf, Weight: w, Bound: -1}}, ErrInvalidBound},
		{"NaN bound", []Entry{{Name: "s", Norm: HInf, Weight: w, Bound: math.NaN()}}, ErrInvalidBound},
		{"infinite bound", []Entry{{Name: "s", Norm: HInf, Weight: w, Bound: math.Inf(1)}}, ErrInvalidBound},
		{"missing weight", []Entry{{Name: "s", Norm: H2}}, ErrMissingWeight},
		{"grid mismatch", []Entry{{Name: "s", Norm: H2, Weight: wOther}}, frd.ErrGridMismatch},
		{"bad channel", []Entry{{Name: "s", Channel: Channel(9), Norm: H2, Weight: w}}, ErrUnknownChannel},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := NewSet(tc.entries...).Validate(g)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestObjectivesAndConstraints(t *testing.T) {
	g := testGrid(t, 5)
	w := unitWeight(t, g)

	s := NewSet(
		Entry{Name: "perf", Channel: Sensitivity, Norm: H2, Weight: w},
		Entry{Name: "rob", Channel: Complementary, Norm: HInf, Weight: w, Bound: 1},
		Entry{Name: "peak", Channel: Sensitivity, Norm: HInf, Weight: w},
	)

	if got := len(s.Objectives()); got != 2 {
		t.Fatalf("objectives = %d, want 2", got)
	}

	c := s.Constraints()
	if len(c) != 1 || c[0].Name != "rob" {
		t.Fatalf("constraints = %+v", c)
	}
}

func TestParse(t *testing.T) {
	for i, name := range []string{"S", "t", "U", "v"} {
		c, err := ParseChannel(name)
		if err != nil || int(c) != i {
			t.Fatalf("ParseChannel(%q) = %v, %v", name, c, err)
		}
	}

	if _, err := ParseChannel("X"); !errors.Is(err, ErrUnknownChannel) {
		t.Fatalf("err = %v", err)
	}

	if n, err := ParseNorm("HINF"); err != nil || n != HInf {
		t.Fatalf("ParseNorm = %v, %v", n, err)
	}

	if _, err := ParseNorm("H1"); !errors.Is(err, ErrUnknownNorm) {
		t.Fatalf("err = %v", err)
	}

	if Complementary.String() != "T" || HInf.String() != "Hinf" || Channel(7).String() != "Channel(7)" {
		t.Fatal("unexpected String output")
	}
}
