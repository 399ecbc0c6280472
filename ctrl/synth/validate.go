package synth

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"github.com/cwbudde/algo-ctrl/internal/polyroot"
)

// Poles returns the closed-loop poles for the coefficients x, the roots of
// Dp·Y + Np·X. It returns nil for a non-parametric plant.
func (b *Builder) Poles(x []float64) ([]complex128, error) {
	if b.plantTF == nil {
		return nil, nil
	}

	spec, err := b.spec.WithVector(x)
	if err != nil {
		return nil, err
	}

	k := spec.Controller()
	char := polyroot.Add(polyroot.Conv(b.plantTF.Den, k.Den), polyroot.Conv(b.plantTF.Num, k.Num))

	roots, err := polyroot.Roots(char)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnstabilizingController, err)
	}

	sort.Slice(roots, func(i, j int) bool { return cmplx.Abs(roots[i]) > cmplx.Abs(roots[j]) })

	return roots, nil
}

// stable checks that x stabilizes the plant. Parametric plants are checked
// through their closed-loop poles. For measured plants the phase winding of
// ψ over the grid must match the one of the reference coefficients, which
// are known to stabilize.
func (b *Builder) stable(x, ref []float64) ([]complex128, error) {
	if b.plantTF != nil {
		poles, err := b.Poles(x)
		if err != nil {
			return nil, err
		}

		if m := polyroot.MaxModulus(poles); !(m < 1) {
			return poles, fmt.Errorf("%w: pole modulus %.6g", ErrUnstabilizingController, m)
		}

		return poles, nil
	}

	w, w0 := b.winding(x), b.winding(ref)
	if math.IsNaN(w) || math.Abs(w-w0) > math.Pi/2 {
		return nil, fmt.Errorf("%w: phase winding %.3g rad, stabilizing reference %.3g rad", ErrUnstabilizingController, w, w0)
	}

	return nil, nil
}

// winding returns the accumulated phase of ψ across the grid.
func (b *Builder) winding(x []float64) float64 {
	total := 0.0

	var prev complex128

	for k := range b.plant {
		a, off := b.psi(k)
		cur := eval(a, off, x)

		if cur == 0 {
			return math.NaN()
		}

		if k > 0 {
			total += cmplx.Phase(cur / prev)
		}

		prev = cur
	}

	return total
}

// checkConstraints evaluates every H∞ bound on the true closed-loop response.
// A constraint without a metric counts as violated.
func (b *Builder) checkConstraints(metrics map[string]Metric, slack float64) error {
	for _, e := range b.entries {
		if !e.IsConstraint() {
			continue
		}

		m, ok := metrics[e.Name]
		if !ok {
			m.Value = math.NaN()
		}

		m.Bound = e.Bound

		if m.Violated(slack) {
			return fmt.Errorf("%w: %q reaches %.6g, bound %.6g", ErrConstraintViolated, e.Name, m.Value, m.Bound)
		}
	}

	return nil
}
