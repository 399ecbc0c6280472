package socp

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Term is a quadratic-over-linear objective term C*|A.x + B|^2 / (L.x + M).
// The term is only defined where L.x + M > 0.
type Term struct {
	C float64
	A []complex128
	B complex128
	L []float64
	M float64
}

// Cone is the complex second-order cone constraint |A.x + B| <= G.x + H.
type Cone struct {
	A []complex128
	B complex128
	G []float64
	H float64
}

// Linear is the constraint G.x + H >= 0.
type Linear struct {
	G []float64
	H float64
}

// Program is a convex program over N real variables:
//
//	minimize    Objective.x + sum_k Terms[k]
//	subject to  Cones, Linear
//
// Start is the point the solver starts from. It does not need to be feasible.
type Program struct {
	N         int
	Objective []float64
	Terms     []Term
	Cones     []Cone
	Linear    []Linear
	Start     []float64
}

// Validate checks that all rows have N entries.
func (p *Program) Validate() error {
	if p.N <= 0 {
		return fmt.Errorf("%w: no variables", ErrInvalidProgram)
	}

	if p.Objective != nil && len(p.Objective) != p.N {
		return fmt.Errorf("%w: objective has %d entries", ErrInvalidProgram, len(p.Objective))
	}

	if len(p.Start) != p.N {
		return fmt.Errorf("%w: start point has %d entries", ErrInvalidProgram, len(p.Start))
	}

	for i, t := range p.Terms {
		if len(t.A) != p.N || len(t.L) != p.N || t.C < 0 {
			return fmt.Errorf("%w: term %d", ErrInvalidProgram, i)
		}
	}

	for i, c := range p.Cones {
		if len(c.A) != p.N || len(c.G) != p.N {
			return fmt.Errorf("%w: cone %d", ErrInvalidProgram, i)
		}
	}

	for i, l := range p.Linear {
		if len(l.G) != p.N {
			return fmt.Errorf("%w: linear constraint %d", ErrInvalidProgram, i)
		}
	}

	return nil
}

// Cost evaluates the objective at x. It returns +Inf outside the domain of
// the quadratic-over-linear terms.
func (p *Program) Cost(x []float64) float64 {
	f := dot(p.Objective, x)

	for _, t := range p.Terms {
		v := dot(t.L, x) + t.M
		if !(v > 0) {
			return math.Inf(1)
		}

		u := affine(t.A, t.B, x)
		f += t.C * sqAbs(u) / v
	}

	return f
}

// Violation returns the largest constraint violation at x, counting the
// domain of the objective terms. Negative values mean strict feasibility
// with that margin.
func (p *Program) Violation(x []float64) float64 {
	worst := math.Inf(-1)

	for _, c := range p.Cones {
		worst = math.Max(worst, cmplx.Abs(affine(c.A, c.B, x))-(dot(c.G, x)+c.H))
	}

	for _, l := range p.Linear {
		worst = math.Max(worst, -(dot(l.G, x) + l.H))
	}

	for _, t := range p.Terms {
		worst = math.Max(worst, -(dot(t.L, x) + t.M))
	}

	return worst
}

// phaseOne builds the feasibility program
//
//	minimize s  subject to every constraint relaxed by s, s >= -1
//
// over (x, s) together with a strictly feasible start.
func phaseOne(p *Program) *Program {
	n := p.N + 1
	ext := func(g []float64) []float64 {
		out := make([]float64, n)
		copy(out, g)
		out[p.N] = 1

		return out
	}
	extC := func(a []complex128) []complex128 {
		out := make([]complex128, n)
		copy(out, a)

		return out
	}

	q := &Program{N: n, Objective: make([]float64, n)}
	q.Objective[p.N] = 1

	for _, c := range p.Cones {
		q.Cones = append(q.Cones, Cone{A: extC(c.A), B: c.B, G: ext(c.G), H: c.H})
	}

	for _, l := range p.Linear {
		q.Linear = append(q.Linear, Linear{G: ext(l.G), H: l.H})
	}

	for _, t := range p.Terms {
		q.Linear = append(q.Linear, Linear{G: ext(t.L), H: t.M})
	}

	lower := make([]float64, n)
	lower[p.N] = 1
	q.Linear = append(q.Linear, Linear{G: lower, H: 1})

	s0 := math.Max(p.Violation(p.Start)+1, -0.5)
	q.Start = append(append([]float64(nil), p.Start...), s0)

	return q
}

func dot(a, x []float64) float64 {
	s := 0.0
	for i, v := range a {
		s += v * x[i]
	}

	return s
}

func affine(a []complex128, b complex128, x []float64) complex128 {
	u := b
	for i, v := range a {
		u += v * complex(x[i], 0)
	}

	return u
}

func sqAbs(u complex128) float64 {
	return real(u)*real(u) + imag(u)*imag(u)
}
