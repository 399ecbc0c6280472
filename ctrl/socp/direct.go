package socp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// direct solves a Program in its native form: the quadratic-over-linear
// terms enter the Newton system analytically and complex cones keep their
// two-dimensional structure.
type direct struct {
	cfg settings
}

func (direct) Kind() Kind { return DirectConic }

func (d direct) Solve(p *Program) (Result, error) {
	return solve(p, d.cfg, func(q *Program, x0 []float64, cfg settings) ([]float64, int, error) {
		return minimize(native{q}, x0, cfg)
	})
}

// native adapts a Program to the barrier core without any reformulation.
type native struct {
	p *Program
}

func (n native) dim() int { return n.p.N }

func (n native) theta() float64 {
	return float64(2*len(n.p.Cones) + len(n.p.Linear))
}

func (n native) cost(x []float64) float64 { return n.p.Cost(x) }

func (n native) value(x []float64, t float64) float64 {
	phi := 0.0

	for _, c := range n.p.Cones {
		w := dot(c.G, x) + c.H
		d := w*w - sqAbs(affine(c.A, c.B, x))

		if !(w > 0) || !(d > 0) {
			return math.Inf(1)
		}

		phi -= math.Log(d)
	}

	for _, l := range n.p.Linear {
		w := dot(l.G, x) + l.H
		if !(w > 0) {
			return math.Inf(1)
		}

		phi -= math.Log(w)
	}

	f := n.p.Cost(x)
	if math.IsInf(f, 1) {
		return f
	}

	return t*f + phi
}

func (n native) derivs(x []float64, t float64, g []float64, h *mat.SymDense) {
	p := n.p
	dim := p.N

	for i, v := range p.Objective {
		g[i] += t * v
	}

	e := make([]complex128, dim)
	row := make([]float64, dim)

	for _, term := range p.Terms {
		v := dot(term.L, x) + term.M
		u := affine(term.A, term.B, x)
		uu := sqAbs(u)
		cu := cmplx.Conj(u)

		for i := range dim {
			g[i] += t * term.C * (2*real(cu*term.A[i])/v - uu*term.L[i]/(v*v))
			e[i] = term.A[i] - u/complex(v, 0)*complex(term.L[i], 0)
		}

		s := t * 2 * term.C / v
		for i := range dim {
			for j := i; j < dim; j++ {
				h.SetSym(i, j, h.At(i, j)+s*real(e[i]*cmplx.Conj(e[j])))
			}
		}
	}

	for _, c := range p.Cones {
		w := dot(c.G, x) + c.H
		u := affine(c.A, c.B, x)
		d := w*w - sqAbs(u)
		cu := cmplx.Conj(u)

		// row = grad D
		for i := range dim {
			row[i] = 2*w*c.G[i] - 2*real(cu*c.A[i])
			g[i] -= row[i] / d
		}

		addOuter(h, 1/(d*d), row)

		for i := range dim {
			for j := i; j < dim; j++ {
				hess := 2*c.G[i]*c.G[j] - 2*real(c.A[i]*cmplx.Conj(c.A[j]))
				h.SetSym(i, j, h.At(i, j)-hess/d)
			}
		}
	}

	for _, l := range p.Linear {
		w := dot(l.G, x) + l.H

		for i := range dim {
			g[i] -= l.G[i] / w
		}

		addOuter(h, 1/(w*w), l.G)
	}
}
