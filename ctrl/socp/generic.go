package socp

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// generic is the modeling-layer backend. It translates a Program into the
// standard conic form
//
//	minimize c.z  subject to  ||F_i z + f_i|| <= g_i.z + h_i
//
// by lifting every quadratic-over-linear term into a rotated cone with an
// epigraph variable, and hands the result to the interior-point core.
type generic struct {
	cfg settings
}

func (generic) Kind() Kind { return GenericConic }

func (b generic) Solve(p *Program) (Result, error) {
	return solve(p, b.cfg, func(q *Program, x0 []float64, cfg settings) ([]float64, int, error) {
		std := lift(q)

		z, n, err := minimize(std, std.start(x0), cfg.liftStop(q.N))
		if err != nil {
			var st *stallError
			if errors.As(err, &st) {
				st.x = st.x[:q.N]
			}

			return nil, n, err
		}

		return z[:q.N], n, nil
	})
}

// liftStop restricts an early-stop predicate to the original variables.
func (cfg settings) liftStop(n int) settings {
	if cfg.stop == nil {
		return cfg
	}

	stop := cfg.stop
	cfg.stop = func(z []float64) bool { return stop(z[:n]) }

	return cfg
}

// sparseRow is the affine function sum_k val[k]*z[idx[k]] + off.
type sparseRow struct {
	idx []int
	val []float64
	off float64
}

func (r sparseRow) eval(z []float64) float64 {
	s := r.off
	for k, i := range r.idx {
		s += r.val[k] * z[i]
	}

	return s
}

// realCone is ||rows(z)|| <= rhs(z). Without rows it is rhs(z) >= 0.
type realCone struct {
	rows []sparseRow
	rhs  sparseRow
}

type standard struct {
	n     int // original variables
	nz    int // lifted variables
	c     []float64
	cones []realCone
	terms []Term
}

// denseRow converts a dense coefficient row into sparse form, optionally
// appending an extra variable.
func denseRow(a []float64, off float64, extra int, extraVal float64) sparseRow {
	r := sparseRow{off: off}

	for i, v := range a {
		if v != 0 {
			r.idx = append(r.idx, i)
			r.val = append(r.val, v)
		}
	}

	if extra >= 0 {
		r.idx = append(r.idx, extra)
		r.val = append(r.val, extraVal)
	}

	return r
}

func parts(a []complex128, b complex128, scale float64) (re, im sparseRow) {
	ra := make([]float64, len(a))
	ia := make([]float64, len(a))

	for i, v := range a {
		ra[i] = scale * real(v)
		ia[i] = scale * imag(v)
	}

	return denseRow(ra, scale*real(b), -1, 0), denseRow(ia, scale*imag(b), -1, 0)
}

func lift(p *Program) *standard {
	s := &standard{n: p.N, nz: p.N + len(p.Terms), terms: p.Terms}
	s.c = make([]float64, s.nz)
	copy(s.c, p.Objective)

	for _, c := range p.Cones {
		re, im := parts(c.A, c.B, 1)
		s.cones = append(s.cones, realCone{rows: []sparseRow{re, im}, rhs: denseRow(c.G, c.H, -1, 0)})
	}

	for _, l := range p.Linear {
		s.cones = append(s.cones, realCone{rhs: denseRow(l.G, l.H, -1, 0)})
	}

	// |u|^2 <= gamma*v  <=>  ||(2u, gamma - v)|| <= gamma + v
	for k, t := range p.Terms {
		gamma := p.N + k
		s.c[gamma] = t.C

		re, im := parts(t.A, t.B, 2)
		neg := make([]float64, len(t.L))

		for i, v := range t.L {
			neg[i] = -v
		}

		s.cones = append(s.cones, realCone{
			rows: []sparseRow{re, im, denseRow(neg, -t.M, gamma, 1)},
			rhs:  denseRow(t.L, t.M, gamma, 1),
		})
	}

	return s
}

// start extends x with epigraph values strictly above each term.
func (s *standard) start(x []float64) []float64 {
	z := make([]float64, s.nz)
	copy(z, x)

	for k, t := range s.terms {
		v := dot(t.L, x) + t.M
		z[s.n+k] = sqAbs(affine(t.A, t.B, x))/v + 1
	}

	return z
}

func (s *standard) dim() int { return s.nz }

func (s *standard) theta() float64 {
	th := 0.0

	for _, c := range s.cones {
		if len(c.rows) == 0 {
			th++
		} else {
			th += 2
		}
	}

	return th
}

func (s *standard) cost(z []float64) float64 { return dot(s.c, z) }

func (s *standard) value(z []float64, t float64) float64 {
	phi := 0.0

	for _, c := range s.cones {
		w := c.rhs.eval(z)
		if !(w > 0) {
			return math.Inf(1)
		}

		if len(c.rows) == 0 {
			phi -= math.Log(w)
			continue
		}

		d := w * w
		for _, r := range c.rows {
			v := r.eval(z)
			d -= v * v
		}

		if !(d > 0) {
			return math.Inf(1)
		}

		phi -= math.Log(d)
	}

	return t*s.cost(z) + phi
}

func (s *standard) derivs(z []float64, t float64, g []float64, h *mat.SymDense) {
	for i, v := range s.c {
		g[i] += t * v
	}

	grad := make([]float64, s.nz)
	touched := make([]int, 0, s.n+1)
	mark := make([]bool, s.nz)

	for _, c := range s.cones {
		w := c.rhs.eval(z)

		if len(c.rows) == 0 {
			for k, i := range c.rhs.idx {
				g[i] -= c.rhs.val[k] / w
			}

			addSparseOuter(h, 1/(w*w), c.rhs)

			continue
		}

		d := w * w
		vals := make([]float64, len(c.rows))

		for k, r := range c.rows {
			vals[k] = r.eval(z)
			d -= vals[k] * vals[k]
		}

		// grad D = 2w*g - 2*sum_k r_k*F_k
		touched = touched[:0]
		accumulate(grad, mark, &touched, c.rhs, 2*w)

		for k, r := range c.rows {
			accumulate(grad, mark, &touched, r, -2*vals[k])
		}

		for _, i := range touched {
			g[i] -= grad[i] / d
		}

		for a, i := range touched {
			for _, j := range touched[a:] {
				lo, hi := i, j
				if lo > hi {
					lo, hi = hi, lo
				}

				h.SetSym(lo, hi, h.At(lo, hi)+grad[i]*grad[j]/(d*d))
			}
		}

		// -hess D / D with hess D = 2*g*g^T - 2*sum_k F_k*F_k^T
		addSparseOuter(h, -2/d, c.rhs)

		for _, r := range c.rows {
			addSparseOuter(h, 2/d, r)
		}

		for _, i := range touched {
			grad[i] = 0
			mark[i] = false
		}
	}
}

func accumulate(grad []float64, mark []bool, touched *[]int, r sparseRow, s float64) {
	for k, i := range r.idx {
		if !mark[i] {
			mark[i] = true
			*touched = append(*touched, i)
		}

		grad[i] += s * r.val[k]
	}
}

// addSparseOuter adds s*r*r^T to h.
func addSparseOuter(h *mat.SymDense, s float64, r sparseRow) {
	for ka, i := range r.idx {
		for kb, j := range r.idx {
			if j < i {
				continue
			}

			h.SetSym(i, j, h.At(i, j)+s*r.val[ka]*r.val[kb])
		}
	}
}
