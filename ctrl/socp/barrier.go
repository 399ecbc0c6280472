package socp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// smooth is a self-concordant barrier problem t*f0(x) + phi(x) as seen by the
// Newton core.
type smooth interface {
	dim() int
	// theta is the barrier parameter; theta/t bounds the duality gap.
	theta() float64
	// cost is f0 without the barrier; +Inf outside the domain.
	cost(x []float64) float64
	// value is t*f0 + phi; +Inf outside the strict interior.
	value(x []float64, t float64) float64
	// derivs accumulates the gradient and Hessian of t*f0 + phi into g, h,
	// which are zeroed by the caller.
	derivs(x []float64, t float64, g []float64, h *mat.SymDense)
}

type settings struct {
	gapTol float64
	// stallGapTol is the relative gap accepted when centering stalls at the
	// rounding floor of t*f0 + phi.
	stallGapTol float64
	// newtonTol is relative to |t*f0 + phi|.
	newtonTol float64
	mu        float64
	maxNewton int
	maxOuter  int
	// stop ends the method early when it returns true after a Newton step.
	stop func(x []float64) bool
}

func defaultSettings() settings {
	return settings{
		gapTol:      1e-9,
		stallGapTol: 1e-6,
		newtonTol:   1e-10,
		mu:          20,
		maxNewton:   200,
		maxOuter:    60,
	}
}

const (
	lsAlpha = 0.01
	lsBeta  = 0.5
	minStep = 1e-14
)

// stallError reports a barrier method that stopped short of the gap
// tolerance. x is the last iterate and gap the bound theta/t on its distance
// to the optimum.
type stallError struct {
	x   []float64
	gap float64
	msg string
}

func (e *stallError) Error() string {
	return fmt.Sprintf("%v: %s (gap %.3g)", ErrNumerical, e.msg, e.gap)
}

func (e *stallError) Unwrap() error { return ErrNumerical }

// minimize runs the log-barrier method from the strictly feasible point x0.
// It returns the final point and the number of Newton steps taken.
func minimize(p smooth, x0 []float64, cfg settings) ([]float64, int, error) {
	x := append([]float64(nil), x0...)

	if math.IsInf(p.value(x, 1), 1) {
		return nil, 0, fmt.Errorf("%w: start point outside the barrier domain", ErrNumerical)
	}

	t := 1.0
	if p.theta() > 0 {
		f0 := math.Abs(p.cost(x))
		t = math.Min(math.Max(p.theta()/math.Max(f0, 1e-8), 1e-3), 1e6)
	}

	steps := 0

	for range cfg.maxOuter {
		n, stopped, err := center(p, x, t, cfg)
		steps += n

		if errors.Is(err, errNoCenter) {
			gap := p.theta() / t
			if gap < cfg.stallGapTol*math.Max(1, math.Abs(p.cost(x))) {
				return x, steps, nil
			}

			return nil, steps, &stallError{x: x, gap: gap, msg: "Newton centering did not converge"}
		}

		if err != nil {
			return nil, steps, err
		}

		if stopped {
			return x, steps, nil
		}

		if p.theta()/t < cfg.gapTol*math.Max(1, math.Abs(p.cost(x))) {
			return x, steps, nil
		}

		t *= cfg.mu
	}

	return nil, steps, &stallError{x: x, gap: p.theta() * cfg.mu / t, msg: "barrier method did not reach the gap tolerance"}
}

var errNoCenter = errors.New("socp: Newton centering did not converge")

// center performs damped Newton steps on t*f0 + phi in place.
func center(p smooth, x []float64, t float64, cfg settings) (int, bool, error) {
	n := p.dim()
	g := make([]float64, n)
	h := mat.NewSymDense(n, nil)
	dx := make([]float64, n)
	trial := make([]float64, n)

	for it := range cfg.maxNewton {
		for i := range g {
			g[i] = 0
		}

		h.Zero()
		p.derivs(x, t, g, h)

		if err := newtonStep(h, g, dx); err != nil {
			return it, false, err
		}

		v := p.value(x, t)

		slope := dot(g, dx)
		if -slope/2 <= cfg.newtonTol*math.Max(1, math.Abs(v)) {
			return it, false, nil
		}

		step := 1.0

		for {
			for i := range x {
				trial[i] = x[i] + step*dx[i]
			}

			if fv := p.value(trial, t); fv <= v+lsAlpha*step*slope {
				break
			}

			step *= lsBeta
			if step < minStep {
				// no progress possible at this precision
				return it, false, nil
			}
		}

		copy(x, trial)

		if cfg.stop != nil && cfg.stop(x) {
			return it + 1, true, nil
		}
	}

	return cfg.maxNewton, false, errNoCenter
}

// newtonStep solves h*dx = -g. A Cholesky factorisation is tried first with
// growing diagonal regularisation, then a general LU solve.
func newtonStep(h *mat.SymDense, g, dx []float64) error {
	n := len(g)
	rhs := mat.NewVecDense(n, nil)

	for i, v := range g {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite gradient", ErrNumerical)
		}

		rhs.SetVec(i, -v)
	}

	scale := 0.0
	for i := range n {
		scale = math.Max(scale, math.Abs(h.At(i, i)))
	}

	if scale == 0 {
		scale = 1
	}

	out := mat.NewVecDense(n, dx)
	reg := mat.NewSymDense(n, nil)

	for _, delta := range []float64{0, 1e-14, 1e-12, 1e-10, 1e-8} {
		reg.CopySym(h)

		for i := range n {
			reg.SetSym(i, i, reg.At(i, i)+delta*scale)
		}

		var chol mat.Cholesky
		if !chol.Factorize(reg) {
			continue
		}

		if err := chol.SolveVecTo(out, rhs); err == nil || illConditioned(err) {
			return nil
		}
	}

	var lu mat.Dense
	lu.CloneFrom(h)

	if err := out.SolveVec(&lu, rhs); err != nil && !illConditioned(err) {
		return fmt.Errorf("%w: singular Newton system: %v", ErrNumerical, err)
	}

	return nil
}

// illConditioned reports whether err is only gonum's condition warning; the
// solution has been computed in that case. Barrier Hessians become badly
// scaled close to the optimum.
func illConditioned(err error) bool {
	var cond mat.Condition

	return errors.As(err, &cond) && !math.IsInf(float64(cond), 1)
}

// addOuter adds s*a*a^T to h.
func addOuter(h *mat.SymDense, s float64, a []float64) {
	for i, ai := range a {
		if ai == 0 {
			continue
		}

		for j := i; j < len(a); j++ {
			if a[j] == 0 {
				continue
			}

			h.SetSym(i, j, h.At(i, j)+s*ai*a[j])
		}
	}
}
