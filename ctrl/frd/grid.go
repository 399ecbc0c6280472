package frd

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

// Errors returned by grid and model constructors.
var (
	ErrEmptyGrid           = errors.New("frd: grid needs at least two frequencies")
	ErrNonMonotonicGrid    = errors.New("frd: grid frequencies must be positive and strictly increasing")
	ErrInvalidSamplePeriod = errors.New("frd: sample period must be positive")
	ErrAboveNyquist        = errors.New("frd: grid frequency above the Nyquist frequency")
	ErrLengthMismatch      = errors.New("frd: response length does not match grid")
	ErrGridMismatch        = errors.New("frd: models are sampled on different grids")
	ErrEmptyPolynomial     = errors.New("frd: empty polynomial")
)

// nyquistSlack tolerates rounding when the last grid point is exactly pi/Ts.
const nyquistSlack = 1e-12

// Grid is an ordered set of angular frequencies (rad/s) for a discrete-time
// system with sample period Ts.
type Grid struct {
	omega []float64
	ts    float64
}

// NewGrid validates and copies omega. Frequencies must be positive, strictly
// increasing and not above pi/ts.
func NewGrid(omega []float64, ts float64) (Grid, error) {
	if !(ts > 0) || math.IsInf(ts, 0) {
		return Grid{}, ErrInvalidSamplePeriod
	}

	if len(omega) < 2 {
		return Grid{}, ErrEmptyGrid
	}

	nyq := math.Pi / ts
	prev := 0.0

	for i, w := range omega {
		if !(w > prev) {
			return Grid{}, fmt.Errorf("%w: index %d", ErrNonMonotonicGrid, i)
		}

		if w > nyq*(1+nyquistSlack) {
			return Grid{}, fmt.Errorf("%w: %g > %g", ErrAboveNyquist, w, nyq)
		}

		prev = w
	}

	return Grid{omega: append([]float64(nil), omega...), ts: ts}, nil
}

// Logspace returns n logarithmically spaced frequencies from lo to hi.
func Logspace(lo, hi float64, n int, ts float64) (Grid, error) {
	if n < 2 {
		return Grid{}, ErrEmptyGrid
	}

	if !(lo > 0) || !(hi > lo) {
		return Grid{}, ErrNonMonotonicGrid
	}

	omega := make([]float64, n)
	a, b := math.Log10(lo), math.Log10(hi)

	for i := range omega {
		omega[i] = math.Pow(10, a+(b-a)*float64(i)/float64(n-1))
	}

	omega[n-1] = hi

	return NewGrid(omega, ts)
}

// Linspace returns n evenly spaced frequencies from lo to hi.
func Linspace(lo, hi float64, n int, ts float64) (Grid, error) {
	if n < 2 {
		return Grid{}, ErrEmptyGrid
	}

	omega := make([]float64, n)
	for i := range omega {
		omega[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}

	omega[n-1] = hi

	return NewGrid(omega, ts)
}

// Len returns the number of grid points.
func (g Grid) Len() int { return len(g.omega) }

// Ts returns the sample period.
func (g Grid) Ts() float64 { return g.ts }

// Omega returns the k-th frequency in rad/s.
func (g Grid) Omega(k int) float64 { return g.omega[k] }

// Frequencies returns a copy of all grid frequencies.
func (g Grid) Frequencies() []float64 {
	return append([]float64(nil), g.omega...)
}

// Z returns the point e^{j omega_k Ts} on the unit circle.
func (g Grid) Z(k int) complex128 {
	return cmplx.Exp(complex(0, g.omega[k]*g.ts))
}

// TrapzWeights returns weights c such that sum(c_k f_k) is the trapezoidal
// integral of f over the grid.
func (g Grid) TrapzWeights() []float64 {
	n := len(g.omega)
	c := make([]float64, n)

	for k := 0; k < n-1; k++ {
		h := 0.5 * (g.omega[k+1] - g.omega[k])
		c[k] += h
		c[k+1] += h
	}

	return c
}

// Equal reports whether both grids hold the same frequencies and sample
// period up to relative rounding.
func (g Grid) Equal(o Grid) bool {
	if len(g.omega) != len(o.omega) || !closeTo(g.ts, o.ts) {
		return false
	}

	for i := range g.omega {
		if !closeTo(g.omega[i], o.omega[i]) {
			return false
		}
	}

	return true
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) <= 1e-12*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
