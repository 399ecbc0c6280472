package frd

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-ctrl/internal/polyroot"
)

// TF is a discrete-time transfer function Num(z)/Den(z) with coefficients in
// descending powers of z.
type TF struct {
	Num []float64
	Den []float64
	Ts  float64
}

// Eval returns the gain of the transfer function at z.
func (tf TF) Eval(z complex128) complex128 {
	return polyroot.EvalReal(tf.Num, z) / polyroot.EvalReal(tf.Den, z)
}

// Order returns the degree of the denominator after dropping leading zeros.
func (tf TF) Order() int {
	return len(polyroot.TrimLeading(tf.Den, 0)) - 1
}

// Validate checks that both polynomials are non-empty and the denominator is
// not identically zero.
func (tf TF) Validate() error {
	if len(tf.Num) == 0 || len(tf.Den) == 0 {
		return ErrEmptyPolynomial
	}

	if polyroot.MaxAbs(tf.Den) == 0 {
		return fmt.Errorf("%w: zero denominator", ErrEmptyPolynomial)
	}

	if !(tf.Ts > 0) {
		return ErrInvalidSamplePeriod
	}

	return nil
}

// Model is a frequency response sampled on a grid. The zero value is not
// usable; build models with [New], [FromTF] or [FromImpulse].
type Model struct {
	grid Grid
	resp []complex128
	tf   *TF
}

// New copies resp into a non-parametric model on grid.
func New(grid Grid, resp []complex128) (*Model, error) {
	if grid.Len() == 0 {
		return nil, ErrEmptyGrid
	}

	if len(resp) != grid.Len() {
		return nil, fmt.Errorf("%w: %d values for %d frequencies", ErrLengthMismatch, len(resp), grid.Len())
	}

	return &Model{grid: grid, resp: append([]complex128(nil), resp...)}, nil
}

// FromTF samples tf on grid. The parametric description is retained.
func FromTF(tf TF, grid Grid) (*Model, error) {
	if err := tf.Validate(); err != nil {
		return nil, err
	}

	if !closeTo(tf.Ts, grid.Ts()) {
		return nil, fmt.Errorf("%w: transfer function Ts %g, grid Ts %g", ErrGridMismatch, tf.Ts, grid.Ts())
	}

	resp := make([]complex128, grid.Len())
	for k := range resp {
		resp[k] = tf.Eval(grid.Z(k))
	}

	own := TF{
		Num: append([]float64(nil), tf.Num...),
		Den: append([]float64(nil), tf.Den...),
		Ts:  tf.Ts,
	}

	return &Model{grid: grid, resp: resp, tf: &own}, nil
}

// FromImpulse estimates the frequency response of a system from its impulse
// response h sampled with period ts. The response is evaluated on n evenly
// spaced frequencies in (0, pi/ts]; n is rounded up to a power of two.
func FromImpulse(h []float64, ts float64, n int) (*Model, error) {
	if len(h) == 0 {
		return nil, ErrEmptyPolynomial
	}

	if n < 2 {
		return nil, ErrEmptyGrid
	}

	if !(ts > 0) {
		return nil, ErrInvalidSamplePeriod
	}

	n = nextPowerOf2(n)
	fftSize := nextPowerOf2(max(len(h), 2*n))

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("frd: failed to create FFT plan: %w", err)
	}

	in := make([]complex128, fftSize)
	for i, v := range h {
		in[i] = complex(v, 0)
	}

	spec := make([]complex128, fftSize)
	if err := plan.Forward(spec, in); err != nil {
		return nil, err
	}

	step := fftSize / (2 * n)
	omega := make([]float64, n)
	resp := make([]complex128, n)

	for k := range n {
		bin := (k + 1) * step
		omega[k] = 2 * math.Pi * float64(bin) / (float64(fftSize) * ts)
		resp[k] = spec[bin]
	}

	grid, err := NewGrid(omega, ts)
	if err != nil {
		return nil, err
	}

	return &Model{grid: grid, resp: resp}, nil
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}

// Grid returns the frequency grid.
func (m *Model) Grid() Grid { return m.grid }

// Len returns the number of frequencies.
func (m *Model) Len() int { return len(m.resp) }

// At returns the complex gain at grid index k.
func (m *Model) At(k int) complex128 { return m.resp[k] }

// Response returns a copy of the complex gains.
func (m *Model) Response() []complex128 {
	return append([]complex128(nil), m.resp...)
}

// TF returns the parametric model, or nil when the model is non-parametric.
func (m *Model) TF() *TF {
	if m.tf == nil {
		return nil
	}

	return &TF{
		Num: append([]float64(nil), m.tf.Num...),
		Den: append([]float64(nil), m.tf.Den...),
		Ts:  m.tf.Ts,
	}
}

// Magnitude returns |G(omega_k)| for every grid point.
func (m *Model) Magnitude() []float64 {
	re, im := m.parts()
	out := make([]float64, len(m.resp))
	vecmath.Magnitude(out, re, im)

	return out
}

// Peak returns the largest magnitude and its grid index.
func (m *Model) Peak() (float64, int) {
	best, idx := 0.0, 0

	for k, a := range m.Magnitude() {
		if a > best {
			best, idx = a, k
		}
	}

	return best, idx
}

func (m *Model) parts() (re, im []float64) {
	re = make([]float64, len(m.resp))
	im = make([]float64, len(m.resp))

	for k, v := range m.resp {
		re[k] = real(v)
		im[k] = imag(v)
	}

	return re, im
}
