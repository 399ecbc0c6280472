// Package param implements the fixed-structure controller parametrization
// used by the synthesis engine.
//
// A controller K = X/Y of order N is written as
//
//	X = conv(freeNum, Fx)
//	Y = conv([1 freeDen], Fy)
//
// where Fx and Fy are fixed factors (for example Fy = [1 -1] for integral
// action) and freeNum, freeDen are the tunable coefficients. The leading
// coefficient of the free denominator is normalised to one and is not an
// optimisation variable.
package param

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-ctrl/ctrl/frd"
	"github.com/cwbudde/algo-ctrl/internal/polyroot"
)

// Errors returned by the parametrization.
var (
	ErrMalformedFixedFactor = errors.New("param: fixed factor does not divide the controller polynomial")
	ErrOrderTooLow          = errors.New("param: initial controller exceeds the target order")
	ErrImproperController   = errors.New("param: controller numerator degree exceeds denominator degree")
	ErrVectorLength         = errors.New("param: coefficient vector has wrong length")
)

// Spec is a controller parametrization. Values are immutable; updates return
// a new Spec.
type Spec struct {
	order   int
	ts      float64
	fx, fy  []float64
	freeNum []float64
	freeDen []float64
}

// New builds a parametrization of the given order from an initial controller.
// Empty fixed factors default to the constant polynomial 1.
func New(initial frd.TF, order int, fx, fy []float64) (*Spec, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}

	if len(fx) == 0 {
		fx = []float64{1}
	}

	if len(fy) == 0 {
		fy = []float64{1}
	}

	if fx[0] == 0 || fy[0] == 0 {
		return nil, fmt.Errorf("%w: zero leading coefficient", ErrMalformedFixedFactor)
	}

	if len(fx) > order+1 || len(fy) > order+1 {
		return nil, fmt.Errorf("%w: fixed factor degree exceeds order %d", ErrMalformedFixedFactor, order)
	}

	num, den, err := Pad(initial.Num, initial.Den, order)
	if err != nil {
		return nil, err
	}

	freeNum, err := polyroot.DeconvExact(num, fx)
	if err != nil {
		return nil, fmt.Errorf("%w: numerator by %v", ErrMalformedFixedFactor, fx)
	}

	q, err := polyroot.DeconvExact(den, fy)
	if err != nil {
		return nil, fmt.Errorf("%w: denominator by %v", ErrMalformedFixedFactor, fy)
	}

	lead := q[0]
	if lead == 0 {
		return nil, fmt.Errorf("%w: free denominator has zero leading coefficient", ErrMalformedFixedFactor)
	}

	for i := range freeNum {
		freeNum[i] /= lead
	}

	freeDen := make([]float64, len(q)-1)
	for i := range freeDen {
		freeDen[i] = q[i+1] / lead
	}

	return &Spec{
		order:   order,
		ts:      initial.Ts,
		fx:      append([]float64(nil), fx...),
		fy:      append([]float64(nil), fy...),
		freeNum: freeNum,
		freeDen: freeDen,
	}, nil
}

// Pad brings num and den to length order+1 without changing the transfer
// function: num is aligned with den by leading zeros, then both receive the
// same number of trailing zeros (a common factor z^k).
func Pad(num, den []float64, order int) ([]float64, []float64, error) {
	den = polyroot.TrimLeading(den, 0)
	num = polyroot.TrimLeading(num, 0)

	if len(num) > len(den) {
		return nil, nil, ErrImproperController
	}

	if len(den) > order+1 {
		return nil, nil, fmt.Errorf("%w: degree %d > %d", ErrOrderTooLow, len(den)-1, order)
	}

	pn := make([]float64, order+1)
	pd := make([]float64, order+1)

	copy(pd, den)
	copy(pn[len(den)-len(num):], num)

	return pn, pd, nil
}

// Order returns the controller order N.
func (s *Spec) Order() int { return s.order }

// Ts returns the controller sample period.
func (s *Spec) Ts() float64 { return s.ts }

// Fx returns a copy of the fixed numerator factor.
func (s *Spec) Fx() []float64 { return append([]float64(nil), s.fx...) }

// Fy returns a copy of the fixed denominator factor.
func (s *Spec) Fy() []float64 { return append([]float64(nil), s.fy...) }

// FreeNum returns a copy of the free numerator coefficients.
func (s *Spec) FreeNum() []float64 { return append([]float64(nil), s.freeNum...) }

// FreeDen returns a copy of the free denominator coefficients without the
// implicit leading one.
func (s *Spec) FreeDen() []float64 { return append([]float64(nil), s.freeDen...) }

// NumVars returns the number of optimisation variables.
func (s *Spec) NumVars() int { return len(s.freeNum) + len(s.freeDen) }

// Vector returns the optimisation variables: free numerator followed by the
// free denominator.
func (s *Spec) Vector() []float64 {
	x := make([]float64, 0, s.NumVars())
	x = append(x, s.freeNum...)

	return append(x, s.freeDen...)
}

// WithVector returns a copy of s with its free coefficients replaced by x.
func (s *Spec) WithVector(x []float64) (*Spec, error) {
	if len(x) != s.NumVars() {
		return nil, fmt.Errorf("%w: %d, want %d", ErrVectorLength, len(x), s.NumVars())
	}

	out := *s
	out.freeNum = append([]float64(nil), x[:len(s.freeNum)]...)
	out.freeDen = append([]float64(nil), x[len(s.freeNum):]...)

	return &out, nil
}

// Reconstruct returns the true numerator and denominator for the given free
// coefficients: (conv(freeNum, Fx), conv([1 freeDen], Fy)).
func (s *Spec) Reconstruct(freeNum, freeDen []float64) ([]float64, []float64) {
	monic := make([]float64, len(freeDen)+1)
	monic[0] = 1
	copy(monic[1:], freeDen)

	return polyroot.Conv(freeNum, s.fx), polyroot.Conv(monic, s.fy)
}

// Controller returns the controller described by the current coefficients.
func (s *Spec) Controller() frd.TF {
	num, den := s.Reconstruct(s.freeNum, s.freeDen)

	return frd.TF{Num: num, Den: den, Ts: s.ts}
}

// Basis evaluates the affine dependence of X(z) and Y(z) on the variables:
// X(z) = sum_i num[i]*x[i] and Y(z) = den0 + sum_i den[i]*x[i].
func (s *Spec) Basis(z complex128) (num, den []complex128, den0 complex128) {
	nv := s.NumVars()
	num = make([]complex128, nv)
	den = make([]complex128, nv)

	fx := polyroot.EvalReal(s.fx, z)
	fy := polyroot.EvalReal(s.fy, z)

	nn := len(s.freeNum)

	p := complex(1, 0)
	for i := nn - 1; i >= 0; i-- {
		num[i] = fx * p
		p *= z
	}

	p = complex(1, 0)
	for i := nv - 1; i >= nn; i-- {
		den[i] = fy * p
		p *= z
	}

	den0 = fy * p

	return num, den, den0
}
