// Package polyroot provides the polynomial algebra shared by the controller
// parametrization and the closed-loop validator: convolution, exact division
// by fixed factors, Horner evaluation on the unit circle and root finding.
//
// All coefficient slices are in descending power order:
// c[0]*z^n + c[1]*z^(n-1) + ... + c[n].
package polyroot

import (
	"errors"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// ErrDegeneratePolynomial is returned when a polynomial has degenerate
// coefficients (leading coefficient zero, convergence failure, etc.).
var ErrDegeneratePolynomial = errors.New("polyroot: degenerate polynomial")

// ErrNonZeroRemainder is returned by [DeconvExact] when the divisor does not
// divide the dividend.
var ErrNonZeroRemainder = errors.New("polyroot: non-zero remainder")

// DivisionTol is the relative remainder tolerance used by [DeconvExact].
const DivisionTol = 1e-9

// Conv multiplies two polynomials. The result has length len(a)+len(b)-1.
func Conv(a, b []float64) []float64 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	out := make([]float64, len(a)+len(b)-1)
	for i := range a {
		for j := range b {
			out[i+j] += a[i] * b[j]
		}
	}

	return out
}

// Deconv performs polynomial long division a = conv(b, q) + r. The quotient
// has length len(a)-len(b)+1 and the remainder has the length of a, with its
// leading entries zero up to rounding.
func Deconv(a, b []float64) (q, r []float64, err error) {
	if len(b) == 0 || b[0] == 0 {
		return nil, nil, ErrDegeneratePolynomial
	}

	if len(a) < len(b) {
		r = append([]float64(nil), a...)
		return []float64{0}, r, nil
	}

	r = append([]float64(nil), a...)
	q = make([]float64, len(a)-len(b)+1)

	for i := range q {
		c := r[i] / b[0]
		q[i] = c
		for j := range b {
			r[i+j] -= c * b[j]
		}
	}

	return q, r, nil
}

// DeconvExact divides a by b and fails with [ErrNonZeroRemainder] unless the
// remainder vanishes relative to the magnitude of a.
func DeconvExact(a, b []float64) ([]float64, error) {
	q, r, err := Deconv(a, b)
	if err != nil {
		return nil, err
	}

	scale := math.Max(1, MaxAbs(a))
	if MaxAbs(r) > DivisionTol*scale {
		return nil, ErrNonZeroRemainder
	}

	return q, nil
}

// Add sums two polynomials, aligning them at the constant term.
func Add(a, b []float64) []float64 {
	if len(a) < len(b) {
		a, b = b, a
	}

	out := append([]float64(nil), a...)
	off := len(a) - len(b)
	for i, v := range b {
		out[off+i] += v
	}

	return out
}

// TrimLeading drops leading coefficients whose magnitude is at most tol.
// At least one coefficient is always kept.
func TrimLeading(c []float64, tol float64) []float64 {
	i := 0
	for i < len(c)-1 && math.Abs(c[i]) <= tol {
		i++
	}

	return c[i:]
}

// MaxAbs returns the largest coefficient magnitude.
func MaxAbs(c []float64) float64 {
	m := 0.0
	for _, v := range c {
		if a := math.Abs(v); a > m {
			m = a
		}
	}

	return m
}

// Roots returns all roots of a real polynomial. Leading zeros are ignored.
// The eigenvalues of the companion matrix are used; Durand-Kerner iteration
// is the fallback when the eigen decomposition does not converge.
func Roots(c []float64) ([]complex128, error) {
	c = TrimLeading(c, 0)
	if len(c) == 0 || c[0] == 0 {
		return nil, ErrDegeneratePolynomial
	}

	n := len(c) - 1
	if n == 0 {
		return nil, nil
	}

	comp := mat.NewDense(n, n, nil)
	for j := range n {
		comp.Set(0, j, -c[j+1]/c[0])
	}

	for i := 1; i < n; i++ {
		comp.Set(i, i-1, 1)
	}

	if vals, ok := eigenvalues(comp); ok {
		return vals, nil
	}

	coeff := make([]complex128, len(c))
	for i, v := range c {
		coeff[i] = complex(v, 0)
	}

	return DurandKerner(coeff)
}

var eigenvalues = func(a *mat.Dense) ([]complex128, bool) {
	var eig mat.Eigen
	if !eig.Factorize(a, mat.EigenNone) {
		return nil, false
	}

	return eig.Values(nil), true
}

// MaxModulus returns the largest root magnitude, or 0 for no roots.
func MaxModulus(roots []complex128) float64 {
	m := 0.0
	for _, r := range roots {
		if a := cmplx.Abs(r); a > m {
			m = a
		}
	}

	return m
}

// DurandKerner finds all roots of a complex polynomial by Weierstrass
// simultaneous iteration. It is the fallback of [Roots] when the companion
// eigenvalue problem does not converge.
func DurandKerner(coeff []complex128) ([]complex128, error) {
	if len(coeff) < 2 || coeff[0] == 0 {
		return nil, ErrDegeneratePolynomial
	}

	monic := make([]complex128, len(coeff))
	for i, c := range coeff {
		monic[i] = c / coeff[0]
	}

	n := len(monic) - 1

	// Cauchy bound: every root lies within 1 + max|a_i|.
	bound := 0.0
	for _, a := range monic[1:] {
		bound = math.Max(bound, cmplx.Abs(a))
	}

	bound++

	// distinct, non-symmetric starting points spread over the bound
	roots := make([]complex128, n)
	seed := complex(0.4, 0.9)
	w := complex(1, 0)

	for i := range roots {
		roots[i] = complex(bound, 0) * w / complex(cmplx.Abs(w), 0)
		w *= seed
	}

	const (
		sweeps  = 500
		stepTol = 1e-12
		resTol  = 1e-6
	)

	for range sweeps {
		largest := 0.0

		for i, r := range roots {
			q := complex(1, 0)
			for j, o := range roots {
				if j != i {
					q *= r - o
				}
			}

			if q == 0 {
				// coincident estimates; separate them and retry next sweep
				roots[i] += complex(1e-10, 1e-10)
				largest = math.Inf(1)

				continue
			}

			d := PolyEval(monic, r) / q
			roots[i] = r - d
			largest = math.Max(largest, cmplx.Abs(d)/math.Max(1, cmplx.Abs(r)))
		}

		if largest < stepTol {
			return roots, nil
		}
	}

	// multiple roots converge slowly; accept small residuals
	for _, r := range roots {
		if cmplx.Abs(PolyEval(monic, r)) > resTol {
			return nil, ErrDegeneratePolynomial
		}
	}

	return roots, nil
}

// PolyEval evaluates a polynomial at x using Horner's method. Coefficients
// are in descending power order: coeff[0]*x^n + ... + coeff[n].
func PolyEval(coeff []complex128, x complex128) complex128 {
	v := coeff[0]
	for i := 1; i < len(coeff); i++ {
		v = v*x + coeff[i]
	}

	return v
}

// EvalReal evaluates a real polynomial at a complex point using Horner's
// method. An empty polynomial evaluates to zero.
func EvalReal(coeff []float64, x complex128) complex128 {
	var v complex128
	for _, c := range coeff {
		v = v*x + complex(c, 0)
	}

	return v
}
