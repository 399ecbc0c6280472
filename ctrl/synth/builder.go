package synth

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-ctrl/ctrl/frd"
	"github.com/cwbudde/algo-ctrl/ctrl/param"
	"github.com/cwbudde/algo-ctrl/ctrl/socp"
	"github.com/cwbudde/algo-ctrl/ctrl/weight"
)

// Builder turns a controller estimate into the convex program whose solution
// is the next estimate.
//
// With the controller K = X/Y and ψ = Y + P·X the closed-loop channels are
// S = Y/ψ, T = P·X/ψ, U = X/ψ and V = P·Y/ψ. X and Y are affine in the free
// coefficients, so every weighted numerator W·N is affine too. Around the
// current estimate ψc the builder uses
//
//	H2 term      c_k |W N|² / (2 Re{ψ ψc*} - |ψc|²)
//	H∞ bound     |W N| <= bound · Re{ψ ψc*} / |ψc|
//	H∞ objective |W N| / |ψc| <= t
//	stability    Re{ψ ψc*} / |ψc| >= 0
//
// Both linearizations bound |ψ| from below, so the H2 surrogate is an upper
// bound of the true objective that is tight at ψc and every solution of the
// program satisfies the true H∞ bounds on the grid.
type Builder struct {
	spec    *param.Spec
	entries []weight.Entry
	plant   []complex128
	plantTF *frd.TF // nil for non-parametric plants
	omega   []float64
	trapz   []float64
	w       [][]complex128 // per entry, per frequency

	// X(z_k) = num[k]·x, Y(z_k) = den0[k] + den[k]·x
	num, den [][]complex128
	den0     []complex128
}

// NewBuilder precomputes the frequency-wise basis of problem for spec.
func NewBuilder(problem Problem, spec *param.Spec) (*Builder, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}

	grid := problem.Plant.Grid()
	n := grid.Len()

	b := &Builder{
		spec:    spec,
		entries: problem.Weights.Entries(),
		plant:   problem.Plant.Response(),
		plantTF: problem.Plant.TF(),
		omega:   grid.Frequencies(),
		trapz:   grid.TrapzWeights(),
		num:     make([][]complex128, n),
		den:     make([][]complex128, n),
		den0:    make([]complex128, n),
	}

	for k := range n {
		b.num[k], b.den[k], b.den0[k] = spec.Basis(grid.Z(k))
	}

	for _, e := range b.entries {
		b.w = append(b.w, e.Weight.Response())
	}

	return b, nil
}

// Spec returns the parametrization the builder was made for.
func (b *Builder) Spec() *param.Spec { return b.spec }

// NumVars returns the number of controller coefficients.
func (b *Builder) NumVars() int { return b.spec.NumVars() }

// psi returns the affine form of ψ at grid index k.
func (b *Builder) psi(k int) ([]complex128, complex128) {
	p := b.plant[k]
	a := make([]complex128, len(b.num[k]))

	for i := range a {
		a[i] = b.den[k][i] + p*b.num[k][i]
	}

	return a, b.den0[k]
}

// channel returns the affine form of W·N for entry j at grid index k.
func (b *Builder) channel(j, k int) ([]complex128, complex128) {
	var (
		a   = make([]complex128, len(b.num[k]))
		off complex128
		p   = b.plant[k]
		w   = b.w[j][k]
	)

	switch b.entries[j].Channel {
	case weight.Sensitivity:
		copy(a, b.den[k])
		off = b.den0[k]
	case weight.Complementary:
		for i, v := range b.num[k] {
			a[i] = p * v
		}
	case weight.ControlSensitivity:
		copy(a, b.num[k])
	case weight.PlantSensitivity:
		for i, v := range b.den[k] {
			a[i] = p * v
		}

		off = p * b.den0[k]
	}

	for i := range a {
		a[i] *= w
	}

	return a, off * w
}

// Program builds the convex sub-problem around the estimate x. Every H∞
// objective adds one epigraph variable after the controller coefficients.
func (b *Builder) Program(x []float64) (*socp.Program, error) {
	nv := b.NumVars()
	if len(x) != nv {
		return nil, fmt.Errorf("%w: %d, want %d", param.ErrVectorLength, len(x), nv)
	}

	epi := make(map[int]int)
	for j, e := range b.entries {
		if !e.IsConstraint() && e.Norm == weight.HInf {
			epi[j] = nv + len(epi)
		}
	}

	n := nv + len(epi)
	prog := &socp.Program{
		N:         n,
		Objective: make([]float64, n),
		Start:     make([]float64, n),
	}
	copy(prog.Start, x)

	for _, idx := range epi {
		prog.Objective[idx] = 1
	}

	for k := range b.plant {
		aPsi, bPsi := b.psi(k)
		pc := eval(aPsi, bPsi, x)
		mag := cmplx.Abs(pc)

		if !(mag > 0) || math.IsInf(mag, 0) {
			return nil, fmt.Errorf("%w: characteristic polynomial vanishes at grid index %d", ErrUnstabilizingController, k)
		}

		// Re{ψ ψc*} = g·x + h
		g := make([]float64, n)
		for i, v := range aPsi {
			g[i] = real(v * cmplx.Conj(pc))
		}

		h := real(bPsi * cmplx.Conj(pc))

		prog.Linear = append(prog.Linear, socp.Linear{G: scaled(g, 1/mag), H: h / mag})

		for j, e := range b.entries {
			a, off := b.channel(j, k)
			a = widen(a, n)

			switch {
			case e.IsConstraint():
				prog.Cones = append(prog.Cones, socp.Cone{
					A: a, B: off,
					G: scaled(g, e.Bound/mag), H: e.Bound * h / mag,
				})
			case e.Norm == weight.H2:
				prog.Terms = append(prog.Terms, socp.Term{
					C: b.trapz[k], A: a, B: off,
					L: scaled(g, 2), M: 2*h - mag*mag,
				})
			default:
				inv := complex(1/mag, 0)
				for i := range a {
					a[i] *= inv
				}

				t := make([]float64, n)
				t[epi[j]] = 1
				prog.Cones = append(prog.Cones, socp.Cone{A: a, B: off * inv, G: t})

				if v := cmplx.Abs(eval(a, off*inv, prog.Start)); v > prog.Start[epi[j]] {
					prog.Start[epi[j]] = v
				}
			}
		}
	}

	for _, idx := range epi {
		prog.Start[idx] = 1.01*prog.Start[idx] + 1e-9
	}

	return prog, nil
}

// eval returns a·x + off, ignoring entries of a beyond len(x).
func eval(a []complex128, off complex128, x []float64) complex128 {
	u := off
	for i, v := range x {
		if i < len(a) {
			u += a[i] * complex(v, 0)
		}
	}

	return u
}

func scaled(g []float64, s float64) []float64 {
	out := make([]float64, len(g))
	for i, v := range g {
		out[i] = s * v
	}

	return out
}

func widen(a []complex128, n int) []complex128 {
	if len(a) == n {
		return a
	}

	out := make([]complex128, n)
	copy(out, a)

	return out
}
