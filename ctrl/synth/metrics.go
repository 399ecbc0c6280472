package synth

import (
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-ctrl/ctrl/weight"
)

// Metric is the achieved value of one weighted channel on the grid. H2
// values are the trapezoidal integral of |W·channel|², H∞ values the peak of
// |W·channel|.
type Metric struct {
	Name    string
	Channel weight.Channel
	Norm    weight.Norm
	Value   float64
	Bound   float64 // zero for objectives
}

// Violated reports whether a constraint exceeds its bound by more than the
// relative slack.
func (m Metric) Violated(slack float64) bool {
	return m.Bound > 0 && !(m.Value <= m.Bound*(1+slack))
}

// Metrics evaluates every weighted channel for the coefficients x on the true
// closed-loop response.
func (b *Builder) Metrics(x []float64) map[string]Metric {
	out := make(map[string]Metric, len(b.entries))

	for j, e := range b.entries {
		out[e.Name] = Metric{
			Name:    e.Name,
			Channel: e.Channel,
			Norm:    e.Norm,
			Value:   b.norm(j, x),
			Bound:   e.Bound,
		}
	}

	return out
}

// Objective returns the sum of all objective metrics at x.
func (b *Builder) Objective(x []float64) float64 {
	total := 0.0

	for j, e := range b.entries {
		if !e.IsConstraint() {
			total += b.norm(j, x)
		}
	}

	return total
}

func (b *Builder) norm(j int, x []float64) float64 {
	n := len(b.plant)
	re := make([]float64, n)
	im := make([]float64, n)

	for k := range n {
		aPsi, bPsi := b.psi(k)
		a, off := b.channel(j, k)
		g := eval(a, off, x) / eval(aPsi, bPsi, x)
		re[k], im[k] = real(g), imag(g)
	}

	pow := make([]float64, n)
	vecmath.Power(pow, re, im)

	if b.entries[j].Norm == weight.HInf {
		peak := 0.0
		for _, v := range pow {
			peak = math.Max(peak, v)
		}

		return math.Sqrt(peak)
	}

	weighted := make([]float64, n)
	vecmath.MulBlock(weighted, pow, b.trapz)

	sum := 0.0
	for _, v := range weighted {
		sum += v
	}

	return sum
}

// loopResponse returns L = P·X/Y on the grid.
func (b *Builder) loopResponse(x []float64) []complex128 {
	out := make([]complex128, len(b.plant))
	for k, p := range b.plant {
		out[k] = p * eval(b.num[k], 0, x) / eval(b.den[k], b.den0[k], x)
	}

	return out
}
