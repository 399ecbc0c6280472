// Package margin computes classical robustness figures of a feedback loop
// from its loop frequency response L = P*K sampled on a grid.
package margin

import (
	"math"
	"math/cmplx"
)

// Stats holds loop diagnostics. Frequencies are in rad/s, phases in degrees.
type Stats struct {
	CrossoverFreq      float64 // first |L| = 1 crossing, NaN if none
	PhaseMargin        float64 // smallest phase margin over all gain crossings
	PhaseCrossoverFreq float64 // crossing of the negative real axis, NaN if none
	GainMargin         float64 // smallest upper gain margin (linear), +Inf if none
	GainMargin_dB      float64
	PeakS              float64 // max |1/(1+L)|
	PeakS_dB           float64
	PeakT              float64 // max |L/(1+L)|
	PeakT_dB           float64
	ModulusMargin      float64 // 1/PeakS, distance of L to -1
	Bandwidth          float64 // first frequency where |T| drops below 1/sqrt(2)
}

// toDB converts a linear magnitude to decibels.
// Returns -Inf for zero values.
func toDB(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(v)
}

// Calculate computes the loop diagnostics. loop and omega must have the same
// length of at least two.
func Calculate(loop []complex128, omega []float64) Stats {
	st := Stats{
		CrossoverFreq:      math.NaN(),
		PhaseMargin:        math.Inf(1),
		PhaseCrossoverFreq: math.NaN(),
		GainMargin:         math.Inf(1),
		Bandwidth:          math.NaN(),
	}

	n := len(loop)
	if n < 2 || len(omega) != n {
		st.GainMargin_dB = math.Inf(1)
		return st
	}

	for _, l := range loop {
		s := 1 / cmplx.Abs(1+l)
		t := cmplx.Abs(l) * s

		st.PeakS = math.Max(st.PeakS, s)
		st.PeakT = math.Max(st.PeakT, t)
	}

	st.PeakS_dB = toDB(st.PeakS)
	st.PeakT_dB = toDB(st.PeakT)
	st.ModulusMargin = 1 / st.PeakS

	for k := 0; k < n-1; k++ {
		m0, m1 := cmplx.Abs(loop[k]), cmplx.Abs(loop[k+1])

		// gain crossover
		if (m0-1)*(m1-1) <= 0 && m0 != m1 {
			f := (1 - m0) / (m1 - m0)
			w := omega[k] + f*(omega[k+1]-omega[k])
			l := loop[k] + complex(f, 0)*(loop[k+1]-loop[k])
			pm := 180 + cmplx.Phase(l)*180/math.Pi

			if pm > 180 {
				pm -= 360
			}

			if math.IsNaN(st.CrossoverFreq) {
				st.CrossoverFreq = w
			}

			st.PhaseMargin = math.Min(st.PhaseMargin, pm)
		}

		// negative real axis crossing
		i0, i1 := imag(loop[k]), imag(loop[k+1])
		if i0*i1 <= 0 && i0 != i1 {
			f := i0 / (i0 - i1)
			re := real(loop[k]) + f*(real(loop[k+1])-real(loop[k]))

			if re < 0 {
				if math.IsNaN(st.PhaseCrossoverFreq) {
					st.PhaseCrossoverFreq = omega[k] + f*(omega[k+1]-omega[k])
				}

				if gm := -1 / re; gm > 1 {
					st.GainMargin = math.Min(st.GainMargin, gm)
				}
			}
		}
	}

	st.GainMargin_dB = toDB(st.GainMargin)
	st.Bandwidth = bandwidth(loop, omega)

	return st
}

// bandwidth returns the first frequency where |T| falls below 1/sqrt(2),
// interpolated linearly between grid points.
func bandwidth(loop []complex128, omega []float64) float64 {
	threshold := 1 / math.Sqrt2
	prev := cmplx.Abs(loop[0] / (1 + loop[0]))

	if prev <= threshold {
		return math.NaN()
	}

	for k := 1; k < len(loop); k++ {
		cur := cmplx.Abs(loop[k] / (1 + loop[k]))
		if cur <= threshold {
			return interpFreq(omega[k-1], omega[k], prev, cur, threshold)
		}

		prev = cur
	}

	return math.NaN()
}

// interpFreq linearly interpolates between two grid points to find the
// frequency where the magnitude crosses the given threshold.
func interpFreq(fLow, fHigh, magLow, magHigh, threshold float64) float64 {
	denom := magHigh - magLow
	if denom == 0 {
		return (fLow + fHigh) / 2
	}

	t := (threshold - magLow) / denom

	return fLow + t*(fHigh-fLow)
}
