package testutil

import (
	"math/rand"
)

// DeterministicNoise generates uniform noise in [-amplitude, amplitude) with
// a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// ImpulseResponse returns the first length samples of the impulse response
// of num(z)/den(z), coefficients in descending powers of z. The numerator
// degree must not exceed the denominator degree.
func ImpulseResponse(num, den []float64, length int) []float64 {
	n := len(den) - 1
	b := make([]float64, n+1)
	copy(b[n+1-len(num):], num)

	out := make([]float64, length)
	for k := range out {
		acc := 0.0
		if k <= n {
			acc = b[k]
		}
		for i := 1; i <= n && i <= k; i++ {
			acc -= den[i] * out[k-i]
		}
		out[k] = acc / den[0]
	}
	return out
}
