// Package frd holds frequency-response data (FRD): a frequency grid and the
// complex gain of a plant or weighting filter at every grid point.
//
// Models are immutable once constructed and are shared read-only by the
// synthesis engine for the duration of a design call.
//
// # Construction
//
// A model is built from tabulated data, from a discrete transfer function,
// or from a measured impulse response:
//
//	grid, err := frd.Logspace(1e-3, math.Pi, 400, 1)
//	plant, err := frd.FromTF(frd.TF{Num: []float64{0.002}, Den: []float64{1, -1.002}, Ts: 1}, grid)
//	measured, err := frd.FromImpulse(h, ts, 512)
//
// Models built from a transfer function keep the parametric description so
// that closed-loop poles can be computed exactly during validation.
package frd
