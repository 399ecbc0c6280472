// Package synth designs fixed-structure discrete-time controllers from
// frequency response data.
//
// A design starts from a stabilizing initial controller and repeatedly solves
// a convex program that approximates the mixed-sensitivity problem around
// the current estimate: weighted H2 objectives on the closed-loop channels,
// H∞ objectives and H∞ constraints. The loop stops when the relative change
// of the objective drops below a tolerance or after a maximum number of
// iterations. Every returned controller is checked for closed-loop stability
// and for the H∞ constraints on the true, non-linearized response.
//
// Basic usage:
//
//	res, err := synth.Design(problem,
//		synth.WithOrder(3),
//		synth.WithFixedFactors(nil, []float64{1, -1}),
//	)
package synth
