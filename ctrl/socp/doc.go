// Package socp defines the convex sub-problem solved at every iteration of a
// controller design and the interchangeable solver backends for it.
//
// A [Program] minimises a linear function plus a sum of
// quadratic-over-linear terms subject to complex second-order cone and
// linear constraints. Two backends solve the same program:
//
//   - [DirectConic] runs a log-barrier interior-point method on the native
//     form, with analytic derivatives of the quadratic-over-linear terms.
//   - [GenericConic] is a modeling layer: it lifts every term into a rotated
//     cone with an epigraph variable, rewrites the program in standard real
//     conic form and solves that. It is slower because the Newton systems
//     grow with the number of terms.
//
// Both backends search for a strictly feasible point with a phase I
// relaxation when the supplied start point is infeasible and report
// [ErrInfeasible] when none exists, also when phase I stalls with a lower
// bound on the relaxation that is already positive.
//
// Newton centering stops on a decrement relative to the barrier value, so
// badly scaled programs terminate at the rounding floor instead of running
// out of steps.
package socp
