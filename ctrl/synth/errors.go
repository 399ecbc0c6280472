package synth

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-ctrl/ctrl/param"
	"github.com/cwbudde/algo-ctrl/ctrl/socp"
)

// Errors returned by [Design]. Solver failures are reported as
// *[IterationError] values that match both the synth sentinel and the
// underlying socp error with errors.Is.
var (
	ErrMalformedFixedFactor    = param.ErrMalformedFixedFactor
	ErrUnknownSolver           = socp.ErrUnknownSolver
	ErrSolverInfeasible        = errors.New("synth: convex sub-problem is infeasible")
	ErrSolverNumerical         = errors.New("synth: solver failed numerically")
	ErrUnstabilizingController = errors.New("synth: controller does not stabilize the plant")
	ErrConstraintViolated      = errors.New("synth: controller violates a constraint")
	ErrInvalidProblem          = errors.New("synth: invalid design problem")
)

// IterationError records the iteration at which the solver gave up.
type IterationError struct {
	Iteration int
	Kind      error // ErrSolverInfeasible or ErrSolverNumerical
	Err       error
}

func (e *IterationError) Error() string {
	return fmt.Sprintf("synth: iteration %d: %v: %v", e.Iteration, e.Kind, e.Err)
}

// Unwrap exposes both the classification and the solver error.
func (e *IterationError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// solverError classifies a backend failure.
func solverError(iter int, err error) error {
	kind := ErrSolverNumerical
	if errors.Is(err, socp.ErrInfeasible) {
		kind = ErrSolverInfeasible
	}

	return &IterationError{Iteration: iter, Kind: kind, Err: err}
}
