package synth

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-ctrl/ctrl/socp"
)

// Phase is the state of the iterative loop.
type Phase int

const (
	Running Phase = iota
	Converged
	MaxIterReached
	Failed
)

func (p Phase) String() string {
	switch p {
	case Running:
		return "running"
	case Converged:
		return "converged"
	case MaxIterReached:
		return "max-iter"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Done reports whether the loop has stopped.
func (p Phase) Done() bool { return p != Running }

// State is one point of the iteration. X holds the controller coefficients,
// Objective the true (not linearized) objective at X.
type State struct {
	X         []float64
	Objective float64
	Iteration int
	Phase     Phase
}

// Start returns the state of the initial controller.
func Start(b *Builder) State {
	x := b.Spec().Vector()

	return State{X: x, Objective: b.Objective(x)}
}

// Step solves one convex sub-problem around st and returns the next state.
// It does not modify st. A failed solve returns a state in the Failed phase
// together with an *IterationError.
func Step(b *Builder, backend socp.Backend, st State, cfg Config) (State, error) {
	iter := st.Iteration + 1
	failed := State{X: st.X, Objective: st.Objective, Iteration: iter, Phase: Failed}

	prog, err := b.Program(st.X)
	if err != nil {
		return failed, err
	}

	res, err := backend.Solve(prog)
	if err != nil {
		return failed, solverError(iter, err)
	}

	x := append([]float64(nil), res.X[:b.NumVars()]...)
	obj := b.Objective(x)

	if math.IsNaN(obj) || math.IsInf(obj, 0) {
		return failed, solverError(iter, fmt.Errorf("%w: objective %v", socp.ErrNumerical, obj))
	}

	next := State{X: x, Objective: obj, Iteration: iter}

	switch {
	case relChange(st.Objective, obj) < cfg.Tol:
		next.Phase = Converged
	case iter >= cfg.MaxIter:
		next.Phase = MaxIterReached
	default:
		next.Phase = Running
	}

	return next, nil
}

func relChange(prev, cur float64) float64 {
	d := math.Abs(cur - prev)
	if s := math.Abs(prev); s > 0 {
		return d / s
	}

	return d
}
