package synth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cwbudde/algo-ctrl/ctrl/frd"
	"github.com/cwbudde/algo-ctrl/ctrl/margin"
	"github.com/cwbudde/algo-ctrl/ctrl/param"
	"github.com/cwbudde/algo-ctrl/ctrl/socp"
)

// Result is a successful design. Controller is the latest iterate of the
// loop; with H∞ objectives it need not be the iterate with the smallest
// objective, see History.
type Result struct {
	Controller frd.TF
	// Objectives and Initial hold the achieved metrics of the final and the
	// initial controller, keyed by entry name.
	Objectives map[string]Metric
	Initial    map[string]Metric
	Iterations int
	Phase      Phase
	// History is the objective of the initial controller followed by the
	// objective after every iteration.
	History []float64
	Margins margin.Stats
	// Poles are the closed-loop poles sorted by decreasing modulus; nil for
	// non-parametric plants.
	Poles []complex128
}

// Design runs the iterative synthesis on problem. It always solves at least
// one convex sub-problem. The returned controller stabilizes the plant model
// and meets every H∞ constraint on the grid; anything else is an error.
//
// The initial controller must stabilize the plant as well, otherwise Design
// fails with [ErrInvalidProblem] wrapping [ErrUnstabilizingController]
// before any sub-problem is solved: the linearization is only valid around
// a stabilizing controller.
func Design(problem Problem, opts ...Option) (*Result, error) {
	cfg := ApplyOptions(opts...)

	backend := cfg.Backend
	if backend == nil {
		var err error
		if backend, err = socp.New(cfg.Solver); err != nil {
			return nil, err
		}
	}

	if err := problem.Validate(); err != nil {
		return nil, err
	}

	order := cfg.Order
	if order == 0 {
		order = problem.Initial.Order()
	}

	spec, err := param.New(problem.Initial, order, cfg.Fx, cfg.Fy)
	if err != nil {
		return nil, err
	}

	b, err := NewBuilder(problem, spec)
	if err != nil {
		return nil, err
	}

	st := Start(b)
	x0 := st.X

	if _, err := b.stable(x0, x0); err != nil {
		return nil, fmt.Errorf("%w: initial controller: %w", ErrInvalidProblem, err)
	}

	cfg.logf("synth: order %d, %d variables, %d frequencies, solver %v, initial objective %.6g",
		order, b.NumVars(), len(b.plant), backend.Kind(), st.Objective)

	history := []float64{st.Objective}

	for !st.Phase.Done() {
		st, err = Step(b, backend, st, cfg)
		if err != nil {
			cfg.logf("synth: iteration %d failed: %v", st.Iteration, err)
			return nil, err
		}

		history = append(history, st.Objective)
		cfg.logf("synth: iteration %d objective %.9g (%v)", st.Iteration, st.Objective, st.Phase)
	}

	final, err := spec.WithVector(st.X)
	if err != nil {
		return nil, err
	}

	poles, err := b.stable(st.X, x0)
	if err != nil {
		return nil, err
	}

	metrics := b.Metrics(st.X)
	if err := b.checkConstraints(metrics, cfg.Slack); err != nil {
		return nil, err
	}

	return &Result{
		Controller: final.Controller(),
		Objectives: metrics,
		Initial:    b.Metrics(x0),
		Iterations: st.Iteration,
		Phase:      st.Phase,
		History:    history,
		Margins:    margin.Calculate(b.loopResponse(st.X), b.omega),
		Poles:      poles,
	}, nil
}

// BatchResult pairs a design result with its error.
type BatchResult struct {
	Result *Result
	Err    error
}

// DesignBatch runs independent designs on a pool of workers. Results are
// returned in the order of problems. Cancelling ctx stops the dispatch of
// designs that have not started; running designs complete.
func DesignBatch(ctx context.Context, problems []Problem, workers int, opts ...Option) []BatchResult {
	if workers < 1 {
		workers = 1
	}

	out := make([]BatchResult, len(problems))
	jobs := make(chan int)

	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range jobs {
				res, err := Design(problems[i], opts...)
				out[i] = BatchResult{Result: res, Err: err}
			}
		}()
	}

	next := 0

dispatch:
	for ; next < len(problems); next++ {
		if ctx.Err() != nil {
			break
		}

		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- next:
		}
	}

	close(jobs)
	wg.Wait()

	for i := next; i < len(problems); i++ {
		out[i].Err = ctx.Err()
	}

	return out
}

// IsSolverFailure reports whether err stems from the solver backend.
func IsSolverFailure(err error) bool {
	var it *IterationError
	return errors.As(err, &it)
}
