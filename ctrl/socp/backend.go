package socp

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Errors returned by the solver backends.
var (
	ErrUnknownSolver  = errors.New("socp: unknown solver backend")
	ErrInfeasible     = errors.New("socp: program is infeasible")
	ErrNumerical      = errors.New("socp: numerical failure")
	ErrInvalidProgram = errors.New("socp: invalid program")
)

// Kind identifies a solver backend.
type Kind int

const (
	// DirectConic solves the program in its native form.
	DirectConic Kind = iota
	// GenericConic translates the program into standard conic form first.
	GenericConic
)

// String returns the backend name accepted by [ParseKind].
func (k Kind) String() string {
	switch k {
	case DirectConic:
		return "direct"
	case GenericConic:
		return "generic"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a backend name to its Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "direct":
		return DirectConic, nil
	case "generic":
		return GenericConic, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSolver, s)
	}
}

// Status is the outcome reported by a backend.
type Status int

const (
	Optimal Status = iota
	Infeasible
	NumericalError
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case NumericalError:
		return "numerical error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is the solution of one program.
type Result struct {
	X          []float64
	Objective  float64
	Status     Status
	Iterations int
	// PhaseOne is the optimal relaxation found while searching for a
	// feasible start; zero when the start was already feasible.
	PhaseOne float64
}

// Backend solves convex programs. Implementations hold no state between
// calls.
type Backend interface {
	Kind() Kind
	Solve(p *Program) (Result, error)
}

// New returns the backend for kind.
func New(kind Kind) (Backend, error) {
	switch kind {
	case DirectConic:
		return direct{cfg: defaultSettings()}, nil
	case GenericConic:
		return generic{cfg: defaultSettings()}, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownSolver, kind)
	}
}

const (
	// phaseOneMargin is the relaxation below which phase I stops early.
	phaseOneMargin = 1e-3
	// phaseOneFloor is the largest relaxation that counts as feasible.
	phaseOneFloor = -1e-10
)

type minimizer func(p *Program, x0 []float64, cfg settings) ([]float64, int, error)

// solve runs phase I when the start point is not strictly feasible and then
// the barrier method on p, both through run.
func solve(p *Program, cfg settings, run minimizer) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{Status: NumericalError}, err
	}

	x0 := p.Start
	res := Result{}

	if p.Violation(x0) >= 0 {
		q := phaseOne(p)
		c1 := cfg
		c1.stop = func(z []float64) bool { return z[p.N] <= -phaseOneMargin }

		z, n, err := run(q, q.Start, c1)
		res.Iterations += n

		var st *stallError
		if errors.As(err, &st) {
			switch {
			case st.x[p.N]-st.gap > phaseOneFloor:
				// the lower bound on the relaxation already rules out feasibility
				res.Status = Infeasible
				res.PhaseOne = st.x[p.N]

				return res, fmt.Errorf("%w: relaxation at least %.3g", ErrInfeasible, st.x[p.N]-st.gap)
			case st.x[p.N] < phaseOneFloor:
				// a strictly feasible point is all phase I has to deliver
				z, err = st.x, nil
			}
		}

		if err != nil {
			res.Status = NumericalError
			return res, err
		}

		res.PhaseOne = z[p.N]
		if !(z[p.N] < phaseOneFloor) {
			res.Status = Infeasible
			return res, fmt.Errorf("%w: smallest relaxation %.3g", ErrInfeasible, z[p.N])
		}

		x0 = z[:p.N]
	}

	x, n, err := run(p, x0, cfg)
	res.Iterations += n

	if err != nil {
		res.Status = NumericalError
		return res, err
	}

	res.X = x
	res.Objective = p.Cost(x)

	if math.IsNaN(res.Objective) || math.IsInf(res.Objective, 0) {
		res.Status = NumericalError
		return res, fmt.Errorf("%w: non-finite objective", ErrNumerical)
	}

	return res, nil
}
