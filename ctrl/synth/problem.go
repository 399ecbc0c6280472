package synth

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-ctrl/ctrl/frd"
	"github.com/cwbudde/algo-ctrl/ctrl/weight"
)

// Problem is one design request: a plant sampled on the design grid, the
// weighted objectives and constraints, and a stabilizing initial controller.
type Problem struct {
	Plant   *frd.Model
	Weights *weight.Set
	Initial frd.TF
}

// Validate checks that the parts of p fit together.
func (p Problem) Validate() error {
	if p.Plant == nil || p.Plant.Len() == 0 {
		return fmt.Errorf("%w: missing plant model", ErrInvalidProblem)
	}

	if p.Weights == nil {
		return fmt.Errorf("%w: missing weights", ErrInvalidProblem)
	}

	if err := p.Weights.Validate(p.Plant.Grid()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProblem, err)
	}

	if err := p.Initial.Validate(); err != nil {
		return fmt.Errorf("%w: initial controller: %w", ErrInvalidProblem, err)
	}

	if ts := p.Plant.Grid().Ts(); math.Abs(p.Initial.Ts-ts) > 1e-12*ts {
		return fmt.Errorf("%w: controller Ts %g, plant Ts %g", ErrInvalidProblem, p.Initial.Ts, ts)
	}

	return nil
}
