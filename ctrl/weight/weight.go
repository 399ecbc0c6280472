// Package weight describes the named objectives and constraints of a
// mixed-sensitivity design: which closed-loop channel is weighted, by which
// frequency response, in which norm, and against which bound.
package weight

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-ctrl/ctrl/frd"
)

// Errors returned by [Set.Validate] and the parsers.
var (
	ErrNoObjective    = errors.New("weight: at least one objective is required")
	ErrDuplicateName  = errors.New("weight: duplicate entry name")
	ErrH2Constraint   = errors.New("weight: H2 entries cannot carry a bound")
	ErrInvalidBound   = errors.New("weight: bound must be finite and non-negative")
	ErrMissingWeight  = errors.New("weight: entry has no weighting function")
	ErrUnknownChannel = errors.New("weight: unknown channel")
	ErrUnknownNorm    = errors.New("weight: unknown norm")
)

// Channel selects the closed-loop transfer function that is weighted.
type Channel int

const (
	// Sensitivity is S = 1/(1+PK), disturbance to error.
	Sensitivity Channel = iota
	// Complementary is T = PK/(1+PK), noise to output.
	Complementary
	// ControlSensitivity is U = K/(1+PK), disturbance to actuator command.
	ControlSensitivity
	// PlantSensitivity is V = P/(1+PK), input disturbance to output.
	PlantSensitivity
)

var channelNames = [...]string{"S", "T", "U", "V"}

// String returns the short channel name.
func (c Channel) String() string {
	if c < 0 || int(c) >= len(channelNames) {
		return fmt.Sprintf("Channel(%d)", int(c))
	}

	return channelNames[c]
}

// ParseChannel accepts the short names S, T, U, V (case-insensitive).
func ParseChannel(s string) (Channel, error) {
	for i, n := range channelNames {
		if strings.EqualFold(s, n) {
			return Channel(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, s)
}

// Norm selects how a weighted channel is measured over frequency.
type Norm int

const (
	// H2 is the trapezoidal integral of the squared magnitude.
	H2 Norm = iota
	// HInf is the peak magnitude over the grid.
	HInf
)

// String returns "H2" or "Hinf".
func (n Norm) String() string {
	switch n {
	case H2:
		return "H2"
	case HInf:
		return "Hinf"
	default:
		return fmt.Sprintf("Norm(%d)", int(n))
	}
}

// ParseNorm accepts "H2" and "Hinf" (case-insensitive).
func ParseNorm(s string) (Norm, error) {
	switch strings.ToLower(s) {
	case "h2":
		return H2, nil
	case "hinf", "hinfinity":
		return HInf, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownNorm, s)
	}
}

// Entry is one weighted channel. A zero Bound makes the entry an objective;
// a positive Bound makes it an H-infinity constraint |W*channel| <= Bound.
type Entry struct {
	Name    string
	Channel Channel
	Norm    Norm
	Weight  *frd.Model
	Bound   float64
}

// IsConstraint reports whether the entry carries a bound.
func (e Entry) IsConstraint() bool { return e.Bound != 0 }

// Set is an immutable collection of entries.
type Set struct {
	entries []Entry
}

// NewSet copies the given entries into a set.
func NewSet(entries ...Entry) *Set {
	return &Set{entries: append([]Entry(nil), entries...)}
}

// Entries returns a copy of all entries in insertion order.
func (s *Set) Entries() []Entry {
	return append([]Entry(nil), s.entries...)
}

// Objectives returns the entries without a bound.
func (s *Set) Objectives() []Entry {
	return s.filter(false)
}

// Constraints returns the bounded entries.
func (s *Set) Constraints() []Entry {
	return s.filter(true)
}

func (s *Set) filter(constraint bool) []Entry {
	var out []Entry

	for _, e := range s.entries {
		if e.IsConstraint() == constraint {
			out = append(out, e)
		}
	}

	return out
}

// Validate checks the set against the design grid.
func (s *Set) Validate(grid frd.Grid) error {
	seen := make(map[string]bool, len(s.entries))
	objectives := 0

	for _, e := range s.entries {
		if seen[e.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateName, e.Name)
		}

		seen[e.Name] = true

		if e.Channel < Sensitivity || e.Channel > PlantSensitivity {
			return fmt.Errorf("%w: %q", ErrUnknownChannel, e.Name)
		}

		if e.Norm != H2 && e.Norm != HInf {
			return fmt.Errorf("%w: %q", ErrUnknownNorm, e.Name)
		}

		if e.Weight == nil {
			return fmt.Errorf("%w: %q", ErrMissingWeight, e.Name)
		}

		if !e.Weight.Grid().Equal(grid) {
			return fmt.Errorf("%w: %q", frd.ErrGridMismatch, e.Name)
		}

		switch {
		case !(e.Bound >= 0) || math.IsInf(e.Bound, 1):
			return fmt.Errorf("%w: %q", ErrInvalidBound, e.Name)
		case e.IsConstraint() && e.Norm == H2:
			return fmt.Errorf("%w: %q", ErrH2Constraint, e.Name)
		case !e.IsConstraint():
			objectives++
		}
	}

	if objectives == 0 {
		return ErrNoObjective
	}

	return nil
}
