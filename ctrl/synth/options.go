package synth

import (
	"log"

	"github.com/cwbudde/algo-ctrl/ctrl/socp"
)

// Config holds the tunable parameters of a design call.
type Config struct {
	// Tol is the relative objective change below which the loop converges.
	Tol float64
	// MaxIter bounds the number of convex sub-problems solved.
	MaxIter int
	// Order is the controller order. Zero keeps the order of the initial
	// controller.
	Order int
	// Solver selects the backend.
	Solver socp.Kind
	// Backend, when set, replaces the backend selected by Solver.
	Backend socp.Backend
	// Fx and Fy are the fixed numerator and denominator factors. Nil means
	// the constant polynomial 1.
	Fx, Fy []float64
	// Slack is the relative tolerance of the final constraint check.
	Slack float64
	// Logger receives one line per iteration. Nil disables logging.
	Logger *log.Logger
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns the default design settings.
func DefaultConfig() Config {
	return Config{
		Tol:     1e-4,
		MaxIter: 10000,
		Solver:  socp.DirectConic,
		Slack:   1e-3,
	}
}

// WithTolerance sets the convergence tolerance.
func WithTolerance(tol float64) Option {
	return func(cfg *Config) {
		if tol > 0 {
			cfg.Tol = tol
		}
	}
}

// WithMaxIter sets the iteration limit.
func WithMaxIter(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.MaxIter = n
		}
	}
}

// WithOrder sets the controller order.
func WithOrder(order int) Option {
	return func(cfg *Config) {
		if order > 0 {
			cfg.Order = order
		}
	}
}

// WithSolver selects the solver backend. Unknown kinds are reported by
// [Design] as [ErrUnknownSolver].
func WithSolver(kind socp.Kind) Option {
	return func(cfg *Config) {
		cfg.Solver = kind
	}
}

// WithBackend solves the sub-problems with backend instead of a built-in one.
func WithBackend(backend socp.Backend) Option {
	return func(cfg *Config) {
		cfg.Backend = backend
	}
}

// WithFixedFactors sets the fixed numerator and denominator factors, for
// example fy = []float64{1, -1} for integral action.
func WithFixedFactors(fx, fy []float64) Option {
	return func(cfg *Config) {
		cfg.Fx = append([]float64(nil), fx...)
		cfg.Fy = append([]float64(nil), fy...)
	}
}

// WithConstraintSlack sets the relative slack of the final constraint check.
func WithConstraintSlack(slack float64) Option {
	return func(cfg *Config) {
		if slack >= 0 {
			cfg.Slack = slack
		}
	}
}

// WithLogger enables the iteration trace.
func WithLogger(l *log.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = l
	}
}

// ApplyOptions applies zero or more options to the default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}

func (cfg Config) logf(format string, args ...any) {
	if cfg.Logger != nil {
		cfg.Logger.Printf(format, args...)
	}
}
