package main

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cwbudde/algo-ctrl/ctrl/frd"
	"github.com/cwbudde/algo-ctrl/ctrl/socp"
	"github.com/cwbudde/algo-ctrl/ctrl/synth"
	"github.com/cwbudde/algo-ctrl/ctrl/weight"
)

var errConfig = errors.New("ttdesign: invalid configuration")

// tf is a transfer function in descending powers of z.
type tf struct {
	Num []float64 `yaml:"Num"`
	Den []float64 `yaml:"Den"`
}

type grid struct {
	Lo float64 `yaml:"Lo"`
	Hi float64 `yaml:"Hi"`
	N  int     `yaml:"N"`
	// Spacing is log or lin.
	Spacing string `yaml:"Spacing"`
}

type plant struct {
	TF tf `yaml:"TF"`
	// Impulse, when not empty, replaces TF by a measured impulse response.
	// The design grid is then the FFT grid and Grid.Lo/Hi are ignored.
	Impulse []float64 `yaml:"Impulse"`
}

type entry struct {
	Name    string  `yaml:"Name"`
	Channel string  `yaml:"Channel"`
	Norm    string  `yaml:"Norm"`
	Weight  tf      `yaml:"Weight"`
	Bound   float64 `yaml:"Bound"`
}

type config struct {
	Ts      float64   `yaml:"Ts"`
	Plant   plant     `yaml:"Plant"`
	Grid    grid      `yaml:"Grid"`
	Initial tf        `yaml:"Initial"`
	Order   int       `yaml:"Order"`
	Fx      []float64 `yaml:"Fx"`
	Fy      []float64 `yaml:"Fy"`
	Weights []entry   `yaml:"Weights"`
	Solver  string    `yaml:"Solver"`
	Tol     float64   `yaml:"Tol"`
	MaxIter int       `yaml:"MaxIter"`
	Verbose bool      `yaml:"Verbose"`
	// Output is the file the result is written to; empty skips it.
	Output string `yaml:"Output"`
}

// defaults is the tip/tilt reference design.
func defaults() config {
	return config{
		Ts: 1,
		Plant: plant{
			TF: tf{Num: []float64{0.002}, Den: []float64{1, -1.002}},
		},
		Grid:    grid{Lo: 1e-3, Hi: 3.14159, N: 100, Spacing: "log"},
		Initial: tf{Num: []float64{101, -96}, Den: []float64{1, -1}},
		Order:   3,
		Fx:      []float64{1},
		Fy:      []float64{1, -1},
		Weights: []entry{
			{Name: "disturbance", Channel: "S", Norm: "H2", Weight: tf{Num: []float64{1}, Den: []float64{1, -1}}},
			{Name: "noise", Channel: "T", Norm: "Hinf", Weight: tf{Num: []float64{0.25}, Den: []float64{1, -0.5}}, Bound: 1},
		},
		Solver:  "direct",
		Tol:     1e-4,
		MaxIter: 200,
		Output:  "ttdesign-result.yml",
	}
}

func (c config) transfer(p tf) frd.TF {
	return frd.TF{Num: p.Num, Den: p.Den, Ts: c.Ts}
}

func (c config) plantModel() (*frd.Model, error) {
	if len(c.Plant.Impulse) > 0 {
		return frd.FromImpulse(c.Plant.Impulse, c.Ts, c.Grid.N)
	}

	var (
		g   frd.Grid
		err error
	)

	switch strings.ToLower(c.Grid.Spacing) {
	case "", "log":
		g, err = frd.Logspace(c.Grid.Lo, c.Grid.Hi, c.Grid.N, c.Ts)
	case "lin":
		g, err = frd.Linspace(c.Grid.Lo, c.Grid.Hi, c.Grid.N, c.Ts)
	default:
		return nil, fmt.Errorf("%w: grid spacing %q", errConfig, c.Grid.Spacing)
	}

	if err != nil {
		return nil, err
	}

	return frd.FromTF(c.transfer(c.Plant.TF), g)
}

// problem assembles the design problem described by c.
func (c config) problem() (synth.Problem, error) {
	p, err := c.plantModel()
	if err != nil {
		return synth.Problem{}, fmt.Errorf("plant: %w", err)
	}

	entries := make([]weight.Entry, 0, len(c.Weights))

	for _, e := range c.Weights {
		ch, err := weight.ParseChannel(e.Channel)
		if err != nil {
			return synth.Problem{}, err
		}

		norm, err := weight.ParseNorm(e.Norm)
		if err != nil {
			return synth.Problem{}, err
		}

		w, err := frd.FromTF(c.transfer(e.Weight), p.Grid())
		if err != nil {
			return synth.Problem{}, fmt.Errorf("weight %q: %w", e.Name, err)
		}

		entries = append(entries, weight.Entry{Name: e.Name, Channel: ch, Norm: norm, Weight: w, Bound: e.Bound})
	}

	return synth.Problem{
		Plant:   p,
		Weights: weight.NewSet(entries...),
		Initial: c.transfer(c.Initial),
	}, nil
}

func (c config) options(logger *log.Logger) ([]synth.Option, error) {
	kind, err := socp.ParseKind(c.Solver)
	if err != nil {
		return nil, err
	}

	opts := []synth.Option{
		synth.WithSolver(kind),
		synth.WithTolerance(c.Tol),
		synth.WithMaxIter(c.MaxIter),
		synth.WithOrder(c.Order),
		synth.WithFixedFactors(c.Fx, c.Fy),
	}

	if c.Verbose {
		opts = append(opts, synth.WithLogger(logger))
	}

	return opts, nil
}
