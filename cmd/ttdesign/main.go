// Command ttdesign designs a fixed-structure tip/tilt controller from a YAML
// description of the plant, the weights and an initial controller.
//
// Usage:
//
//	ttdesign <command> [config.yml]
//
// Commands are run, help, mkconf, conf and version.
package main

import (
	"fmt"
	"io"
	"log"
	"math"
	"math/cmplx"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/algo-ctrl/ctrl/synth"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number, injected via ldflags on release builds.
	Version = "0.1.0"

	// ConfigFileName is the default configuration file.
	ConfigFileName = "ttdesign.yml"
	k              = koanf.New(".")
)

func setupconfig(path string) {
	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		log.Fatalf("error loading defaults: %v", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !strings.Contains(err.Error(), "no such") { // missing file keeps the defaults
			log.Fatalf("error loading config: %v", err)
		}
	}
}

func loadconfig() config {
	c := config{}
	if err := k.Unmarshal("", &c); err != nil {
		log.Fatal(err)
	}

	return c
}

func root() {
	str := `ttdesign designs discrete-time tip/tilt controllers from frequency response data.

Usage:
	ttdesign <command> [config.yml]

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `ttdesign reads its configuration from a YAML file, ttdesign.yml unless another
path is given after the command.  When no file exists the built-in tip/tilt
example is used.  The command mkconf writes the defaults to the file so they
can be edited.

The plant is either a transfer function (Plant.TF) or a measured impulse
response (Plant.Impulse).  Every entry of Weights names a closed-loop channel
(S, T, U or V), a norm (H2 or Hinf) and a weighting transfer function.  A
non-zero Bound turns an Hinf entry into a constraint |W*channel| <= Bound.

Fx and Fy are fixed controller factors; Fy = [1, -1] keeps integral action.
Solver is direct or generic.  Set Verbose to trace every iteration.`
	fmt.Println(str)
}

func mkconf(path string) {
	f, err := os.Create(path)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	if err := yml.NewEncoder(f).Encode(loadconfig()); err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	if err := yml.NewEncoder(os.Stdout).Encode(loadconfig()); err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("ttdesign version %v\n", Version)
}

func run() {
	cfg := loadconfig()

	problem, err := cfg.problem()
	if err != nil {
		log.Fatal(err)
	}

	opts, err := cfg.options(log.New(os.Stderr, "", log.LstdFlags))
	if err != nil {
		log.Fatal(err)
	}

	res, err := synth.Design(problem, opts...)
	if err != nil {
		log.Fatal(err)
	}

	reportModels(os.Stdout, problem)
	report(os.Stdout, res)

	if cfg.Output == "" {
		return
	}

	f, err := os.Create(cfg.Output)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	if err := yml.NewEncoder(f).Encode(newResultDoc(res)); err != nil {
		log.Fatal(err)
	}

	log.Printf("result written to %s", cfg.Output)
}

// reportModels prints the peak gain of the plant and of every weight.
func reportModels(out io.Writer, p synth.Problem) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Model\tPeak\tAt")

	g := p.Plant.Grid()
	peak, k := p.Plant.Peak()
	fmt.Fprintf(w, "plant\t%.4g\t%.4g rad/s\n", peak, g.Omega(k))

	for _, e := range p.Weights.Entries() {
		peak, k := e.Weight.Peak()
		fmt.Fprintf(w, "%s weight\t%.4g\t%.4g rad/s\n", e.Name, peak, g.Omega(k))
	}

	w.Flush()
	fmt.Fprintln(out)
}

// report prints the design summary as aligned tables.
func report(out io.Writer, res *synth.Result) {
	fmt.Fprintf(out, "phase %v after %d iterations\n\n", res.Phase, res.Iterations)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Name\tChannel\tNorm\tInitial\tFinal\tBound")

	for _, name := range sortedNames(res.Objectives) {
		m := res.Objectives[name]

		bound := "-"
		if m.Bound > 0 {
			bound = fmt.Sprintf("%.4g", m.Bound)
		}

		fmt.Fprintf(w, "%s\t%v\t%v\t%.6g\t%.6g\t%s\n", name, m.Channel, m.Norm, res.Initial[name].Value, m.Value, bound)
	}

	w.Flush()

	fmt.Fprintf(out, "\nnum %v\nden %v\n\n", res.Controller.Num, res.Controller.Den)

	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	mg := res.Margins
	fmt.Fprintf(w, "Crossover\t%.4g rad/s\n", mg.CrossoverFreq)
	fmt.Fprintf(w, "Phase margin\t%.2f deg\n", mg.PhaseMargin)
	fmt.Fprintf(w, "Gain margin\t%.2f dB\n", mg.GainMargin_dB)
	fmt.Fprintf(w, "Modulus margin\t%.4f\n", mg.ModulusMargin)
	fmt.Fprintf(w, "Peak |S|\t%.2f dB\n", mg.PeakS_dB)
	fmt.Fprintf(w, "Peak |T|\t%.2f dB\n", mg.PeakT_dB)
	fmt.Fprintf(w, "Bandwidth\t%.4g rad/s\n", mg.Bandwidth)

	if len(res.Poles) > 0 {
		fmt.Fprintf(w, "Max |pole|\t%.6f\n", cmplx.Abs(res.Poles[0]))
	}

	w.Flush()
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

type metricDoc struct {
	Channel string  `yaml:"Channel"`
	Norm    string  `yaml:"Norm"`
	Initial float64 `yaml:"Initial"`
	Final   float64 `yaml:"Final"`
	Bound   float64 `yaml:"Bound,omitempty"`
}

type resultDoc struct {
	Num        []float64            `yaml:"Num"`
	Den        []float64            `yaml:"Den"`
	Ts         float64              `yaml:"Ts"`
	Phase      string               `yaml:"Phase"`
	Iterations int                  `yaml:"Iterations"`
	History    []float64            `yaml:"History"`
	Metrics    map[string]metricDoc `yaml:"Metrics"`
	PoleMag    []float64            `yaml:"PoleMagnitudes,omitempty"`
	PhaseMarg  float64              `yaml:"PhaseMargin"`
	ModMargin  float64              `yaml:"ModulusMargin"`
}

func newResultDoc(res *synth.Result) resultDoc {
	doc := resultDoc{
		Num:        res.Controller.Num,
		Den:        res.Controller.Den,
		Ts:         res.Controller.Ts,
		Phase:      res.Phase.String(),
		Iterations: res.Iterations,
		History:    res.History,
		Metrics:    make(map[string]metricDoc, len(res.Objectives)),
		PhaseMarg:  finite(res.Margins.PhaseMargin),
		ModMargin:  res.Margins.ModulusMargin,
	}

	for name, m := range res.Objectives {
		doc.Metrics[name] = metricDoc{
			Channel: m.Channel.String(),
			Norm:    m.Norm.String(),
			Initial: res.Initial[name].Value,
			Final:   m.Value,
			Bound:   m.Bound,
		}
	}

	for _, p := range res.Poles {
		doc.PoleMag = append(doc.PoleMag, cmplx.Abs(p))
	}

	return doc
}

// finite maps NaN and Inf to zero for the YAML dump.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	return v
}

func main() {
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}

	path := ConfigFileName
	if len(args) > 2 {
		path = args[2]
	}

	setupconfig(path)

	switch strings.ToLower(args[1]) {
	case "help":
		help()
	case "mkconf":
		mkconf(path)
	case "conf":
		printconf()
	case "run":
		run()
	case "version":
		pversion()
	default:
		log.Fatal("unknown command")
	}
}
