package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/smartcache-sim/smartcache-sim/sim/experiment"
	"github.com/smartcache-sim/smartcache-sim/sim/optimize"
	"github.com/smartcache-sim/smartcache-sim/sim/recorder"
	"github.com/smartcache-sim/smartcache-sim/sim/report"
	"github.com/smartcache-sim/smartcache-sim/sim/trace"
	"github.com/smartcache-sim/smartcache-sim/sim/workload"
)

var (
	// Search flags shared by run and experiment
	seed            int64  // Seed for trace generation and the optimizer
	budget          int    // Guided evaluations after the initial design
	initSamples     int    // Minimum initial design size
	maxSize         int64  // Largest cache size considered, in bytes
	acquisition     string // Acquisition function
	spacePath       string // YAML search-space file
	defaultsPath    string // defaults.yaml with baselines and mode presets
	noSeedBaselines bool   // Do not evaluate baselines as initial points
	traceLevel      string // Decision trace level
	candidateK      int    // Runner-up candidates kept per traced decision

	// Outputs
	outPath     string // JSON artifact
	dbPath      string // SQLite evaluation database
	metricsAddr string // Prometheus listen address
	plotDir     string // Directory for PNG charts
)

// searchSettings is the resolved size of one search.
type searchSettings struct {
	mode    string
	maxSize int64
	budget  int
}

// resolveSettings applies the mode preset unless the user set --max-size or
// --budget explicitly.
func resolveSettings(cmd *cobra.Command, mode string, defaults *Config) searchSettings {
	s := searchSettings{mode: mode, maxSize: maxSize, budget: budget}
	preset, ok := presetFor(defaults, mode)
	if !ok {
		return s
	}
	if !cmd.Flags().Changed("max-size") {
		s.maxSize = preset.MaxSize
	}
	if !cmd.Flags().Changed("budget") {
		s.budget = preset.Budget
	}
	return s
}

func loadDefaults() (*Config, error) {
	if defaultsPath == "" {
		return nil, nil
	}
	return loadDefaultsConfig(defaultsPath)
}

func loadSpace(s searchSettings) (*optimize.SearchSpace, error) {
	if spacePath == "" {
		return optimize.DefaultSpace(s.maxSize), nil
	}
	space, err := optimize.LoadSpace(spacePath)
	if err != nil {
		return nil, err
	}
	if space.MaxSize > s.maxSize {
		logrus.Infof("Capping search-space max_size %d at %d", space.MaxSize, s.maxSize)
		space.MaxSize = s.maxSize
	}
	return space, nil
}

// executeSearch runs the experiment, prints the comparison table to w and
// writes the requested outputs.
func executeSearch(s searchSettings, specs []*workload.Spec, defaults *Config, parallel int, w io.Writer) (*experiment.Outcome, error) {
	space, err := loadSpace(s)
	if err != nil {
		return nil, err
	}
	runID := recorder.NewRunID()
	cfg := &experiment.Config{
		RunID:         runID,
		Mode:          s.mode,
		Workloads:     specs,
		Space:         space,
		Budget:        s.budget,
		InitSamples:   initSamples,
		Acquisition:   acquisition,
		Seed:          seed,
		Baselines:     baselinesFor(defaults, space.MaxSize),
		SeedBaselines: !noSeedBaselines,
		Parallel:      parallel,
		TraceLevel:    trace.TraceLevel(traceLevel),
		CandidateK:    candidateK,
	}

	if dbPath != "" {
		rec, err := recorder.Open(dbPath, runID, s.mode)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				logrus.Errorf("Closing evaluation database: %v", err)
			}
		}()
		cfg.Recorder = rec
	}
	if metricsAddr != "" {
		tel := experiment.NewTelemetry()
		srv := experiment.Serve(metricsAddr, tel)
		defer srv.Close()
		cfg.Telemetry = tel
	}

	logrus.Infof("Starting %s run %s: %d workloads, max size %d, budget %d",
		s.mode, runID, len(specs), space.MaxSize, s.budget)
	out, err := experiment.Run(cfg)
	if err != nil {
		return nil, err
	}

	for _, wa := range out.Artifact.Workloads {
		if wa.TraceStats.Empty {
			logrus.Warnf("[%s] empty trace: every configuration reports miss rate 0", wa.Workload)
		}
	}
	fmt.Fprintf(w, "=== Search Results (%s, run %s) ===\n", s.mode, runID)
	if err := out.Comparison.Print(w); err != nil {
		return nil, err
	}

	if outPath != "" {
		if err := out.Artifact.WriteJSON(outPath); err != nil {
			return nil, err
		}
		logrus.Infof("Artifact written to %s", outPath)
	}
	if plotDir != "" {
		if err := writePlots(out.Artifact, plotDir); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func writePlots(art *report.Artifact, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating plot directory: %w", err)
	}
	curves := make(map[string][]float64, len(art.Workloads))
	for _, wa := range art.Workloads {
		curves[wa.Workload] = wa.Convergence
		path := filepath.Join(dir, wa.Workload+"_pareto.png")
		if err := report.PlotPareto(wa.Workload, wa.History, path); err != nil {
			return err
		}
	}
	if err := report.PlotConvergence(curves, filepath.Join(dir, "convergence.png")); err != nil {
		return err
	}
	logrus.Infof("Charts written to %s", dir)
	return nil
}

// addSearchFlags registers the optimizer and output flags on c.
func addSearchFlags(c *cobra.Command) {
	c.Flags().Int64Var(&seed, "seed", workload.DefaultSeed, "Seed for trace generation and the optimizer")
	c.Flags().IntVar(&budget, "budget", 20, "Guided evaluations after the initial design")
	c.Flags().IntVar(&initSamples, "init-samples", optimize.DefaultInitSamples, "Minimum number of initial random evaluations")
	c.Flags().Int64Var(&maxSize, "max-size", optimize.DefaultMaxSize, "Largest cache size considered, in bytes")
	c.Flags().StringVar(&acquisition, "acquisition", optimize.AcquisitionEI, "Acquisition function (ei, pi, lcb)")
	c.Flags().StringVar(&spacePath, "space", "", "YAML search-space file (default: powers of two up to --max-size)")
	c.Flags().StringVar(&defaultsPath, "defaults", "", "defaults.yaml with baselines and mode presets")
	c.Flags().BoolVar(&noSeedBaselines, "no-seed-baselines", false, "Do not evaluate the baselines as initial points")
	c.Flags().StringVar(&traceLevel, "trace-level", string(trace.TraceLevelNone), "Decision trace level (none, decisions)")
	c.Flags().IntVar(&candidateK, "candidate-k", 0, "Runner-up candidates kept per traced decision")

	c.Flags().StringVar(&outPath, "out", "", "Write the JSON result artifact to this file")
	c.Flags().StringVar(&dbPath, "db", "", "Record every evaluation to this SQLite database")
	c.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9100")
	c.Flags().StringVar(&plotDir, "plot-dir", "", "Write Pareto and convergence charts to this directory")
}
