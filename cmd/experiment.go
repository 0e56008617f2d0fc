package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/smartcache-sim/smartcache-sim/sim/experiment"
	"github.com/smartcache-sim/smartcache-sim/sim/workload"
)

var (
	experimentMode     string // quick or full
	experimentSuite    string // YAML workload suite replacing the mode's workloads
	experimentParallel int    // Concurrent workloads
)

// suiteSpecs returns the workloads of --suite, or of the built-in suite for mode.
func suiteSpecs(mode string) ([]*workload.Spec, error) {
	if experimentSuite != "" {
		suite, err := workload.LoadSuite(experimentSuite)
		if err != nil {
			return nil, err
		}
		if suite.Seed == nil {
			s := seed
			suite.Seed = &s
		}
		return suite.Specs(), nil
	}
	suite, ok := workload.SuiteByName(mode, seed)
	if !ok {
		return nil, fmt.Errorf("unknown mode %q; valid: %s, %s", mode, experiment.ModeQuick, experiment.ModeFull)
	}
	return suite.Specs(), nil
}

// experimentCmd sweeps a suite of workloads and compares against baselines
var experimentCmd = &cobra.Command{
	Use:   "experiment",
	Short: "Run the search over a workload suite and compare against fixed baselines",
	Run: func(cmd *cobra.Command, args []string) {
		if _, ok := experiment.PresetFor(experimentMode); !ok {
			logrus.Fatalf("Unknown mode %q; valid: %s, %s", experimentMode, experiment.ModeQuick, experiment.ModeFull)
		}
		specs, err := suiteSpecs(experimentMode)
		if err != nil {
			logrus.Fatalf("Failed to load workloads: %v", err)
		}
		defaults, err := loadDefaults()
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		settings := resolveSettings(cmd, experimentMode, defaults)
		if _, err := executeSearch(settings, specs, defaults, experimentParallel, cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Experiment failed: %v", err)
		}
		logrus.Info("Experiment complete.")
	},
}

func init() {
	experimentCmd.Flags().StringVar(&experimentMode, "mode", experiment.ModeQuick, "Experiment size (quick, full)")
	experimentCmd.Flags().StringVar(&experimentSuite, "suite", "", "YAML workload suite replacing the mode's built-in workloads")
	experimentCmd.Flags().IntVar(&experimentParallel, "parallel", 1, "Workloads optimized concurrently")
	addSearchFlags(experimentCmd)
	rootCmd.AddCommand(experimentCmd)
}
