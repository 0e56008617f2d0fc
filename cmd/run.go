package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/smartcache-sim/smartcache-sim/sim/experiment"
	"github.com/smartcache-sim/smartcache-sim/sim/workload"
)

var (
	// Workload selection shared by run, simulate and trace
	workloadName   string // Short name such as matmul_32
	workloadType   string // Workload tag when built from flags
	workloadSize   int    // Element count, or matrix dimension for matmul
	workloadStride int64  // Bytes between accesses
	workloadRange  int64  // Address range for random
	workloadPasses int    // Repetitions for strided
)

// resolveWorkload builds the workload from --workload or --type and friends.
func resolveWorkload(cmd *cobra.Command) (*workload.Spec, error) {
	var spec *workload.Spec
	switch {
	case workloadName != "" && workloadType != "":
		return nil, fmt.Errorf("--workload and --type are mutually exclusive")
	case workloadName != "":
		parsed, err := workload.ParseName(workloadName)
		if err != nil {
			return nil, err
		}
		spec = parsed
		if cmd.Flags().Changed("size") {
			spec.Size = workloadSize
		}
	case workloadType != "":
		spec = &workload.Spec{Type: workloadType, Size: workloadSize}
	default:
		return nil, fmt.Errorf("one of --workload or --type is required")
	}
	spec.Stride = workloadStride
	spec.Range = workloadRange
	spec.Passes = workloadPasses
	s := seed
	spec.Seed = &s
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// runCmd optimizes one custom workload
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search the cache design space for one workload",
	Run: func(cmd *cobra.Command, args []string) {
		spec, err := resolveWorkload(cmd)
		if err != nil {
			logrus.Fatalf("Invalid workload: %v", err)
		}
		defaults, err := loadDefaults()
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		settings := resolveSettings(cmd, experiment.ModeCustom, defaults)
		if _, err := executeSearch(settings, []*workload.Spec{spec}, defaults, 1, cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Search failed: %v", err)
		}
		logrus.Info("Search complete.")
	},
}

// addWorkloadFlags registers the workload selection flags on c.
func addWorkloadFlags(c *cobra.Command) {
	c.Flags().StringVar(&workloadName, "workload", "", "Workload short name, e.g. matmul_32, sort_1000, random_10000")
	c.Flags().StringVar(&workloadType, "type", "", "Workload type (sequential, random, strided, matmul, sort, mixed)")
	c.Flags().IntVar(&workloadSize, "size", 1000, "Element count, or matrix dimension for matmul")
	c.Flags().Int64Var(&workloadStride, "stride", 0, "Bytes between consecutive accesses (sequential, strided)")
	c.Flags().Int64Var(&workloadRange, "range", 0, "Address range in bytes (random)")
	c.Flags().IntVar(&workloadPasses, "passes", 0, "Repetitions over the strided region")
}

func init() {
	addWorkloadFlags(runCmd)
	addSearchFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}
