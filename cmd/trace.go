package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/smartcache-sim/smartcache-sim/sim"
	"github.com/smartcache-sim/smartcache-sim/sim/workload"
)

var (
	traceOutPath string // Trace file written by export
	traceInPath  string // Trace file read by stats
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Export generated address traces or summarize them",
}

// --- smartcache-sim trace export ---

var traceExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Generate a workload trace and write it as a compressed trace file",
	Run: func(cmd *cobra.Command, args []string) {
		spec, err := resolveWorkload(cmd)
		if err != nil {
			logrus.Fatalf("Invalid workload: %v", err)
		}
		addrs, err := workload.Generate(spec)
		if err != nil {
			logrus.Fatalf("Trace generation failed: %v", err)
		}
		if err := workload.WriteTraceFile(traceOutPath, addrs); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Infof("[%s] wrote %d addresses to %s", spec.DisplayName(), len(addrs), traceOutPath)
	},
}

// --- smartcache-sim trace stats ---

var traceStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print access count, footprint and digest of a trace file or generated workload",
	Run: func(cmd *cobra.Command, args []string) {
		var addrs sim.AddressTrace
		var err error
		if traceInPath != "" {
			addrs, err = workload.ReadTraceFile(traceInPath)
		} else {
			var spec *workload.Spec
			if spec, err = resolveWorkload(cmd); err == nil {
				addrs, err = workload.Generate(spec)
			}
		}
		if err != nil {
			logrus.Fatalf("Failed to load trace: %v", err)
		}
		if err := printTraceStats(addrs, cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func printTraceStats(addrs sim.AddressTrace, w io.Writer) error {
	data, err := json.MarshalIndent(workload.Stats(addrs), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func init() {
	addWorkloadFlags(traceExportCmd)
	traceExportCmd.Flags().Int64Var(&seed, "seed", workload.DefaultSeed, "Seed for trace generation")
	traceExportCmd.Flags().StringVar(&traceOutPath, "out", "", "Trace file to write")
	_ = traceExportCmd.MarkFlagRequired("out")

	addWorkloadFlags(traceStatsCmd)
	traceStatsCmd.Flags().Int64Var(&seed, "seed", workload.DefaultSeed, "Seed for trace generation")
	traceStatsCmd.Flags().StringVar(&traceInPath, "in", "", "Trace file to read instead of generating a workload")

	traceCmd.AddCommand(traceExportCmd, traceStatsCmd)
	rootCmd.AddCommand(traceCmd)
}
