package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var (
	logLevel string // Log verbosity level
	envFile  string // Optional .env file with SMARTCACHE_* defaults
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "smartcache-sim",
	Short: "Cache design-space explorer: trace-driven simulation plus Bayesian optimization",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := loadEnvFile(envFile); err != nil {
			logrus.Fatalf("Failed to load env file %s: %v", envFile, err)
		}
		if err := applyEnvDefaults(cmd); err != nil {
			logrus.Fatalf("Invalid environment default: %v", err)
		}

		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// loadEnvFile loads path into the process environment. A missing default
// .env is not an error; a missing explicit file is.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) && path == defaultEnvFile {
		return nil
	}
	return godotenv.Load(path)
}

// Execute runs the CLI root command. Exit goes through atexit so open
// recorders are flushed, including after logrus.Fatalf.
func Execute() {
	logrus.RegisterExitHandler(func() { atexit.Exit(1) })
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// init sets up persistent flags shared by every subcommand
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", defaultEnvFile, "File of SMARTCACHE_* environment defaults")
}
