package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const defaultEnvFile = ".env"

// envFlags maps environment variables to the flags they default. An
// explicit flag always wins over the environment.
var envFlags = map[string]string{
	"SMARTCACHE_LOG":          "log",
	"SMARTCACHE_SEED":         "seed",
	"SMARTCACHE_DB":           "db",
	"SMARTCACHE_METRICS_ADDR": "metrics-addr",
	"SMARTCACHE_DEFAULTS":     "defaults",
	"SMARTCACHE_OUT":          "out",
	"SMARTCACHE_PLOT_DIR":     "plot-dir",
	"SMARTCACHE_ACQUISITION":  "acquisition",
}

// applyEnvDefaults sets every unchanged flag of cmd that has a SMARTCACHE_*
// variable in the environment. Flags the command does not define are skipped.
func applyEnvDefaults(cmd *cobra.Command) error {
	names := make([]string, 0, len(envFlags))
	for env := range envFlags {
		names = append(names, env)
	}
	sort.Strings(names)

	for _, env := range names {
		value, ok := os.LookupEnv(env)
		if !ok {
			continue
		}
		flagName := envFlags[env]
		flag := lookupFlag(cmd, flagName)
		if flag == nil || flag.Changed {
			continue
		}
		if err := flag.Value.Set(value); err != nil {
			return fmt.Errorf("%s=%q: %w", env, value, err)
		}
		logrus.Debugf("--%s set from %s", flagName, env)
	}
	return nil
}

func lookupFlag(cmd *cobra.Command, name string) *pflag.Flag {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f
	}
	return cmd.InheritedFlags().Lookup(name)
}
