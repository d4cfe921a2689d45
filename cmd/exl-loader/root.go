package main

import (
	"github.com/sirilvk/exl-loader/pkg/exl"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd(v *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "exl-loader",
		Short: "Load EXL instrument documents into Redis",
		Long: `exl-loader parses every EXL document in a directory and writes the
template and instrument records into Redis hashes.

Instruments are indexed by RIC, by symbol and, when present, by ISIN.
Documents are split into contiguous shards and loaded by a pool of workers.
SIGINT or SIGTERM lets each worker finish its current file and stop.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, v)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("idir", "i", "", "Directory containing EXL documents (required)")
	flags.IntP("threads", "t", 20, "Number of workers")
	flags.StringP("log", "l", "error", "Log level (debug, info, warn, warning, error, critical)")
	flags.String("log-format", "text", "Log format (text, json)")
	flags.String("ext", ".exl", "Document file extension")
	flags.String("redis-addr", "localhost:6379", "Redis address")
	flags.String("redis-password", "", "Redis password")
	flags.Int("redis-db", 0, "Redis database number")
	flags.Bool("atomic-writes", false, "Write each instrument's index entries in one MULTI/EXEC")
	flags.Float64("writes-per-second", 0, "Throttle Redis writes across all workers (0 = unlimited)")
	flags.Int("metrics-port", 0, "Serve Prometheus metrics on this port (0 = disabled)")
	flags.Bool("trace", false, "Export OpenTelemetry spans to stderr")
	flags.StringP("config", "c", "", "Config file (default: ~/.exl-loader.yaml or ./.exl-loader.yaml)")

	bindings := map[string]string{
		"idir":                      "idir",
		"threads":                   "threads",
		"ext":                       "ext",
		"logging.level":             "log",
		"logging.format":            "log-format",
		"redis.address":             "redis-addr",
		"redis.password":            "redis-password",
		"redis.db":                  "redis-db",
		"redis.atomic_index_writes": "atomic-writes",
		"redis.writes_per_second":   "writes-per-second",
		"metrics.port":              "metrics-port",
		"tracing.enabled":           "trace",
		"config":                    "config",
	}
	for key, flag := range bindings {
		v.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return exl.ErrConfiguration("flags", err.Error())
	})

	rootCmd.AddCommand(newRunCmd(v))
	rootCmd.AddCommand(newWatchCmd(v))
	rootCmd.AddCommand(newHealthCmd(v))
	rootCmd.AddCommand(newConfigCmd(v))

	return rootCmd
}
