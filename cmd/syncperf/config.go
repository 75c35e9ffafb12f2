package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "syncperf"

// perfConfig holds the settings of one run.
type perfConfig struct {
	Threads    int
	Keys       int
	WriteRatio float64
	Targets    []string
	CSVPath    string
	LogLevel   zerolog.Level
}

func setupPerfFlags(cmd *cobra.Command) {
	key := "threads"
	cmd.Flags().Int(key, 8, wrapString("Goroutines per GOMAXPROCS used for the benchmark"))
	key = "keys"
	cmd.Flags().Int(key, 1024, wrapString("How many distinct keys the workload touches"))
	key = "write-ratio"
	cmd.Flags().Float64(key, 0.01, wrapString("Fraction of operations that are stores (0 to 1)"))
	key = "targets"
	cmd.Flags().String(key, strings.Join(targetNames(), ","), wrapString("Maps to benchmark (comma separated - e.g. safemap,syncmap)"))
	key = "csv"
	cmd.Flags().String(key, "", wrapString("Optional path to save benchmark results as CSV"))
	key = "log-level"
	cmd.Flags().String(key, "info", wrapString("Log level (debug, info, warn, error)"))
}

// initEnv makes v read SYNCPERF_* variables, loading .env files first.
func initEnv(v *viper.Viper) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// readPerfConfig reads and validates the run settings from v.
func readPerfConfig(v *viper.Viper) (perfConfig, error) {
	cfg := perfConfig{
		Threads:    v.GetInt("threads"),
		Keys:       v.GetInt("keys"),
		WriteRatio: v.GetFloat64("write-ratio"),
		CSVPath:    v.GetString("csv"),
	}

	if cfg.Threads < 1 {
		return cfg, fmt.Errorf("threads must be at least 1, got %d", cfg.Threads)
	}
	if cfg.Keys < 1 {
		return cfg, fmt.Errorf("keys must be at least 1, got %d", cfg.Keys)
	}
	if cfg.WriteRatio < 0 || cfg.WriteRatio > 1 {
		return cfg, fmt.Errorf("write-ratio must be between 0 and 1, got %g", cfg.WriteRatio)
	}

	level, err := zerolog.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return cfg, fmt.Errorf("invalid log-level: %w", err)
	}
	cfg.LogLevel = level

	targets, err := parseTargets(v.GetString("targets"))
	if err != nil {
		return cfg, err
	}
	cfg.Targets = targets

	return cfg, nil
}

// parseTargets splits a comma separated target list, dropping blanks and
// duplicates while keeping order.
func parseTargets(list string) ([]string, error) {
	var out []string
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" || slices.Contains(out, name) {
			continue
		}
		if _, ok := targetFactories[name]; !ok {
			return nil, fmt.Errorf("unknown target %q (available: %s)", name, strings.Join(targetNames(), ", "))
		}
		out = append(out, name)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no targets selected")
	}

	return out, nil
}
