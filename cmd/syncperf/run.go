package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/cyberinferno/syncutils/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// perfResult is the outcome of benchmarking one target.
type perfResult struct {
	Target string
	Result testing.BenchmarkResult
}

func (r perfResult) nsPerOp() float64 {
	return math.Max(float64(r.Result.NsPerOp()), 1)
}

func (r perfResult) opsPerSec() float64 {
	return 1e9 / r.nsPerOp()
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	var cfg perfConfig

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Benchmark the selected maps",
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			initEnv(v)

			var err error
			cfg, err = readPerfConfig(v)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.NewConsoleLogger("syncperf", cfg.LogLevel)
			defer log.Close()

			results, err := runBenchmarks(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}

			printResults(cmd.OutOrStdout(), results)

			if cfg.CSVPath != "" {
				if err := writeResultsCSV(cfg.CSVPath, cfg, results); err != nil {
					return fmt.Errorf("failed to export results to CSV: %w", err)
				}
				log.Info("results exported", logger.Field{Key: "path", Value: cfg.CSVPath})
			}

			return nil
		},
	}

	setupPerfFlags(cmd)
	return cmd
}

// runBenchmarks benchmarks every configured target in order.
func runBenchmarks(ctx context.Context, cfg perfConfig, log logger.Logger) ([]perfResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log = logger.OrNop(log)
	keys := makeKeys(cfg.Keys)

	log.Info("starting benchmarks",
		logger.Field{Key: "targets", Value: cfg.Targets},
		logger.Field{Key: "threads", Value: cfg.Threads},
		logger.Field{Key: "keys", Value: cfg.Keys},
		logger.Field{Key: "write_ratio", Value: cfg.WriteRatio})

	results := make([]perfResult, 0, len(cfg.Targets))
	for _, name := range cfg.Targets {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		s := targetFactories[name]()
		if err := warmUp(ctx, s, keys, cfg.Threads); err != nil {
			return results, fmt.Errorf("warm-up of %s failed: %w", name, err)
		}

		res := testing.Benchmark(func(b *testing.B) {
			runWorkload(b, s, keys, cfg)
		})

		pr := perfResult{Target: name, Result: res}
		log.Debug("benchmark finished",
			logger.Field{Key: "target", Value: name},
			logger.Field{Key: "iterations", Value: res.N},
			logger.Field{Key: "ns_per_op", Value: res.NsPerOp()})
		results = append(results, pr)
	}

	return results, nil
}

// makeKeys returns n distinct keys.
func makeKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = "key-" + strconv.Itoa(i)
	}
	return keys
}

// warmUp stores every key once, splitting the keys across threads
// goroutines, so the measured run starts from a populated map.
func warmUp(ctx context.Context, s store, keys []string, threads int) error {
	g, ctx := errgroup.WithContext(ctx)
	for t := range threads {
		g.Go(func() error {
			for i := t; i < len(keys); i += threads {
				if i%256 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				s.Store(keys[i], i)
			}
			return nil
		})
	}
	return g.Wait()
}

// runWorkload issues a random mix of loads and stores. Each goroutine walks
// the key set from a random offset.
func runWorkload(b *testing.B, s store, keys []string, cfg perfConfig) {
	b.SetParallelism(cfg.Threads)
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		i := rng.IntN(len(keys))
		for pb.Next() {
			k := keys[i%len(keys)]
			if cfg.WriteRatio > 0 && rng.Float64() < cfg.WriteRatio {
				s.Store(k, i)
			} else {
				s.Load(k)
			}
			i++
		}
	})
}

// printResults writes one line per target.
func printResults(w io.Writer, results []perfResult) {
	for _, r := range results {
		if r.Result.N == 0 {
			fmt.Fprintf(w, "%-12sskipped\n", r.Target)
			continue
		}
		ns := r.nsPerOp()
		fmt.Fprintf(w, "%-12s%8.1fns/op (%s/op)\t%.0f ops/sec\n", r.Target, ns, time.Duration(ns), r.opsPerSec())
	}
}

// writeResultsCSV writes results together with the run configuration.
func writeResultsCSV(path string, cfg perfConfig, results []perfResult) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	if err := encodeResultsCSV(file, cfg, results); err != nil {
		return err
	}

	return file.Close()
}

func encodeResultsCSV(w io.Writer, cfg perfConfig, results []perfResult) error {
	writer := csv.NewWriter(w)

	header := []string{"Target", "Iterations", "NsPerOp", "OpsPerSec", "Threads", "Keys", "WriteRatio"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range results {
		row := []string{
			r.Target,
			strconv.Itoa(r.Result.N),
			fmt.Sprintf("%.1f", r.nsPerOp()),
			fmt.Sprintf("%.0f", r.opsPerSec()),
			strconv.Itoa(cfg.Threads),
			strconv.Itoa(cfg.Keys),
			strconv.FormatFloat(cfg.WriteRatio, 'f', -1, 64),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for target %s: %w", r.Target, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
