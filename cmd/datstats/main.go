package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/datstats/internal/pipeline"
	"github.com/ajitpratap0/datstats/pkg/config"
	"github.com/ajitpratap0/datstats/pkg/logger"
	"github.com/ajitpratap0/datstats/pkg/metrics"
	"github.com/ajitpratap0/datstats/pkg/observability"
)

var version = "0.1.0"

const usageLine = "Usage: datstats STATSFILE.dat"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit status
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "datstats: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "datstats STATSFILE.dat",
		Short: "Per-column statistics for tab-delimited stats files",
		Long: `datstats reads a tab-delimited file of numeric columns and prints the
mean, median, minimum and maximum of every column.

The first row fixes the number of columns. Extra fields on later rows are
ignored; missing fields are an error.

Example:
  datstats latency.dat
  datstats --format json latency.dat.zst`,
		Args:          cobra.ArbitraryArgs,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(stdout, usageLine)
				return nil
			}
			return runStats(cmd, configFile, args[0], stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("datstats v{{.Version}}\n")

	def := config.Default()
	flags := root.Flags()
	flags.StringVar(&configFile, "config", "", "Path to a configuration file (yaml, json or toml)")
	flags.String("format", def.Output.Format, "Report format (text, json, yaml)")
	flags.String("compression", def.Input.Compression, "Input compression (auto, none, gzip, zstd, lz4, snappy, s2)")
	flags.String("log-level", def.Observability.LogLevel, "Log level (debug, info, warn, error)")
	flags.String("log-encoding", def.Observability.LogEncoding, "Log encoding (console, json)")
	flags.String("metrics-file", "", "Write Prometheus metrics of the run to this file")
	flags.Bool("trace", false, "Print tracing spans to stderr")

	return root
}

// runStats computes and prints the statistics of path
func runStats(cmd *cobra.Command, configFile, path string, stdout, stderr io.Writer) error {
	v, err := config.NewViper(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:    cfg.Observability.LogLevel,
		Encoding: cfg.Observability.LogEncoding,
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	log := logger.With(
		zap.String("component", "datstats-cli"),
		zap.String("version", version),
	)

	tracer, err := observability.NewTracer(observability.TracingConfig{
		ServiceName:    "datstats",
		ServiceVersion: version,
		Enabled:        cfg.Observability.EnableTracing,
		Writer:         stderr,
	})
	if err != nil {
		return err
	}
	defer func() {
		if serr := tracer.Shutdown(context.Background()); serr != nil {
			log.Warn("failed to shut down tracer", zap.Error(serr))
		}
	}()

	m := metrics.NewCollector()
	p, err := pipeline.NewStatsPipeline(&pipeline.PipelineConfig{
		Format:      cfg.Output.Format,
		Compression: cfg.Input.CompressionAlgorithm(),
	}, log, pipeline.WithMetrics(m), pipeline.WithTracer(tracer))
	if err != nil {
		return err
	}

	_, runErr := p.Run(cmd.Context(), path, stdout)

	// Metrics are written for failed runs too; they record the failure.
	if cfg.Observability.MetricsFile != "" {
		if werr := m.WriteTextfile(cfg.Observability.MetricsFile); werr != nil {
			log.Error("failed to write metrics", zap.String("path", cfg.Observability.MetricsFile), zap.Error(werr))
			if runErr == nil {
				return fmt.Errorf("failed to write metrics file %s: %w", cfg.Observability.MetricsFile, werr)
			}
		}
	}

	return runErr
}
