// Package pipeline runs a stats file through the collector and renders the
// report. A run has three phases, each timed and traced:
//
//  1. read: rows stream from the stats file into a colstats.Collector
//  2. summarize: every column is sorted and summarized
//  3. report: summaries are rendered and written out
//
// Any error aborts the run before the report phase, so output is either the
// complete report or nothing.
package pipeline

import (
	"bytes"
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/datstats/pkg/colstats"
	"github.com/ajitpratap0/datstats/pkg/compression"
	"github.com/ajitpratap0/datstats/pkg/datfile"
	"github.com/ajitpratap0/datstats/pkg/errors"
	"github.com/ajitpratap0/datstats/pkg/metrics"
	"github.com/ajitpratap0/datstats/pkg/observability"
	"github.com/ajitpratap0/datstats/pkg/report"
)

// PipelineConfig contains the settings of a run
type PipelineConfig struct {
	Format      string                // Report format (text, json, yaml)
	Compression compression.Algorithm // Input decompression; Auto detects from the extension
}

// DefaultPipelineConfig returns the plain text, auto-detecting configuration
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		Format:      string(report.FormatText),
		Compression: compression.Auto,
	}
}

// Result describes a completed run
type Result struct {
	Path      string
	Rows      int
	Columns   int
	Summaries []colstats.Summary
	Duration  time.Duration
}

// StatsPipeline wires the reader, the collector and the formatter
type StatsPipeline struct {
	config    *PipelineConfig
	formatter report.Formatter
	logger    *zap.Logger
	metrics   *metrics.Collector
	tracer    *observability.Tracer
}

// Option customizes a StatsPipeline
type Option func(*StatsPipeline)

// WithMetrics records the run into m instead of a private collector
func WithMetrics(m *metrics.Collector) Option {
	return func(p *StatsPipeline) {
		p.metrics = m
	}
}

// WithTracer traces the run phases with t
func WithTracer(t *observability.Tracer) Option {
	return func(p *StatsPipeline) {
		p.tracer = t
	}
}

// NewStatsPipeline validates config and builds a pipeline
func NewStatsPipeline(config *PipelineConfig, logger *zap.Logger, opts ...Option) (*StatsPipeline, error) {
	if config == nil {
		config = DefaultPipelineConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	formatter, err := report.New(config.Format)
	if err != nil {
		return nil, err
	}

	p := &StatsPipeline{
		config:    config,
		formatter: formatter,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.metrics == nil {
		p.metrics = metrics.NewCollector()
	}
	if p.tracer == nil {
		p.tracer, _ = observability.NewTracer(observability.TracingConfig{ServiceName: "datstats"})
	}
	return p, nil
}

// Metrics returns the collector the pipeline records into
func (p *StatsPipeline) Metrics() *metrics.Collector {
	return p.metrics
}

// Run computes the statistics of the stats file at path and writes the
// report to out
func (p *StatsPipeline) Run(ctx context.Context, path string, out io.Writer) (*Result, error) {
	start := time.Now()
	ctx, span := p.tracer.StartSpan(ctx, "datstats.run")
	defer span.End()
	span.SetAttribute("path", path)

	p.logger.Info("starting run",
		zap.String("path", path),
		zap.String("format", string(p.formatter.Format())),
		zap.String("compression", string(p.config.Compression)))

	collector := colstats.NewCollector()

	if err := p.read(ctx, path, collector); err != nil {
		span.RecordError(err)
		return nil, err
	}

	summaries, err := p.summarize(ctx, collector)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := p.render(ctx, out, summaries); err != nil {
		span.RecordError(err)
		return nil, err
	}

	numCols, _ := collector.ColumnCount()
	result := &Result{
		Path:      path,
		Rows:      collector.Rows(),
		Columns:   numCols,
		Summaries: summaries,
		Duration:  time.Since(start),
	}
	span.SetAttribute("rows", result.Rows)
	span.SetAttribute("columns", result.Columns)

	p.logger.Info("run completed",
		zap.Int("rows", result.Rows),
		zap.Int("columns", result.Columns),
		zap.Duration("duration", result.Duration))

	return result, nil
}

func (p *StatsPipeline) read(ctx context.Context, path string, collector *colstats.Collector) error {
	ctx, span := p.tracer.StartSpan(ctx, "datstats.read")
	defer span.End()
	timer := p.metrics.NewTimer(metrics.PhaseRead)
	defer timer.Stop()

	err := datfile.ReadFile(ctx, path, func(line int, fields []string) error {
		if err := collector.Observe(fields); err != nil {
			p.metrics.RowErrors.WithLabelValues(errorType(err)).Inc()
			return err
		}
		if collector.Rows() == 1 {
			n, _ := collector.ColumnCount()
			p.metrics.Columns.Set(float64(n))
			p.logger.Debug("column count established", zap.Int("columns", n), zap.Int("line", line))
		}
		p.metrics.RowsRead.Inc()
		n, _ := collector.ColumnCount()
		p.metrics.FieldsParsed.Add(float64(n))
		return nil
	},
		datfile.WithCompression(p.config.Compression),
		datfile.WithLogger(p.logger),
	)

	span.SetAttribute("rows", collector.Rows())
	if err != nil {
		span.RecordError(err)
		p.logger.Error("failed to read stats file", zap.String("path", path), zap.Error(err))
		return err
	}
	return nil
}

func (p *StatsPipeline) summarize(ctx context.Context, collector *colstats.Collector) ([]colstats.Summary, error) {
	_, span := p.tracer.StartSpan(ctx, "datstats.summarize")
	defer span.End()
	timer := p.metrics.NewTimer(metrics.PhaseSummarize)
	defer timer.Stop()

	summaries, err := collector.Summarize()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttribute("columns", len(summaries))
	return summaries, nil
}

func (p *StatsPipeline) render(ctx context.Context, out io.Writer, summaries []colstats.Summary) error {
	_, span := p.tracer.StartSpan(ctx, "datstats.report")
	defer span.End()
	timer := p.metrics.NewTimer(metrics.PhaseReport)
	defer timer.Stop()

	var buf bytes.Buffer
	if err := p.formatter.Write(&buf, summaries); err != nil {
		span.RecordError(err)
		return err
	}
	if _, err := out.Write(buf.Bytes()); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write report")
	}
	return nil
}

func errorType(err error) string {
	var e *errors.Error
	if errors.As(err, &e) {
		return string(e.Type)
	}
	return string(errors.ErrorTypeInternal)
}
