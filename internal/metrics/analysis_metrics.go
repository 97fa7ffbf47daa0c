// Package metrics holds the OpenTelemetry instruments for the analyze
// pipeline and the meter and tracer provider setup.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/JonMunkholm/csvinsight/internal/core"
)

const meterName = "csvinsight-analysis"

// AnalysisMetrics implements core.Recorder.
type AnalysisMetrics struct {
	startedCounter    metric.Int64Counter
	completedCounter  metric.Int64Counter
	failedCounter     metric.Int64Counter
	durationHistogram metric.Float64Histogram
	activeGauge       metric.Int64UpDownCounter
	filesHistogram    metric.Int64Histogram
	exportCounter     metric.Int64Counter
	exportBytes       metric.Int64Histogram
}

// NewAnalysisMetrics registers the instruments on mp. A nil mp uses the
// global provider, which is a no-op until InitMeter installs one.
func NewAnalysisMetrics(mp metric.MeterProvider) (*AnalysisMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	startedCounter, err := meter.Int64Counter(
		"csvinsight.analyses.started",
		metric.WithDescription("Total number of analyze runs started"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	completedCounter, err := meter.Int64Counter(
		"csvinsight.analyses.completed",
		metric.WithDescription("Total number of analyze runs that produced insights"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	failedCounter, err := meter.Int64Counter(
		"csvinsight.analyses.failed",
		metric.WithDescription("Total number of analyze runs that ended in error"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	durationHistogram, err := meter.Float64Histogram(
		"csvinsight.analysis.duration",
		metric.WithDescription("Duration of analyze runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	activeGauge, err := meter.Int64UpDownCounter(
		"csvinsight.analyses.active",
		metric.WithDescription("Number of analyze runs in progress"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	filesHistogram, err := meter.Int64Histogram(
		"csvinsight.analysis.files",
		metric.WithDescription("Files per analyze run"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, err
	}

	exportCounter, err := meter.Int64Counter(
		"csvinsight.exports",
		metric.WithDescription("Total number of exports produced"),
		metric.WithUnit("{export}"),
	)
	if err != nil {
		return nil, err
	}

	exportBytes, err := meter.Int64Histogram(
		"csvinsight.export.size",
		metric.WithDescription("Size of export artifacts"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &AnalysisMetrics{
		startedCounter:    startedCounter,
		completedCounter:  completedCounter,
		failedCounter:     failedCounter,
		durationHistogram: durationHistogram,
		activeGauge:       activeGauge,
		filesHistogram:    filesHistogram,
		exportCounter:     exportCounter,
		exportBytes:       exportBytes,
	}, nil
}

// AnalysisStarted records a run entering the pipeline.
func (m *AnalysisMetrics) AnalysisStarted(ctx context.Context, files int) {
	m.startedCounter.Add(ctx, 1)
	m.activeGauge.Add(ctx, 1)
	m.filesHistogram.Record(ctx, int64(files))
}

// AnalysisCompleted records a run that produced insights.
func (m *AnalysisMetrics) AnalysisCompleted(ctx context.Context, d time.Duration) {
	m.completedCounter.Add(ctx, 1)
	m.durationHistogram.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("status", "completed")),
	)
	m.activeGauge.Add(ctx, -1)
}

// AnalysisFailed records a run that ended in error at stage
// (queue, parse, analyze, panic, or stale when a newer selection
// superseded it).
func (m *AnalysisMetrics) AnalysisFailed(ctx context.Context, stage string, d time.Duration) {
	m.failedCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
	m.durationHistogram.Record(ctx, d.Seconds(),
		metric.WithAttributes(
			attribute.String("status", "failed"),
			attribute.String("stage", stage),
		),
	)
	m.activeGauge.Add(ctx, -1)
}

// ExportCompleted records a produced export.
func (m *AnalysisMetrics) ExportCompleted(ctx context.Context, format core.ExportFormat, bytes int) {
	attrs := metric.WithAttributes(attribute.String("format", string(format)))
	m.exportCounter.Add(ctx, 1, attrs)
	m.exportBytes.Record(ctx, int64(bytes), attrs)
}

var _ core.Recorder = (*AnalysisMetrics)(nil)
