package metrics

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/JonMunkholm/csvinsight/internal/core"
)

func newTestMetrics(t *testing.T) (*AnalysisMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewAnalysisMetrics(mp)
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

// sumValue totals an int64 sum, optionally restricted to points carrying attr.
func sumValue(t *testing.T, data metricdata.Aggregation, attr ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)

	var total int64
	for _, dp := range sum.DataPoints {
		match := true
		for _, kv := range attr {
			if v, ok := dp.Attributes.Value(kv.Key); !ok || v.Emit() != kv.Value.Emit() {
				match = false
			}
		}
		if match {
			total += dp.Value
		}
	}
	return total
}

func TestAnalysisMetrics_Creation(t *testing.T) {
	m, err := NewAnalysisMetrics(nil)
	require.NoError(t, err)
	assert.NotNil(t, m.startedCounter)
	assert.NotNil(t, m.completedCounter)
	assert.NotNil(t, m.failedCounter)
	assert.NotNil(t, m.durationHistogram)
	assert.NotNil(t, m.activeGauge)
	assert.NotNil(t, m.exportCounter)
}

func TestAnalysisMetrics_Record(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.AnalysisStarted(ctx, 2)
	m.AnalysisCompleted(ctx, 3*time.Second)
	m.AnalysisStarted(ctx, 1)
	m.AnalysisFailed(ctx, "parse", 100*time.Millisecond)
	m.AnalysisStarted(ctx, 1)
	m.AnalysisFailed(ctx, "stale", 50*time.Millisecond)
	m.AnalysisStarted(ctx, 3)
	m.ExportCompleted(ctx, core.ExportXLSX, 2048)

	data := collect(t, reader)

	assert.Equal(t, int64(4), sumValue(t, data["csvinsight.analyses.started"]))
	assert.Equal(t, int64(1), sumValue(t, data["csvinsight.analyses.completed"]))
	assert.Equal(t, int64(2), sumValue(t, data["csvinsight.analyses.failed"]))
	assert.Equal(t, int64(1), sumValue(t, data["csvinsight.analyses.failed"], attribute.String("stage", "stale")))
	assert.Equal(t, int64(1), sumValue(t, data["csvinsight.analyses.active"]), "one run still in flight")
	assert.Equal(t, int64(1), sumValue(t, data["csvinsight.exports"], attribute.String("format", string(core.ExportXLSX))))

	hist, ok := data["csvinsight.analysis.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}

func TestAnalysisMetrics_ActiveReturnsToZero(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	for range 3 {
		m.AnalysisStarted(ctx, 1)
	}
	m.AnalysisCompleted(ctx, time.Second)
	m.AnalysisFailed(ctx, "analyze", time.Second)
	m.AnalysisFailed(ctx, "stale", time.Second)

	assert.Equal(t, int64(0), sumValue(t, collect(t, reader)["csvinsight.analyses.active"]))
}

func TestInitMeter(t *testing.T) {
	t.Run("disabled is a no-op", func(t *testing.T) {
		shutdown, err := InitMeter(false, nil, time.Minute)
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))
	})

	t.Run("enabled exports on shutdown", func(t *testing.T) {
		prev := otel.GetMeterProvider()
		t.Cleanup(func() { otel.SetMeterProvider(prev) })

		var buf bytes.Buffer
		shutdown, err := InitMeter(true, &buf, time.Hour)
		require.NoError(t, err)

		m, err := NewAnalysisMetrics(nil)
		require.NoError(t, err)
		m.AnalysisStarted(context.Background(), 1)

		require.NoError(t, shutdown(context.Background()))
		assert.Contains(t, buf.String(), "csvinsight.analyses.started")
	})
}

func TestInitTracer(t *testing.T) {
	t.Run("disabled is a no-op", func(t *testing.T) {
		shutdown, err := InitTracer(false, nil)
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))
	})

	t.Run("enabled exports spans on shutdown", func(t *testing.T) {
		prev := otel.GetTracerProvider()
		t.Cleanup(func() { otel.SetTracerProvider(prev) })

		var buf bytes.Buffer
		shutdown, err := InitTracer(true, &buf)
		require.NoError(t, err)

		_, span := otel.Tracer("test").Start(context.Background(), "analyze")
		span.End()

		require.NoError(t, shutdown(context.Background()))
		assert.Contains(t, buf.String(), `"Name": "analyze"`)
	})
}
