package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	metricsdk "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// ForTest records spans and metrics in memory.
type ForTest interface {
	Telemetry
	Spans() tracetest.SpanStubs
	SpanNames() []string
	MetricNames(t *testing.T) []string
	Metric(t *testing.T, name string) (metricdata.Metrics, bool)
}

type forTest struct {
	Telemetry
	spans   *tracetest.SpanRecorder
	metrics *metricsdk.ManualReader
}

func NewForTest(t *testing.T) ForTest {
	t.Helper()

	spans := tracetest.NewSpanRecorder()
	metrics := metricsdk.NewManualReader()
	tp := tracesdk.NewTracerProvider(tracesdk.WithSpanProcessor(spans))
	mp := metricsdk.NewMeterProvider(metricsdk.WithReader(metrics))
	t.Cleanup(func() {
		// The test context is already canceled
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	return &forTest{Telemetry: New(tp, mp), spans: spans, metrics: metrics}
}

// Spans returns ended spans in the order they ended.
func (v *forTest) Spans() tracetest.SpanStubs {
	return tracetest.SpanStubsFromReadOnlySpans(v.spans.Ended())
}

func (v *forTest) SpanNames() (out []string) {
	for _, s := range v.Spans() {
		out = append(out, s.Name)
	}
	return out
}

func (v *forTest) MetricNames(t *testing.T) (out []string) {
	t.Helper()
	for _, m := range v.collect(t) {
		out = append(out, m.Name)
	}
	return out
}

func (v *forTest) Metric(t *testing.T, name string) (metricdata.Metrics, bool) {
	t.Helper()
	for _, m := range v.collect(t) {
		if m.Name == name {
			return m, true
		}
	}
	return metricdata.Metrics{}, false
}

func (v *forTest) collect(t *testing.T) (out []metricdata.Metrics) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, v.metrics.Collect(t.Context(), &rm))
	for _, sm := range rm.ScopeMetrics {
		out = append(out, sm.Metrics...)
	}
	return out
}
