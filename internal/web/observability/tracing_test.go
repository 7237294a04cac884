package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracingInstallsProvider(t *testing.T) {
	prevProvider := otel.GetTracerProvider()
	prevPropagator := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
	})

	recorder := tracetest.NewSpanRecorder()
	shutdown, err := InitTracing(context.Background(), "quickvideo-web", "test", sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "startup-check")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.True(t, spans[0].SpanContext().IsSampled())

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Resource().Attributes() {
		attrs[kv.Key] = kv.Value
	}
	require.Equal(t, "quickvideo-web", attrs["service.name"].AsString())
	require.Equal(t, "test", attrs["deployment.environment"].AsString())
	require.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")

	require.NoError(t, shutdown(context.Background()))
}
