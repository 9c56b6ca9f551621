package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func TestNewTracerProviderDisabled(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())

	// Shutdown on a no-op provider must not fail
	assert.NoError(t, tp.Shutdown(context.Background()))

	// Tracer still works, backed by the global no-op provider
	tracer := tp.Tracer("test")
	_, span := tracer.Start(context.Background(), "noop")
	span.End()
}

func TestStartSpan(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "sync.run",
		WithAttribute("channel", "Shopify"),
		WithAttribute("records", 42),
		WithSpanKind(trace.SpanKindClient))
	defer span.End()

	require.NotNil(t, ctx)
	require.NotNil(t, span)
	RecordError(span, errors.New("fetch failed"))
	RecordError(span, nil)
}

func TestToAttribute(t *testing.T) {
	assert.Equal(t, attribute.String("k", "v"), toAttribute("k", "v"))
	assert.Equal(t, attribute.Int("k", 1), toAttribute("k", 1))
	assert.Equal(t, attribute.Int64("k", int64(2)), toAttribute("k", int64(2)))
	assert.Equal(t, attribute.Float64("k", 1.5), toAttribute("k", 1.5))
	assert.Equal(t, attribute.Bool("k", true), toAttribute("k", true))
	assert.Equal(t, attribute.String("k", "[1 2]"), toAttribute("k", []int{1, 2}))
}
