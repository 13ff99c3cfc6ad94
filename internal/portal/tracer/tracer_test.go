package tracer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNoopTracer(t *testing.T) {
	ctx := context.Background()
	newCtx, span := NewNoop().Start(ctx, SpanBuildView, String(AttrRunMode, "live"))

	assert.Equal(t, ctx, newCtx)
	require.NotNil(t, span)
	span.SetAttributes(Int(AttrDatasetCount, 3))
	span.AddEvent(EventSourceFailed, String(AttrSource, "DataHub"))
	span.End(errors.New("boom"))
}

func TestOTelTracerWithNoopProvider(t *testing.T) {
	tr := NewOTel(WithOTelTracer(noop.NewTracerProvider().Tracer("test")))
	_, span := tr.Start(context.Background(), SpanCatalogSearch, String(AttrScope, "central"))
	require.NotNil(t, span)
	span.SetAttributes(Bool("cache.hit", true))
	span.End(errors.New("source failed"))
}

func TestToOTelAttributes(t *testing.T) {
	got := toOTelAttributes([]Attribute{
		String("s", "v"),
		Bool("b", true),
		Int("i", 7),
		Float64("f", 1.5),
		Duration("d", 150*time.Millisecond),
		{Key: "skipped", Value: struct{}{}},
	})

	assert.Equal(t, []attribute.KeyValue{
		attribute.String("s", "v"),
		attribute.Bool("b", true),
		attribute.Int64("i", 7),
		attribute.Float64("f", 1.5),
		attribute.Int64("d", 150),
	}, got)
	assert.Nil(t, toOTelAttributes(nil))
}
