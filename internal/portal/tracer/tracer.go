// Package tracer is the tracing seam used by the aggregator. Code depends on
// the Tracer interface; production wires the OpenTelemetry adapter and tests
// use NoopTracer.
package tracer

import (
	"context"
	"time"
)

// Span is an active trace span. End must be called exactly once.
type Span interface {
	// End completes the span and marks it failed when err is non-nil.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a key/value pair attached to a span or event.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: int64(value)}
}

func Float64(key string, value float64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanBuildView      = "portal.build_view"
	SpanCatalogSearch  = "portal.source.catalog"
	SpanMetricsFetch   = "portal.source.metrics"
	SpanWarehouseQuery = "portal.source.warehouse"
	SpanRefresh        = "portal.refresh"
)

// Attribute keys.
const (
	AttrRunMode       = "portal.run_mode"
	AttrScope         = "portal.scope"
	AttrDepartment    = "portal.department"
	AttrPeriod        = "portal.period"
	AttrSource        = "portal.source"
	AttrErrorCategory = "portal.error_category"
	AttrDatasetCount  = "portal.dataset_count"
	AttrErrorCount    = "portal.error_count"
)

// Event names.
const (
	EventSourceFailed    = "source.failed"
	EventBroadcastFailed = "refresh.broadcast_failed"
)
