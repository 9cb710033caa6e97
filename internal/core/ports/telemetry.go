package ports

import (
	"context"
	"time"
)

//go:generate mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks

// Tracer is the entry point for creating spans.
type Tracer interface {
	// Start creates a new span.
	Start(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span)
	// EmitPlan signals that a set of packages is about to be resolved.
	EmitPlan(ctx context.Context, names []string)
}

// Span represents a unit of work.
type Span interface {
	// End completes the span.
	End()
	// RecordError records an error for the span.
	RecordError(err error)
	// SetAttribute adds a key-value pair to the span.
	SetAttribute(key string, value any)
}

// SpanConfig holds configuration for a starting span.
type SpanConfig struct {
	// Stage marks spans that wrap a pipeline stage rather than a single package.
	Stage bool
}

// SpanOption is a functional option for configuring a span.
type SpanOption func(*SpanConfig)

// AsStage marks the span as a pipeline stage.
func AsStage() SpanOption {
	return func(c *SpanConfig) {
		c.Stage = true
	}
}

// ProgressReporter receives span lifecycle events and presents them to the user.
// It decouples telemetry collection from presentation.
type ProgressReporter interface {
	// OnPlanEmit is called with the display names of all packages about to be resolved.
	OnPlanEmit(names []string)

	// OnTaskStart is called when a span begins.
	OnTaskStart(spanID, parentID, name string, startTime time.Time)

	// OnTaskComplete is called when a span ends. err is nil on success.
	OnTaskComplete(spanID string, endTime time.Time, err error)
}
