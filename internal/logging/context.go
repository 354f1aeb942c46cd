package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Context key types
type runCtxKey struct{}
type cycleCtxKey struct{}

// WithRunID attaches a run identifier to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runCtxKey{}, runID)
}

// RunIDFromContext returns the run identifier, or "".
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runCtxKey{}).(string)
	return id
}

// WithCycle attaches the current cycle index to the context.
func WithCycle(ctx context.Context, cycle int) context.Context {
	return context.WithValue(ctx, cycleCtxKey{}, cycle)
}

// CycleFromContext returns the cycle index and whether one was set.
func CycleFromContext(ctx context.Context) (int, bool) {
	cycle, ok := ctx.Value(cycleCtxKey{}).(int)
	return cycle, ok
}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 4)

	// Trace correlation (from OpenTelemetry)
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}

	if runID := RunIDFromContext(ctx); runID != "" {
		fields = append(fields, zap.String("run_id", runID))
	}
	if cycle, ok := CycleFromContext(ctx); ok {
		fields = append(fields, zap.Int("cycle", cycle))
	}

	return fields
}
