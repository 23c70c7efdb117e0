package reqlog

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Extractor contributes extra fields to a record. It runs inline once the
// handler has returned and must neither block nor modify the state.
type Extractor interface {
	Extract(ctx context.Context, state *State) map[string]any
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, state *State) map[string]any

// Extract calls f(ctx, state).
func (f ExtractorFunc) Extract(ctx context.Context, state *State) map[string]any {
	return f(ctx, state)
}

// Trace field names.
const (
	FieldTraceID = "trace_id"
	FieldSpanID  = "span_id"
)

// TraceExtractor adds the trace and span id of the active OpenTelemetry span.
var TraceExtractor = ExtractorFunc(func(ctx context.Context, _ *State) map[string]any {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return map[string]any{
		FieldTraceID: sc.TraceID().String(),
		FieldSpanID:  sc.SpanID().String(),
	}
})
