package logging

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey int

const traceIDKey ctxKey = iota

// NewTraceID returns a fresh request identifier.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID stores the trace ID on the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID returns the context's trace ID, or "" when none was set.
func TraceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return ""
}
