package tracing

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

var traceIDCtxKey = ctxKey{}

// WithTraceID attaches a fresh trace id unless ctx already carries one.
func WithTraceID(ctx context.Context) context.Context {
	if _, ok := ctx.Value(traceIDCtxKey).(string); ok {
		return ctx
	}

	return context.WithValue(ctx, traceIDCtxKey, generateTraceID())
}

// WithExistingTraceID reuses a caller supplied id (e.g. an X-Request-Id
// header) when it is a valid UUID, and generates a new one otherwise.
func WithExistingTraceID(ctx context.Context, traceID string) context.Context {
	if _, err := uuid.Parse(traceID); err != nil {
		return context.WithValue(ctx, traceIDCtxKey, generateTraceID())
	}

	return context.WithValue(ctx, traceIDCtxKey, traceID)
}

func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(traceIDCtxKey).(string)
	if !ok {
		return ""
	}

	return traceID
}

func generateTraceID() string {
	v, _ := uuid.NewV7()
	return v.String()
}
