package crawler

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	OperationKey ContextKey = "op"
)

// ContextLogger decorates baseLogger with the request id and operation stored in ctx.
func ContextLogger(ctx context.Context, baseLogger *zap.Logger) *zap.Logger {
	logger := baseLogger

	if id := RequestID(ctx); id != "" {
		logger = logger.With(zap.String("request_id", id))
	}
	if op, ok := ctx.Value(OperationKey).(string); ok && op != "" {
		logger = logger.With(zap.String("op", op))
	}

	return logger
}

// WithRequest tags ctx with a fresh request id and the operation name,
// keeping an id that is already present.
func WithRequest(ctx context.Context, op string) context.Context {
	if RequestID(ctx) == "" {
		ctx = context.WithValue(ctx, RequestIDKey, uuid.NewString())
	}
	return context.WithValue(ctx, OperationKey, op)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
