package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// contextKey is a type for context keys to avoid collisions.
type contextKey string

const (
	loggerContextKey    = contextKey("reqlog.logger")
	requestIDContextKey = contextKey("reqlog.request_id")
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext extracts a logger from the context and tags it with the
// request id when one is present. If no logger is found, a default
// stderr logger is returned.
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(loggerContextKey).(*Logger)
	if !ok {
		logger = New(defaultLogConfig())
	}

	if requestID := GetRequestID(ctx); requestID != "" {
		return logger.WithFields(map[string]any{EventID: requestID})
	}
	return logger
}

// WithRequestID adds the request correlation id to the context.
// The request logger stores each request's event_id here.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// GetRequestID retrieves the request correlation id from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDContextKey).(string); ok {
		return requestID
	}
	return ""
}

// Ctx returns the zerolog.Logger for ctx, see FromContext.
func Ctx(ctx context.Context) *zerolog.Logger {
	return FromContext(ctx).GetZerolog()
}
