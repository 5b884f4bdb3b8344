// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// correlationKey is the context key for the correlation ID that follows an
// operation from the HTTP request into background goroutines.
type correlationKey struct{}

// GenerateCorrelationID mints a fresh correlation ID for work that did not
// originate from an HTTP request, such as seed runs and timers.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID attaches the correlation ID to the context. An empty ID
// leaves the context unchanged.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// ExtractCorrelationID returns the correlation ID carried by ctx, or "".
func ExtractCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}

// asyncLogger emits JSON so background failures land in the same pipeline
// as request logs even when the request-scoped logger is out of reach.
var asyncLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

// LogAsyncOperationError reports a failure on a fire-and-forget path, such
// as notification delivery or a contact-thread fan-out. The caller has
// already moved on, so this log line is the only trace of the failure.
func LogAsyncOperationError(ctx context.Context, operation string, err error, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("error", err.Error()),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	asyncLogger.ErrorContext(ctx, "background operation failed", attrs...)
}
