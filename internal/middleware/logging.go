package middleware

import (
	"context"
	"log/slog"
	"os"
	"time"

	"campusfind/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Logger is the process-wide structured logger. Every record is enriched
// with request correlation fields by the context-aware handler below.
var Logger *slog.Logger

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
	TraceIDKey   contextKey = "trace_id"
)

// correlatedHandler copies correlation IDs out of the context onto each
// record, so deep layers (repositories, the notification dispatcher) log
// traceable lines without threading fields manually.
type correlatedHandler struct {
	slog.Handler
}

func (h *correlatedHandler) Handle(ctx context.Context, r slog.Record) error {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		r.AddAttrs(slog.String("request_id", requestID))
	}
	if userID, ok := ctx.Value(UserIDKey).(uint); ok {
		r.AddAttrs(slog.Uint64("user_id", uint64(userID)))
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		r.AddAttrs(slog.String("trace_id", traceID))
	}
	return h.Handler.Handle(ctx, r)
}

func init() {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	// JSON lines in production for the log pipeline, text locally.
	var inner slog.Handler
	if os.Getenv("APP_ENV") == "production" {
		inner = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		inner = slog.NewTextHandler(os.Stdout, opts)
	}

	Logger = slog.New(&correlatedHandler{inner}).With(
		slog.String("service", "campusfind-api"),
	)
}

// ContextMiddleware copies request ID, user ID and trace ID from Fiber
// locals into the request context, where the correlated handler finds them.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if requestID, ok := c.Locals("requestid").(string); ok {
			ctx = context.WithValue(ctx, RequestIDKey, requestID)
			// The request ID doubles as the correlation ID for work the
			// request hands off to background goroutines.
			ctx = observability.WithCorrelationID(ctx, requestID)
		}
		// userID is only present once auth ran; public browsing of item
		// reports logs without it.
		if userID, ok := c.Locals("userID").(uint); ok {
			ctx = context.WithValue(ctx, UserIDKey, userID)
		}
		if traceID, ok := c.Locals("traceID").(string); ok {
			ctx = context.WithValue(ctx, TraceIDKey, traceID)
		}

		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger logs one line per request after it completes.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		attrs := []any{
			slog.Int("status", c.Response().StatusCode()),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
			slog.String("user_agent", c.Get("User-Agent")),
		}

		// The *Context variants let the correlated handler attach
		// request_id/user_id/trace_id.
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
			Logger.ErrorContext(c.UserContext(), "request failed", attrs...)
		} else {
			Logger.InfoContext(c.UserContext(), "request completed", attrs...)
		}

		return err
	}
}
