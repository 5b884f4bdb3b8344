package middleware

import (
	"fmt"

	"campusfind/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func requestAttributes(c *fiber.Ctx) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("http.method", c.Method()),
		attribute.String("http.path", c.Path()),
		attribute.String("http.url", c.OriginalURL()),
		attribute.String("http.ip", c.IP()),
		attribute.String("http.user_agent", c.Get("User-Agent")),
	}
}

// TracingMiddleware opens one server span per request, continues any trace
// the caller propagated, and echoes the trace ID back in X-Trace-ID so
// front-desk bug reports can cite it.
func TracingMiddleware() fiber.Handler {
	propagator := otel.GetTextMapPropagator()

	return func(c *fiber.Ctx) error {
		ctx := propagator.Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))
		ctx, span := observability.Tracer.Start(ctx,
			c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(requestAttributes(c)...),
		)
		defer span.End()

		spanCtx := span.SpanContext()
		c.Locals("traceID", spanCtx.TraceID().String())
		c.Locals("spanID", spanCtx.SpanID().String())
		c.Set("X-Trace-ID", spanCtx.TraceID().String())
		if requestID := c.Locals("requestid"); requestID != nil {
			span.SetAttributes(attribute.String("request.id", fmt.Sprint(requestID)))
		}

		c.SetUserContext(ctx)
		err := c.Next()

		tail := []attribute.KeyValue{
			attribute.Int("http.status_code", c.Response().StatusCode()),
		}
		if err != nil {
			span.RecordError(err)
			tail = append(tail, attribute.String("error", err.Error()))
		}
		// Auth runs inside c.Next(), so the actor is only known now.
		if userID := c.Locals("userID"); userID != nil {
			tail = append(tail, attribute.String("user.id", fmt.Sprint(userID)))
		}
		span.SetAttributes(tail...)

		return err
	}
}
