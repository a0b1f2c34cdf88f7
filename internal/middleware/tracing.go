package middleware

import (
	"fmt"

	"posterboard/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware opens a server span per request. The span is renamed to
// the matched route pattern once routing has run, so /api/pins/:id is one
// span name rather than one per pin.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		parent := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))

		ctx, span := observability.Tracer.Start(parent, c.Method(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(c.Method()),
				semconv.URLPath(c.Path()),
				semconv.ClientAddress(c.IP()),
			),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Locals("traceID", traceID)
		c.Set("X-Trace-ID", traceID)
		if rid := c.Locals("requestid"); rid != nil {
			span.SetAttributes(observability.AttrRequest.String(fmt.Sprint(rid)))
		}
		c.SetUserContext(ctx)

		err := c.Next()

		route := c.Route().Path
		span.SetName(c.Method() + " " + route)
		span.SetAttributes(
			semconv.HTTPRoute(route),
			attribute.Int("http.response.status_code", c.Response().StatusCode()),
			observability.AttrTeam.Bool(IsTeam(c)),
		)
		if id := c.Params("id"); id != "" {
			span.SetAttributes(observability.AttrPinID.String(id))
		}
		if err != nil {
			span.RecordError(err)
		}
		if c.Response().StatusCode() >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, "server error")
		}
		return err
	}
}
