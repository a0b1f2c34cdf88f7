// Package middleware provides request logging, tracing, rate limiting and
// team gate middleware for the board API.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"posterboard/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// ContextMiddleware copies the request and trace ids from fiber locals into
// the user context, where the slog handler finds them.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if rid, ok := c.Locals("requestid").(string); ok {
			ctx = context.WithValue(ctx, observability.RequestIDKey, rid)
		}
		if tid, ok := c.Locals("traceID").(string); ok {
			ctx = context.WithValue(ctx, observability.TraceIDKey, tid)
		}

		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger logs one line per request. Server errors log at error,
// client errors at warn, everything else at info.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		began := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []slog.Attr{
			slog.String("method", c.Method()),
			slog.String("route", c.Route().Path),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(began)),
			slog.String("ip", c.IP()),
		}
		if ua := c.Get(fiber.HeaderUserAgent); ua != "" {
			attrs = append(attrs, slog.String("user_agent", ua))
		}

		level, msg := slog.LevelInfo, "request"
		switch {
		case err != nil || status >= fiber.StatusInternalServerError:
			level, msg = slog.LevelError, "request failed"
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}
		case status >= fiber.StatusBadRequest:
			level = slog.LevelWarn
		}
		slog.Default().LogAttrs(c.UserContext(), level, msg, attrs...)
		return err
	}
}
