// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
)

// ContextKey is the type for request-scoped values picked up by the logger.
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	TraceIDKey   ContextKey = "trace_id"
	TeamKey      ContextKey = "team"
)

// ctxHandler copies request-scoped values from the context onto each record.
type ctxHandler struct {
	slog.Handler
}

func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if rid, ok := ctx.Value(RequestIDKey).(string); ok {
		r.AddAttrs(slog.String("request_id", rid))
	}
	if tid, ok := ctx.Value(TraceIDKey).(string); ok {
		r.AddAttrs(slog.String("trace_id", tid))
	}
	if team, ok := ctx.Value(TeamKey).(bool); ok && team {
		r.AddAttrs(slog.Bool("team", true))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{Handler: h.Handler.WithGroup(name)}
}

// NewLogger writes JSON in production and logfmt-style text elsewhere.
func NewLogger(env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var base slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if env == "production" || env == "prod" {
		base = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(&ctxHandler{Handler: base})
}

// InitLogging builds the logger for env and makes it the slog default.
func InitLogging(env string) *slog.Logger {
	l := NewLogger(env)
	slog.SetDefault(l)
	return l
}

// WSLogger logs subscriber lifecycle events for one hub.
type WSLogger struct {
	hub string
}

func NewWSLogger(hubName string) *WSLogger {
	return &WSLogger{hub: hubName}
}

func (l *WSLogger) log(ctx context.Context, level slog.Level, msg, clientID, topic string, extra ...slog.Attr) {
	attrs := append([]slog.Attr{
		slog.String("hub", l.hub),
		slog.String("client_id", clientID),
		slog.String("topic", topic),
	}, extra...)
	slog.Default().LogAttrs(ctx, level, msg, attrs...)
}

func (l *WSLogger) LogConnect(ctx context.Context, clientID, topic string) {
	l.log(ctx, slog.LevelInfo, "subscriber joined", clientID, topic)
}

func (l *WSLogger) LogDisconnect(ctx context.Context, clientID, topic, reason string) {
	l.log(ctx, slog.LevelInfo, "subscriber left", clientID, topic, slog.String("reason", reason))
}

// LogError records a socket failure. stage names where it happened, e.g. "read".
func (l *WSLogger) LogError(ctx context.Context, clientID, topic string, err error, stage string) {
	l.log(ctx, slog.LevelError, "subscriber socket error", clientID, topic,
		slog.String("stage", stage),
		slog.Any("error", err),
	)
}
