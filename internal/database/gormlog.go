package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultSlowQuery = 200 * time.Millisecond

// QueryLogger routes gorm's logging through slog. Record-not-found is not an
// error on the board: unknown pin ids surface as 404s, not log noise.
type QueryLogger struct {
	log   *slog.Logger
	level logger.LogLevel
	slow  time.Duration
}

func NewQueryLogger(l *slog.Logger) *QueryLogger {
	return &QueryLogger{log: l, level: logger.Warn, slow: defaultSlowQuery}
}

func (q *QueryLogger) Level() logger.LogLevel { return q.level }

func (q *QueryLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *q
	cp.level = level
	return &cp
}

func (q *QueryLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	q.emit(ctx, logger.Info, slog.LevelInfo, msg, args)
}

func (q *QueryLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	q.emit(ctx, logger.Warn, slog.LevelWarn, msg, args)
}

func (q *QueryLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	q.emit(ctx, logger.Error, slog.LevelError, msg, args)
}

func (q *QueryLogger) emit(ctx context.Context, at logger.LogLevel, lvl slog.Level, msg string, args []interface{}) {
	if q.level < at {
		return
	}
	q.log.Log(ctx, lvl, fmt.Sprintf(msg, args...))
}

func (q *QueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= logger.Silent {
		return
	}
	took := time.Since(begin)

	var (
		lvl slog.Level
		msg string
	)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && q.level >= logger.Error:
		lvl, msg = slog.LevelError, "sql failed"
	case q.slow > 0 && took > q.slow && q.level >= logger.Warn:
		lvl, msg = slog.LevelWarn, "sql slow"
	case q.level >= logger.Info:
		lvl, msg = slog.LevelInfo, "sql"
	default:
		return
	}

	stmt, rows := fc()
	attrs := []slog.Attr{
		slog.String("sql", stmt),
		slog.Int64("rows", rows),
		slog.Duration("took", took),
	}
	if lvl == slog.LevelError {
		attrs = append(attrs, slog.Any("error", err))
	}
	q.log.LogAttrs(ctx, lvl, msg, attrs...)
}
