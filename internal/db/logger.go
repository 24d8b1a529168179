package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

const defaultSlowQuery = 200 * time.Millisecond

// queryLogger routes GORM's output through zap. Statements executed inside an
// HTTP request carry the request id so they can be correlated with the access
// log.
type queryLogger struct {
	log       *zap.Logger
	level     gormlogger.LogLevel
	slowQuery time.Duration
}

func newQueryLogger(log *zap.Logger, level gormlogger.LogLevel, slowQuery time.Duration) gormlogger.Interface {
	if level == 0 {
		level = gormlogger.Warn
	}
	if slowQuery == 0 {
		slowQuery = defaultSlowQuery
	}
	return &queryLogger{
		log:       log.WithOptions(zap.AddCallerSkip(3)),
		level:     level,
		slowQuery: slowQuery,
	}
}

// LogMode is called by GORM for per-statement overrides such as db.Debug().
func (l *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	c.level = level
	return &c
}

func (l *queryLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.with(ctx).Info(fmt.Sprintf(msg, args...))
	}
}

func (l *queryLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.with(ctx).Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *queryLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.with(ctx).Error(fmt.Sprintf(msg, args...))
	}
}

// Trace logs one executed statement. Missing records are never logged. Failed
// statements go out at warn; the request layer logs the resulting error.
func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	stmt, rows := fc()
	fields := []zap.Field{
		zap.String("sql", stmt),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("caller", utils.FileWithLineNum()),
	}
	log := l.with(ctx)

	switch {
	case err != nil && errors.Is(err, gorm.ErrRecordNotFound):
		return
	case err != nil && l.level >= gormlogger.Error:
		log.Warn("query failed", append(fields, zap.Error(err))...)
	case l.slowQuery > 0 && elapsed > l.slowQuery && l.level >= gormlogger.Warn:
		log.Warn("slow query", fields...)
	case l.level >= gormlogger.Info:
		log.Debug("query", fields...)
	}
}

func (l *queryLogger) with(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return l.log
	}
	if id := middleware.GetReqID(ctx); id != "" {
		return l.log.With(zap.String("request_id", id))
	}
	return l.log
}
