package logger

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// New builds the root logger. Production output is JSON.
func New(level string, json bool) hclog.Logger {
	return NewWithOutput(level, json, os.Stderr)
}

// NewWithOutput is New with an explicit writer.
func NewWithOutput(level string, json bool, out io.Writer) hclog.Logger {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "movies",
		Level:      lvl,
		Output:     out,
		JSONFormat: json,
	})
}

// GormLogger implements gorm's logger.Interface on top of hclog.
type GormLogger struct {
	log           hclog.Logger
	slowThreshold time.Duration
}

// NewGormLogger wraps log for gorm.
func NewGormLogger(log hclog.Logger) *GormLogger {
	return &GormLogger{log: log.Named("gorm"), slowThreshold: 200 * time.Millisecond}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return l
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.log.Info(msg, "data", data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.log.Warn(msg, "data", data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.log.Error(msg, "data", data)
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		l.log.Error("query failed", "error", err, "sql", sql, "rows", rows, "elapsed", elapsed)
	case elapsed > l.slowThreshold:
		l.log.Warn("slow query", "sql", sql, "rows", rows, "elapsed", elapsed)
	default:
		l.log.Trace("query", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
