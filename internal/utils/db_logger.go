package utils

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SweepQueryPatterns match the queries the background sweeps issue every tick.
// They are noise at info level and only logged when slow or failing.
var SweepQueryPatterns = []string{
	`FROM "reminder" WHERE status =`,
	`FROM "purchase" WHERE archived =`,
}

// GormLogger writes gorm traces to slog, dropping routine sweep queries
type GormLogger struct {
	logger        *slog.Logger
	level         logger.LogLevel
	slowThreshold time.Duration
	ignored       []string
}

func NewGormLogger(l *slog.Logger, slowThreshold time.Duration, ignoredPatterns ...string) *GormLogger {
	return &GormLogger{
		logger:        l.With("component", "gorm"),
		level:         logger.Info,
		slowThreshold: slowThreshold,
		ignored:       ignoredPatterns,
	}
}

// LogMode implements logger.Interface
func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	next := *l
	next.level = level
	return &next
}

func (l *GormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Info {
		l.logger.InfoContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Warn {
		l.logger.WarnContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Error {
		l.logger.ErrorContext(ctx, fmt.Sprintf(msg, args...))
	}
}

// Trace implements logger.Interface
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()

	attrs := []any{"elapsed", elapsed, "rows", rows, "sql", sql}
	if caller := findCaller(); caller != "" {
		attrs = append(attrs, "caller", caller)
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error:
		l.logger.ErrorContext(ctx, "query failed", append(attrs, "error", err)...)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= logger.Warn:
		l.logger.WarnContext(ctx, "slow query", attrs...)
	case l.level >= logger.Info && !l.isIgnored(sql):
		l.logger.DebugContext(ctx, "query", attrs...)
	}
}

func (l *GormLogger) isIgnored(sql string) bool {
	for _, pattern := range l.ignored {
		if strings.Contains(sql, pattern) {
			return true
		}
	}
	return false
}

// findCaller returns the first stack frame outside gorm and the database plumbing
func findCaller() string {
	for i := 2; i < 15; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if strings.Contains(file, "gorm.io") ||
			strings.Contains(file, "internal/database") ||
			strings.Contains(file, "internal/utils/db_logger.go") {
			continue
		}

		if fn := runtime.FuncForPC(pc); fn != nil {
			name := fn.Name()
			if idx := strings.LastIndexByte(name, '.'); idx != -1 {
				name = name[idx+1:]
			}
			return fmt.Sprintf("%s() at %s:%d", name, file, line)
		}
		return fmt.Sprintf("%s:%d", file, line)
	}
	return ""
}
