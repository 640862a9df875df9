package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQueryThreshold is used when GormLoggerConfig leaves SlowThreshold at zero
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// GormLoggerConfig controls what the GORM logger reports
type GormLoggerConfig struct {
	Level gormlogger.LogLevel
	// SlowThreshold marks queries as slow; negative disables slow query reporting
	SlowThreshold time.Duration
	// LogRecordNotFound reports lookups that found no row. Missing calc
	// configs and commission rules are routine, so it is off by default.
	LogRecordNotFound bool
}

// GormLogger routes GORM output to zap, tagging each statement with the
// request, agency and booking it ran for
type GormLogger struct {
	log *zap.Logger
	cfg GormLoggerConfig
}

var _ gormlogger.Interface = (*GormLogger)(nil)

// NewGormLogger creates a GORM logger backed by log
func NewGormLogger(log *zap.Logger, cfg GormLoggerConfig) *GormLogger {
	if cfg.SlowThreshold == 0 {
		cfg.SlowThreshold = DefaultSlowQueryThreshold
	}
	return &GormLogger{log: log.Named("gorm"), cfg: cfg}
}

// LogMode returns a copy logging at level
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.cfg.Level = level
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.message(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.message(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.message(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) message(ctx context.Context, at gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.cfg.Level < at {
		return
	}
	if ce := l.log.Check(lvl, fmt.Sprintf(msg, data...)); ce != nil {
		ce.Write(scopeFields(ctx)...)
	}
}

// Trace reports one statement: failures at error, slow statements at warn
// and everything else at debug when the level is Info.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.cfg.Level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	var (
		lvl zapcore.Level
		msg string
	)
	switch {
	case err != nil:
		if l.cfg.Level < gormlogger.Error {
			return
		}
		if errors.Is(err, gormlogger.ErrRecordNotFound) && !l.cfg.LogRecordNotFound {
			return
		}
		lvl, msg = zapcore.ErrorLevel, "SQL failed"
	case l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold:
		if l.cfg.Level < gormlogger.Warn {
			return
		}
		lvl, msg = zapcore.WarnLevel, "SQL slow"
	default:
		if l.cfg.Level < gormlogger.Info {
			return
		}
		lvl, msg = zapcore.DebugLevel, "SQL"
	}

	ce := l.log.Check(lvl, msg)
	if ce == nil {
		return
	}
	sql, rows := fc()
	fields := append(scopeFields(ctx),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	)
	if lvl == zapcore.WarnLevel {
		fields = append(fields, zap.Duration("threshold", l.cfg.SlowThreshold))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	ce.Write(fields...)
}

func scopeFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)
	for _, kv := range [][2]string{
		{"request_id", GetRequestID(ctx)},
		{"agency_id", GetAgencyID(ctx)},
		{"booking_id", GetBookingID(ctx)},
	} {
		if kv[1] != "" {
			fields = append(fields, zap.String(kv[0], kv[1]))
		}
	}
	return fields
}

// MapGormLogLevel derives the GORM level from the application log level.
// Statement tracing only happens at debug; unknown levels behave like warn.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "silent" {
		return gormlogger.Silent
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return gormlogger.Warn
	}
	switch {
	case lvl <= zapcore.DebugLevel:
		return gormlogger.Info
	case lvl <= zapcore.WarnLevel:
		return gormlogger.Warn
	default:
		return gormlogger.Error
	}
}
