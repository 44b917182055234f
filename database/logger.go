package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// slowQuery is the duration above which queries are logged as warnings.
const slowQuery = 200 * time.Millisecond

// Zap returns the logger used for database diagnostics.
// Only warnings and errors are written.
func Zap() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

var _ logger.Interface = (*GORMLogger)(nil)

// GORMLogger adapts a zap logger to GORM's logger interface.
type GORMLogger struct {
	zap   *zap.Logger
	level logger.LogLevel
}

func NewGORMLogger(lgr *zap.Logger) *GORMLogger {
	return &GORMLogger{zap: lgr.WithOptions(zap.AddCallerSkip(3)), level: logger.Warn}
}

func (l *GORMLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &GORMLogger{zap: l.zap, level: level}
}

func (l *GORMLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Info {
		l.zap.Sugar().Infof(msg, args...)
	}
}

func (l *GORMLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Warn {
		l.zap.Sugar().Warnf(msg, args...)
	}
}

func (l *GORMLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Error {
		l.zap.Sugar().Errorf(msg, args...)
	}
}

func (l *GORMLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.zap.Error("query failed", zap.Error(err), zap.Duration("elapsed", elapsed), zap.Int64("rows", rows), zap.String("sql", sql))
	case elapsed > slowQuery && l.level >= logger.Warn:
		sql, rows := fc()
		l.zap.Warn(fmt.Sprintf("slow query >= %v", slowQuery), zap.Duration("elapsed", elapsed), zap.Int64("rows", rows), zap.String("sql", sql))
	case l.level >= logger.Info:
		sql, rows := fc()
		l.zap.Debug("query", zap.Duration("elapsed", elapsed), zap.Int64("rows", rows), zap.String("sql", sql))
	}
}
