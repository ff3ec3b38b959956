package logger

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger 将 gorm 的日志写入全局日志器
type GormLogger struct {
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration
}

// NewGormLogger 创建 gorm 日志桥接
func NewGormLogger(level gormlogger.LogLevel) *GormLogger {
	return &GormLogger{Level: level, SlowThreshold: 200 * time.Millisecond}
}

func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *g
	cp.Level = level
	return &cp
}

func (g *GormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if g.Level >= gormlogger.Info {
		Info("[gorm] "+msg, args...)
	}
}

func (g *GormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if g.Level >= gormlogger.Warn {
		Warn("[gorm] "+msg, args...)
	}
}

func (g *GormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if g.Level >= gormlogger.Error {
		Error("[gorm] "+msg, args...)
	}
}

func (g *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.Level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	// 记录不存在属于正常业务分支
	case err != nil && g.Level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		Error("[gorm] %v [%s] rows=%d sql=%s", err, elapsed, rows, sql)
	case g.SlowThreshold > 0 && elapsed > g.SlowThreshold && g.Level >= gormlogger.Warn:
		sql, rows := fc()
		Warn("[gorm] slow query [%s] rows=%d sql=%s", elapsed, rows, sql)
	case g.Level >= gormlogger.Info:
		sql, rows := fc()
		Debug("[gorm] [%s] rows=%d sql=%s", elapsed, rows, sql)
	}
}
