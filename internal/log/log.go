// Package log 是 SDK 内部共享的日志出口，底层使用 zap。
package log

import (
	"sync/atomic"

	"github.com/magic-box/sandboxgw/conf"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(newDefaultLogger())
}

func newDefaultLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	level := zapcore.WarnLevel
	if conf.IsDebugMode() {
		level = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Sampling = nil
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l.Named("sandboxgw")
}

// SetLogger 替换全局 logger，传入 nil 时恢复默认配置。
// 默认 logger 输出 Warn 及以上级别，设置了 SANDBOX_DEBUG 时输出 Debug 及以上级别。
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = newDefaultLogger()
	}
	logger.Store(l)
}

// Logger 返回当前的全局 logger。
func Logger() *zap.Logger {
	return logger.Load()
}

func Debug(msg string, fields ...zap.Field) {
	Logger().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	Logger().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Logger().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	Logger().Error(msg, fields...)
}
