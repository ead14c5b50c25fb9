package logs

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	gormlogger "gorm.io/gorm/logger"
)

// Logger 全局日志实例，Init 之前使用默认配置
var Logger = logrus.New()

// Options 日志初始化参数
type Options struct {
	Level  string // trace|debug|info|warning|error|fatal
	Format string // text|json
	Output io.Writer
}

// Init 按配置重新初始化全局日志
func Init(opts Options) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(ParseLevel(opts.Level))

	if opts.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if opts.Output != nil {
		l.SetOutput(opts.Output)
	} else {
		l.SetOutput(os.Stdout)
	}

	Logger = l
	return l
}

// ParseLevel 解析日志级别，未知值按 info 处理
func ParseLevel(level string) logrus.Level {
	l, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return l
}

// GormLevel 根据应用日志级别选择 GORM 日志级别
func GormLevel(level logrus.Level) gormlogger.LogLevel {
	switch {
	case level >= logrus.DebugLevel:
		return gormlogger.Info
	case level >= logrus.WarnLevel:
		return gormlogger.Warn
	case level >= logrus.ErrorLevel:
		return gormlogger.Error
	default:
		return gormlogger.Silent
	}
}

// GormLogger 把 GORM 日志输出到全局 logrus
func GormLogger() gormlogger.Interface {
	return gormlogger.New(Logger, gormlogger.Config{
		LogLevel:                  GormLevel(Logger.GetLevel()),
		IgnoreRecordNotFoundError: true,
	})
}
