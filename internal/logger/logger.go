package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var Log = newLogger(os.Stdout, logrus.InfoLevel)

func newLogger(out io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	l.SetOutput(out)
	l.SetLevel(level)
	return l
}

// InitLogger 初始化日志器，未知级别回退到 info
func InitLogger(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log = newLogger(os.Stdout, lvl)
}

// SetOutput 重定向日志输出（CLI 模式写到 stderr）
func SetOutput(out io.Writer) {
	Log.SetOutput(out)
}

// WithField 带字段的日志条目
func WithField(key string, value interface{}) *logrus.Entry {
	return Log.WithField(key, value)
}

// WithFields 带多个字段的日志条目
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Log.WithFields(fields)
}

func Debug(args ...interface{}) {
	Log.Debug(args...)
}

func Debugf(format string, args ...interface{}) {
	Log.Debugf(format, args...)
}

func Info(args ...interface{}) {
	Log.Info(args...)
}

func Infof(format string, args ...interface{}) {
	Log.Infof(format, args...)
}

func Warn(args ...interface{}) {
	Log.Warn(args...)
}

func Warnf(format string, args ...interface{}) {
	Log.Warnf(format, args...)
}

func Error(args ...interface{}) {
	Log.Error(args...)
}

func Errorf(format string, args ...interface{}) {
	Log.Errorf(format, args...)
}

// Fatalf 格式化致命错误日志
func Fatalf(format string, args ...interface{}) {
	Log.Fatalf(format, args...)
}
