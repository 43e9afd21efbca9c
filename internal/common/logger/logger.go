package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var root = newRoot()

func newRoot() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	return l
}

// Logger is a logrus entry with printf-style helpers. Every component owns one
// carrying its "mod" field.
type Logger struct {
	*logrus.Entry
}

func InitLogger(level string, fields map[string]string) *Logger {
	f := logrus.Fields{}
	for k, v := range fields {
		f[k] = v
	}
	if level != "" {
		ParseLogLevel(level)
	}
	return &Logger{Entry: root.WithFields(f)}
}

// ParseLogLevel sets the process wide level and returns it. Unknown names
// fall back to info.
func ParseLogLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	root.SetLevel(lvl)
	return lvl
}

// SetFormat selects "json" or "text" output.
func SetFormat(format string) {
	switch strings.ToLower(format) {
	case "json":
		root.SetFormatter(&logrus.JSONFormatter{})
	default:
		root.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}
}

// With returns a child logger carrying an extra field.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}

func (l *Logger) Debug(format string, args ...any) { l.Entry.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.Entry.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.Entry.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...any) { l.Entry.Errorf(format, args...) }
func (l *Logger) Fatal(format string, args ...any) { l.Entry.Fatalf(format, args...) }
