package server

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/sirupsen/logrus"
)

// Logger 把 kratos 的日志转发到 logrus
type Logger struct {
	log logrus.FieldLogger
}

var _ log.Logger = (*Logger)(nil)

func NewLogger(l logrus.FieldLogger) *Logger {
	return &Logger{log: l}
}

func (l *Logger) Log(level log.Level, keyvals ...any) error {
	fields := make(logrus.Fields, len(keyvals)/2)
	var msg string
	for i := 0; i+1 < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if key == log.DefaultMessageKey {
			msg = fmt.Sprint(keyvals[i+1])
			continue
		}
		fields[key] = keyvals[i+1]
	}
	if len(keyvals)%2 == 1 {
		fields["extra"] = keyvals[len(keyvals)-1]
	}

	entry := l.log.WithFields(fields)
	switch level {
	case log.LevelDebug:
		entry.Debug(msg)
	case log.LevelWarn:
		entry.Warn(msg)
	case log.LevelError, log.LevelFatal:
		entry.Error(msg)
	default:
		entry.Info(msg)
	}
	return nil
}
