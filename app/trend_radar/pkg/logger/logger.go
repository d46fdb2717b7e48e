package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// CustomFormatter 自定义日志格式
type CustomFormatter struct {
	// CallerDepth 调用位置保留的路径段数，<=1 时只显示文件名，
	// 2 时显示 engine/engine.go 这样带包目录的形式
	CallerDepth int
}

// Format 实现 logrus.Formatter 接口
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var fileLine string
	if entry.HasCaller() {
		fileLine = fmt.Sprintf("%s:%d", trimPath(entry.Caller.File, f.CallerDepth), entry.Caller.Line)
	}

	// 对齐级别长度，例如 INFO, WARN, ERRO
	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}

	timeStr := entry.Time.Format("2006-01-02 15:04:05")

	// 结构化字段追加在消息之后: key=value
	var fields strings.Builder
	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&fields, " %s=%v", k, entry.Data[k])
		}
	}

	// [TIME] [LEVEL] [FILE:LINE] MSG k=v
	msg := fmt.Sprintf("[%s] [%s] [%s] %s%s\n", timeStr, level, fileLine, entry.Message, fields.String())
	return []byte(msg), nil
}

func trimPath(file string, depth int) string {
	if depth <= 1 {
		return filepath.Base(file)
	}
	parts := strings.Split(filepath.ToSlash(file), "/")
	if len(parts) > depth {
		parts = parts[len(parts)-depth:]
	}
	return strings.Join(parts, "/")
}

type options struct {
	callerDepth int
	maxSize     int
	maxBackups  int
	maxAge      int
}

// Option 日志选项
type Option func(*options)

// WithCallerDepth 调用位置显示的路径段数
func WithCallerDepth(n int) Option {
	return func(o *options) { o.callerDepth = n }
}

// WithRotation 日志文件按大小滚动。maxSizeMB<=0 时不滚动，直接追加写入
func WithRotation(maxSizeMB, maxBackups, maxAgeDays int) Option {
	return func(o *options) {
		o.maxSize = maxSizeMB
		o.maxBackups = maxBackups
		o.maxAge = maxAgeDays
	}
}

// New 创建日志实例，同时输出到控制台和文件（filePath 为空时仅控制台）
func New(levelStr string, filePath string, opts ...Option) (*logrus.Logger, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	log := logrus.New()

	// 开启 ReportCaller 以获取文件名和行号
	log.SetReportCaller(true)
	log.SetFormatter(&CustomFormatter{CallerDepth: o.callerDepth})

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	writers := []io.Writer{os.Stdout}
	if filePath != "" {
		logDir := filepath.Dir(filePath)
		if logDir != "." {
			if err := os.MkdirAll(logDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}

		if o.maxSize > 0 {
			writers = append(writers, &lumberjack.Logger{
				Filename:   filePath,
				MaxSize:    o.maxSize,
				MaxBackups: o.maxBackups,
				MaxAge:     o.maxAge,
				LocalTime:  true,
			})
		} else {
			file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
			if err != nil {
				return nil, err
			}
			writers = append(writers, file)
		}
	}
	log.SetOutput(io.MultiWriter(writers...))

	return log, nil
}
