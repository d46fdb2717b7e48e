package logger

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomFormatter_Format(t *testing.T) {
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "快照损坏",
		Data:    logrus.Fields{"file": "snapshot_x.json", "b": 1},
	}

	out, err := (&CustomFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2026-03-01 08:30:00] [WARN] [] 快照损坏 b=1 file=snapshot_x.json\n", string(out))
}

func TestCustomFormatter_CallerDepth(t *testing.T) {
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "ok",
		Caller:  &runtime.Frame{File: "/src/app/trend_radar/pkg/engine/engine.go", Line: 42},
	}
	entry.Logger.SetReportCaller(true)

	out, err := (&CustomFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2026-03-01 08:30:00] [INFO] [engine.go:42] ok\n", string(out))

	out, err = (&CustomFormatter{CallerDepth: 2}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2026-03-01 08:30:00] [INFO] [engine/engine.go:42] ok\n", string(out))
}

func TestTrimPath(t *testing.T) {
	assert.Equal(t, "main.go", trimPath("main.go", 3))
	assert.Equal(t, "pkg/engine/engine.go", trimPath("/a/pkg/engine/engine.go", 3))
	assert.Equal(t, "engine.go", trimPath("/a/pkg/engine/engine.go", 0))
}

func TestNew_RotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "radar.log")

	log, err := New("info", path, WithRotation(1, 2, 7), WithCallerDepth(2))
	require.NoError(t, err)

	log.Info("rotating radar")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rotating radar")
	assert.Contains(t, string(data), "logger/logger_test.go:")
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "radar.log")

	log, err := New("debug", path)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.Info("hello radar")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO]")
	assert.Contains(t, string(data), "hello radar")
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	log, err := New("loud", "")
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}
