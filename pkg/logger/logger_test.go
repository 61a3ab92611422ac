package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSetup 测试日志实例创建
func TestSetup(t *testing.T) {
	t.Run("level parsing", func(t *testing.T) {
		log := Setup(Config{Level: "debug"})
		assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		log := Setup(Config{Level: "verbose"})
		assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	})

	t.Run("text formatter", func(t *testing.T) {
		log := Setup(Config{Level: "info", Format: "text"})
		assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
	})

	t.Run("json formatter by default", func(t *testing.T) {
		log := Setup(DefaultConfig())
		assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
	})

	t.Run("writes to rotated file", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "app.log")
		log := Setup(Config{Level: "info", File: logFile, MaxSizeMB: 1})

		log.WithField("component", "test").Info("rotation smoke test")

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), "rotation smoke test")
	})
}
