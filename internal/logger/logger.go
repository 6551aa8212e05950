// Package logger configures the process-wide logrus logger.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Setup configures logrus with the given level name and, when dir is
// non-empty, mirrors output into <dir>/debug.log. File setup failures
// fall back to stderr-only logging rather than failing startup.
func Setup(level, dir string) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)

	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logrus.WithError(err).Debug("log directory unavailable, stderr only")
		return
	}
	logPath := filepath.Join(dir, "debug.log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logrus.WithError(err).Debug("log file unavailable, stderr only")
		return
	}
	logrus.SetOutput(io.MultiWriter(os.Stderr, file))
}
