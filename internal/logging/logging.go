// Package logging builds the process-wide logrus.Logger, grounded in the
// appender/rotation pattern the example corpus uses for logrus +
// lumberjack.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tomasbasham/webcapd/internal/config"
)

// New builds a *logrus.Logger from cfg. Level and format come straight
// from spec.md's ambient logging section; file rotation is added only when
// cfg.FileRotation.Path is set, writing to both stderr and the rotated
// file.
func New(cfg config.LogConfig) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: invalid level %q: %w", cfg.Level, err)
	}

	log := logrus.New()
	log.SetLevel(level)

	switch cfg.Format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	out := io.Writer(os.Stderr)
	if cfg.FileRotation.Path != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.FileRotation.Path,
			MaxSize:    cfg.FileRotation.MaxSizeMB,
			MaxAge:     cfg.FileRotation.MaxAgeDays,
			MaxBackups: cfg.FileRotation.MaxBackups,
			Compress:   cfg.FileRotation.Compress,
		}
		out = io.MultiWriter(os.Stderr, rotator)
	}
	log.SetOutput(out)

	return log, nil
}
