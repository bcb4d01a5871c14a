// Package logging builds the slog.Logger used by both binaries: a JSON or
// text handler over stdout, optionally tee'd to a rotating file and/or a
// syslog sink, selected from config.LoggingConfig.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/RackSec/srslog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dataplatform/validation-pipeline/internal/config"
)

// New builds a slog.Logger per cfg. The returned closer flushes and closes
// any file/syslog sink and must be called before process exit.
func New(cfg config.LoggingConfig) (*slog.Logger, func() error, error) {
	level := parseLevel(cfg.Level)

	writers := []io.Writer{os.Stdout}
	var closers []func() error

	if cfg.FileEnabled {
		lj := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.FileMaxSizeMB,
			MaxBackups: cfg.FileMaxBackups,
			MaxAge:     cfg.FileMaxAgeDays,
			Compress:   true,
		}
		writers = append(writers, lj)
		closers = append(closers, lj.Close)
	}

	if cfg.SyslogEnabled {
		w, err := dialSyslog(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("dial syslog: %w", err)
		}
		writers = append(writers, w)
		closers = append(closers, w.Close)
	}

	out := io.MultiWriter(writers...)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler)
	closeAll := func() error {
		var first error
		for _, c := range closers {
			if err := c(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
	return logger, closeAll, nil
}

func dialSyslog(cfg config.LoggingConfig) (*srslog.Writer, error) {
	tag := cfg.SyslogTag
	if tag == "" {
		tag = "validation-pipeline"
	}
	if cfg.SyslogNetwork == "" {
		return srslog.New(srslog.LOG_INFO, tag)
	}
	return srslog.Dial(cfg.SyslogNetwork, cfg.SyslogAddr, srslog.LOG_INFO, tag)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
