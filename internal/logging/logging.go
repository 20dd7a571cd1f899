// Package logging builds the process logger from the log config section.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rustyeddy/tradereplay/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger writing to stderr and, when cfg.File is set, to that
// file as JSON. With quiet set only the file is written, which keeps the
// terminal free for the TUI.
func New(cfg config.LogConfig, quiet bool) (*zap.Logger, error) {
	return build(cfg, quiet, os.Stderr)
}

func build(cfg config.LogConfig, quiet bool, console io.Writer) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}

	level := zcfg.Level.Level()
	if cfg.Level != "" {
		l, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}

	var cores []zapcore.Core
	if !quiet {
		var enc zapcore.Encoder
		if cfg.Development {
			enc = zapcore.NewConsoleEncoder(zcfg.EncoderConfig)
		} else {
			enc = zapcore.NewJSONEncoder(zcfg.EncoderConfig)
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(console), level))
	}

	if cfg.File != "" {
		fh, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zcfg.EncoderConfig), zapcore.AddSync(fh), level))
	}

	if len(cores) == 0 {
		return zap.NewNop(), nil
	}

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}
	return zap.New(zapcore.NewTee(cores...), opts...), nil
}
