// Package logging builds the application logger: a console core, plus a
// rotating file core when a log file is configured. The logger is injected
// into collaborators; nothing in this repo logs through global state.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options mirror the logging section of the configuration file.
type Options struct {
	// Level is one of debug, info, warn, error.
	Level string

	// Format is "console" or "json".
	Format string

	// File enables a rotating file sink when non-empty.
	File string
}

// New constructs the logger. The returned sync function flushes buffered
// entries and should be deferred by the caller.
func New(opt Options) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(opt.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: invalid level %q: %w", opt.Level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch opt.Format {
	case "", "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, nil, fmt.Errorf("logging: unsupported format %q", opt.Format)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level),
	}

	if opt.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   opt.File,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     30, // days
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(rotated), level))
	}

	log := zap.New(zapcore.NewTee(cores...))
	return log, func() { _ = log.Sync() }, nil
}
