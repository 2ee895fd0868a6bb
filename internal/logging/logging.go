// Package logging builds the zap logger shared by the server and client.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options select where log output goes.
type Options struct {
	// File is the rotated log file; empty disables file output.
	File string
	// Stderr tees output to standard error.
	Stderr bool
	// Level is the minimum level written. Zero value is Info.
	Level zapcore.Level
	// Writer, when set, replaces stderr as the tee target. Used by tests.
	Writer io.Writer
}

// New builds a SugaredLogger. With no outputs configured it returns a
// no-op logger.
func New(opts Options) *zap.SugaredLogger {
	var cores []zapcore.Core
	enc := zapcore.NewConsoleEncoder(encoderConfig())

	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(lj), opts.Level))
	}

	var tee io.Writer
	switch {
	case opts.Writer != nil:
		tee = opts.Writer
	case opts.Stderr:
		tee = os.Stderr
	}
	if tee != nil {
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(tee), opts.Level))
	}

	if len(cores) == 0 {
		return Nop()
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Sugar()
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// OrNop returns log, or a no-op logger when log is nil.
func OrNop(log *zap.SugaredLogger) *zap.SugaredLogger {
	if log == nil {
		return Nop()
	}
	return log
}

// Sync flushes buffered entries, ignoring the errors stderr returns on
// some platforms.
func Sync(log *zap.SugaredLogger) {
	if log != nil {
		_ = log.Sync()
	}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		MessageKey:    "msg",
		StacktraceKey: "stack",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}
}
