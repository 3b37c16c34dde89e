// Package logging sends the terminal's structured logs to a file. The console
// keeps only warnings and errors so it does not interleave with the prompt.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// OpenLogFile opens path for appending, creating its directory if needed.
// An empty path disables the file sink.
func OpenLogFile(path string) (*os.File, error) {
	if path == "" {
		return nil, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}

func fileLevel(debug bool) zapcore.Level {
	if debug {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

// AttachFileLogger tees base into file as JSON lines. With a file attached the
// console core is raised to warn unless debugging.
func AttachFileLogger(base *zap.Logger, file *os.File, debug bool) *zap.Logger {
	if file == nil {
		return base
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(file), fileLevel(debug))

	return base.WithOptions(zap.WrapCore(func(console zapcore.Core) zapcore.Core {
		if !debug {
			if quiet, err := zapcore.NewIncreaseLevelCore(console, zapcore.WarnLevel); err == nil {
				console = quiet
			}
		}
		return zapcore.NewTee(console, fileCore)
	}))
}
