package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the program logger. The terminal belongs to the UI, so
// messages only go to the log file; level "none" disables logging.
func NewLogger(conf LogConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch conf.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "normal", "":
		level = zapcore.InfoLevel
	case "none":
		return zap.NewNop(), nil
	default:
		return nil, fmt.Errorf("unknown log level %q", conf.Level)
	}

	if conf.File == "" {
		return zap.NewNop(), nil
	}
	if err := os.MkdirAll(filepath.Dir(conf.File), 0755); err != nil {
		return nil, fmt.Errorf("unable to create log directory: %w", err)
	}
	f, err := os.OpenFile(conf.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("unable to access log destination (%s): %w", conf.File, err)
	}

	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(ec), zapcore.Lock(f), zap.NewAtomicLevelAt(level))

	return zap.New(core, zap.AddCaller()).Named(appName), nil
}
