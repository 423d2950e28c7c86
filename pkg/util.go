package pkg

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLog returns a logger writing JSON lines to dest. The terminal belongs
// to the UI, so nothing is ever logged to stdout or stderr.
func InitLog(dest, component, level string) (*zap.SugaredLogger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{dest}
	cfg.ErrorOutputPaths = []string{dest}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]interface{}{"component": component}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", dest, err)
	}
	return logger.Sugar(), nil
}
