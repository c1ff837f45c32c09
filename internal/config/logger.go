package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the production JSON logger at LOG_LEVEL. Output goes to
// stderr so stdout stays free for CLI and MCP traffic.
func NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(LogLevel())
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", LogLevel(), err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
