package env

import (
	"os"

	zap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MakeLogger builds the daemon's JSON production logger. The level can
// be overridden with WG_DYNAMIC_LOG_LEVEL (debug, info, warn, error).
func MakeLogger() (*zap.Logger, error) {
	level := zapcore.InfoLevel

	if raw := os.Getenv("WG_DYNAMIC_LOG_LEVEL"); raw != "" {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			return nil, err
		}
	}

	logConfig := zap.NewProductionConfig()
	logConfig.Level = zap.NewAtomicLevelAt(level)
	logConfig.Encoding = "json"

	return logConfig.Build()
}
