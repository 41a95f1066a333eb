// internal/app/bootstrap/logger.go
package bootstrap

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger: console output in dev, JSON in
// prod. An unparseable level falls back to info.
func NewLogger(env, level string) (*zap.Logger, error) {
	var zc zap.Config
	if strings.EqualFold(env, "dev") {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			lvl = zapcore.InfoLevel
		}
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)

	return zc.Build()
}
