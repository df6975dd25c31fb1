package config

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds the process logger from the log section.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, er := zap.ParseAtomicLevel(c.Log.Level)
	if er != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Log.Level, er)
	}

	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}
