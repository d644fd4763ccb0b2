// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the zap logger used by the command line.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/candidate-engine/pkg/types"
)

const defaultLevel = "info"

// New returns a logger writing to stderr at cfg.Level. Console encoding is
// the default; cfg.JSON selects JSON lines.
func New(cfg types.LogConfig) (*zap.Logger, error) {
	name := cfg.Level
	if name == "" {
		name = defaultLevel
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", name, err)
	}

	zc := zap.NewDevelopmentConfig()
	zc.DisableStacktrace = true
	if cfg.JSON {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Development = false

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}
