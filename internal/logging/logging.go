package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New creates a sugared logger based on the verbose flag.
// If verbose is true, it creates a development logger, otherwise a production logger.
func New(verbose bool) (*zap.SugaredLogger, error) {
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("failed to create development logger: %w", err)
		}
		return l.Sugar(), nil
	}

	l, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to create production logger: %w", err)
	}
	return l.Sugar(), nil
}

// Default returns a production logger, or a no-op logger if one cannot be built.
func Default() *zap.SugaredLogger {
	l, err := New(false)
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l
}
