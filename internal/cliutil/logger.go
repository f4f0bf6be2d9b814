package cliutil

import (
	"fmt"
	"log/slog"

	"github.com/peerdata/yyy"
)

// NewLogger builds the tool logger on stderr. level is a slog level name
// such as "debug" or "warn".
func NewLogger(level string, json bool) (*yyy.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if json {
		return yyy.NewJSONLogger(l), nil
	}
	return yyy.NewTextLogger(l), nil
}
