package config

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// NewLogger builds the process logger at the configured level.
func NewLogger(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse LOG_LEVEL %q: %w", level, err)
	}

	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "civicsync",
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       log.TextFormatter,
	}), nil
}
