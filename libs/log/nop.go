package log

import (
	"github.com/rs/zerolog"
)

// NewNopLogger returns a logger that discards everything. Components default
// to it when no logger is configured.
func NewNopLogger() Logger {
	return &defaultLogger{Logger: zerolog.Nop()}
}
