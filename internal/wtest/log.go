package wtest

import (
	"log/slog"
	"testing"

	"github.com/neilotoole/slogt"
)

// NewLogger returns a logger that writes through t.Log,
// so that log output is associated with the running test,
// and only printed for failed tests (or in verbose mode).
func NewLogger(t *testing.T) *slog.Logger {
	return slogt.New(t)
}
