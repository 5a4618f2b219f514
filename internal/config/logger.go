package config

import (
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
)

// NewLogger returns a slog logger rendered by charmbracelet/log.
// Debug records are dropped unless debug is set.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	h := log.NewWithOptions(w, log.Options{ReportTimestamp: true})
	if debug {
		h.SetLevel(log.DebugLevel)
	}
	return slog.New(h)
}
