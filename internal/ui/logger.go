// Package ui holds the terminal side of sugar-pack: the logger, progress
// rendering for publish runs and the overwrite confirmation prompt.
package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/term"
)

// NewLogger returns the command logger. verbose enables debug output.
func NewLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: "sugar-pack",
		Level:  level,
	})
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
