// SPDX-License-Identifier: MPL-2.0

// Package logging installs the process-wide slog handler. Call sites log
// through log/slog; records are formatted by charmbracelet/log.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
)

// Prefix is printed in front of every record.
const Prefix = "variantc"

// Options controls the installed handler.
type Options struct {
	// Verbose lowers the level to debug.
	Verbose bool
	// Quiet raises the level to errors only. Verbose wins when both are set.
	Quiet bool
	// Writer receives records; defaults to os.Stderr.
	Writer io.Writer
}

// New builds a charmbracelet logger for opts.
func New(opts Options) *log.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	level := log.InfoLevel
	switch {
	case opts.Verbose:
		level = log.DebugLevel
	case opts.Quiet:
		level = log.ErrorLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          Prefix,
		Level:           level,
		ReportTimestamp: opts.Verbose,
	})
}

// Setup installs a handler built from opts as the slog default and returns
// the resulting slog logger.
func Setup(opts Options) *slog.Logger {
	logger := slog.New(New(opts))
	slog.SetDefault(logger)
	return logger
}
