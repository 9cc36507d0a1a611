// Package logging builds the charmbracelet loggers used by the CLI and the
// facade. Terminals get the coloured text formatter; pipes and files get
// JSON lines.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
)

const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

type Options struct {
	Level  string
	Format string
	Prefix string
}

// New returns a logger writing to w. An empty level means info.
func New(w io.Writer, opts Options) (*log.Logger, error) {
	level := log.InfoLevel
	if opts.Level != "" {
		parsed, err := log.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	formatter, err := formatterFor(w, opts.Format)
	if err != nil {
		return nil, err
	}

	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          opts.Prefix,
		Formatter:       formatter,
		ReportTimestamp: formatter == log.JSONFormatter,
	}), nil
}

// Install builds a logger and makes it the package default so that the
// global log functions used across the module write through it.
func Install(w io.Writer, opts Options) (*log.Logger, error) {
	logger, err := New(w, opts)
	if err != nil {
		return nil, err
	}
	log.SetDefault(logger)
	return logger, nil
}

func formatterFor(w io.Writer, format string) (log.Formatter, error) {
	switch strings.ToLower(format) {
	case "", FormatAuto:
		if IsTerminal(w) {
			return log.TextFormatter, nil
		}
		return log.JSONFormatter, nil
	case FormatText:
		return log.TextFormatter, nil
	case FormatJSON:
		return log.JSONFormatter, nil
	default:
		return 0, fmt.Errorf("unsupported log format: %s", format)
	}
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
