// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Init configures the default slog logger.
// verbose=true sets LevelDebug, otherwise LevelWarn so that only contained
// failures (unreadable files, unavailable plans, storage errors) are shown.
// format is "text" (default) or "json". output defaults to os.Stderr if nil.
func Init(verbose bool, format string, output io.Writer) error {
	if output == nil {
		output = os.Stderr
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "", "text":
		handler = slog.NewTextHandler(output, opts)
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}
