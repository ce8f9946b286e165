// ABOUTME: Log setup for all binaries
// ABOUTME: Configures the global zerolog logger from logging settings
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Resonate-Protocol/rawstream-go/internal/config"
)

// Init configures the global logger. The returned func closes any log file.
func Init(cfg config.LoggingConfig) (func() error, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	closer := func() error { return nil }
	var out io.Writer
	switch cfg.Output {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
		closer = f.Close
	}

	log.Logger = New(out, cfg.Format, level)
	zerolog.SetGlobalLevel(level)
	return closer, nil
}

// New builds a logger writing to w in the given format ("console" or "json")
func New(w io.Writer, format string, level zerolog.Level) zerolog.Logger {
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	} else {
		zerolog.TimeFieldFormat = time.RFC3339Nano
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
