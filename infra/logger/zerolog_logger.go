package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// Options tune the zerolog output shared by every component logger.
type Options struct {
	// Level is one of zerolog's level names; empty keeps the global level.
	Level string
	// Format is "json" or "console". Empty falls back to APP_ENV.
	Format string
	Out    io.Writer
}

var defaults = Options{Out: os.Stdout}

// Configure sets the global level and output used by loggers created
// afterwards.
func Configure(o Options) error {
	if o.Level != "" {
		lvl, err := zerolog.ParseLevel(strings.ToLower(o.Level))
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		zerolog.SetGlobalLevel(lvl)
	}
	switch strings.ToLower(o.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", o.Format)
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
	defaults = o
	return nil
}

// NewZerologLogger creates a ZerologLogger. Console output is used when the
// configured format is "console" or APP_ENV is "dev". All logs include the
// provided component field.
func NewZerologLogger(component string) Logger {
	return newZerolog(component, defaults)
}

func newZerolog(component string, o Options) *ZerologLogger {
	format := strings.ToLower(o.Format)
	if format == "" && strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		format = "console"
	}
	var w io.Writer = o.Out
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: o.Out, TimeFormat: time.RFC3339}
	}
	z := zerolog.New(w).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	ev := l.log.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
