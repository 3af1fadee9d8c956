package app

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// newLoggers returns the CLI logger and a slog.Logger for the client, both
// rendered by the same zerolog console writer.
func newLoggers(w io.Writer, verbose bool) (zerolog.Logger, *slog.Logger) {
	level, slogLevel := zerolog.InfoLevel, slog.LevelInfo
	if verbose {
		level, slogLevel = zerolog.DebugLevel, slog.LevelDebug
	}

	cw := zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.Kitchen}

	zl := zerolog.New(cw).Level(level).With().Timestamp().Str("app", cliName).Logger()

	sl := slog.New(slog.NewJSONHandler(cw, &slog.HandlerOptions{
		Level:       slogLevel,
		ReplaceAttr: zerologKeys,
	}))

	return zl, sl
}

// zerologKeys renames the slog built-in keys to the ones the console writer parses.
func zerologKeys(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}

	switch a.Key {
	case slog.MessageKey:
		a.Key = zerolog.MessageFieldName
	case slog.LevelKey:
		a.Key = zerolog.LevelFieldName
		a.Value = slog.StringValue(strings.ToLower(a.Value.String()))
	case slog.TimeKey:
		a.Key = zerolog.TimestampFieldName
	}

	return a
}
