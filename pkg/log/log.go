// Package log builds [slog.Handler]s for litescript and carries loggers
// through contexts.
package log

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/muesli/termenv"
	"go.opentelemetry.io/otel/trace"

	charmlog "github.com/charmbracelet/log"
)

// Format names a log output format.
type Format string

// Level names a log level.
type Level string

type contextKey struct{}

const (
	FormatJSON   Format = "json"
	FormatLogfmt Format = "logfmt"
	FormatText   Format = "text"

	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnknownLogLevel  = errors.New("unknown log level")
	ErrUnknownLogFormat = errors.New("unknown log format")

	// AllFormats lists the accepted format names, for flag help and completion.
	AllFormats = []string{string(FormatJSON), string(FormatLogfmt), string(FormatText)}
	// AllLevels lists the accepted level names, for flag help and completion.
	AllLevels = []string{string(LevelError), string(LevelWarn), string(LevelInfo), string(LevelDebug)}

	levels = map[Level]slog.Level{
		LevelError: slog.LevelError,
		LevelWarn:  slog.LevelWarn,
		"warning":  slog.LevelWarn,
		LevelInfo:  slog.LevelInfo,
		LevelDebug: slog.LevelDebug,
	}
)

// CreateHandlerWithStrings creates a [slog.Handler] from a level and format name.
func CreateHandlerWithStrings(w io.Writer, logLevel, logFormat string) (slog.Handler, error) {
	lvl, err := GetLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	f, err := GetFormat(logFormat)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return CreateHandler(w, lvl, f), nil
}

// CreateHandler creates a [slog.Handler] writing to w. The text format uses
// charmbracelet/log; logfmt and json use the [slog] handlers. An unknown
// format falls back to text.
func CreateHandler(w io.Writer, level slog.Level, f Format) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	switch f {
	case FormatJSON:
		return slog.NewJSONHandler(w, opts)
	case FormatLogfmt:
		return slog.NewTextHandler(w, opts)
	case FormatText:
	}

	return newCharmLogHandler(w, level)
}

// GetLevel parses a level name, case-insensitively.
func GetLevel(level string) (slog.Level, error) {
	if lvl, ok := levels[Level(strings.ToLower(level))]; ok {
		return lvl, nil
	}

	return 0, fmt.Errorf("%w %q", ErrUnknownLogLevel, level)
}

// GetFormat parses a format name, case-insensitively.
func GetFormat(format string) (Format, error) {
	f := strings.ToLower(format)
	if slices.Contains(AllFormats, f) {
		return Format(f), nil
	}

	return "", fmt.Errorf("%w %q", ErrUnknownLogFormat, format)
}

func newCharmLogHandler(w io.Writer, level slog.Level) slog.Handler {
	//nolint:gosec // G115: input from GetLevel.
	lvl := int32(level)

	logger := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(lvl),
		Formatter:       charmlog.TextFormatter,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	logger.SetColorProfile(termenv.ColorProfile())

	return logger
}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// WithContext returns the logger stored in ctx, or the default logger.
// When a span is active, the logger is annotated with a short trace ID.
func WithContext(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(contextKey{}).(*slog.Logger)
	if !ok {
		logger = slog.Default()
	}

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		traceID := span.SpanContext().TraceID().String()
		if len(traceID) > 8 {
			traceID = traceID[:8]
		}

		return logger.With(slog.String("trace_id", traceID))
	}

	return logger
}
