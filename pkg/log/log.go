package log

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/muesli/termenv"
	"go.opentelemetry.io/otel/trace"

	charmlog "github.com/charmbracelet/log"
)

type (
	Format string
	Level  string

	contextKey string
)

const (
	FormatJSON   Format = "json"
	FormatLogfmt Format = "logfmt"
	FormatText   Format = "text"

	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
	LevelTrace Level = "trace"

	// SlogLevelTrace sits below [slog.LevelDebug] and carries process output.
	SlogLevelTrace = slog.LevelDebug - 4

	loggerContextKey contextKey = "logger"
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnknownLogLevel  = errors.New("unknown log level")
	ErrUnknownLogFormat = errors.New("unknown log format")

	AllFormats = []string{
		string(FormatJSON),
		string(FormatLogfmt),
		string(FormatText),
	}
	AllLevels = []string{
		string(LevelError),
		string(LevelWarn),
		string(LevelInfo),
		string(LevelDebug),
		string(LevelTrace),
	}
)

// HandlerOpt configures handler creation.
type HandlerOpt func(*handlerOptions)

type handlerOptions struct {
	verbosity int
	noColor   bool
}

// WithVerbosity lowers the configured level by one step per count:
// one step enables debug, two or more enable trace.
func WithVerbosity(count int) HandlerOpt {
	return func(o *handlerOptions) {
		o.verbosity = count
	}
}

// WithNoColor disables ANSI styling in the text format.
func WithNoColor(noColor bool) HandlerOpt {
	return func(o *handlerOptions) {
		o.noColor = noColor
	}
}

// CreateHandlerWithStrings creates a [slog.Handler] by strings.
func CreateHandlerWithStrings(w io.Writer, logLevel, logFormat string, opts ...HandlerOpt) (slog.Handler, error) {
	logLvl, err := GetLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	logFmt, err := GetFormat(logFormat)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	options := &handlerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	logLvl = applyVerbosity(logLvl, options.verbosity)

	return CreateHandler(w, logLvl, logFmt, options.noColor), nil
}

func CreateHandler(w io.Writer, logLvl slog.Level, logFmt Format, noColor bool) slog.Handler {
	switch logFmt {
	case FormatJSON:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource: true,
			Level:     logLvl,
		})

	case FormatLogfmt:
		return slog.NewTextHandler(w, &slog.HandlerOptions{
			AddSource: true,
			Level:     logLvl,
		})

	case FormatText:
		return newCharmLogHandler(w, logLvl, noColor)
	}

	return nil
}

func GetLevel(level string) (slog.Level, error) {
	switch Level(strings.ToLower(level)) {
	case LevelError:
		return slog.LevelError, nil
	case LevelWarn, "warning":
		return slog.LevelWarn, nil
	case LevelInfo:
		return slog.LevelInfo, nil
	case LevelDebug:
		return slog.LevelDebug, nil
	case LevelTrace:
		return SlogLevelTrace, nil
	}

	return 0, ErrUnknownLogLevel
}

func GetFormat(format string) (Format, error) {
	logFmt := Format(strings.ToLower(format))
	if slices.Contains([]Format{FormatJSON, FormatLogfmt, FormatText}, logFmt) {
		return logFmt, nil
	}

	return "", ErrUnknownLogFormat
}

// applyVerbosity never raises the level, so `--log-level trace -v` stays at trace.
func applyVerbosity(level slog.Level, verbosity int) slog.Level {
	switch {
	case verbosity >= 2:
		return min(level, SlogLevelTrace)
	case verbosity == 1:
		return min(level, slog.LevelDebug)
	}

	return level
}

func newCharmLogHandler(w io.Writer, level slog.Level, noColor bool) slog.Handler {
	//nolint:gosec // G115: input from GetLevel.
	lvl := int32(level)

	logger := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(lvl),
		Formatter:       charmlog.TextFormatter,
		ReportTimestamp: false,
		ReportCaller:    lvl <= int32(slog.LevelDebug),
	})

	if noColor {
		logger.SetColorProfile(termenv.Ascii)
	} else {
		logger.SetColorProfile(termenv.EnvColorProfile())
	}

	return logger
}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// WithContext returns the default logger with context.
func WithContext(ctx context.Context) *slog.Logger {
	// First check if there's a logger already stored in context.
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}

	// Create logger with trace ID if span is available.
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		traceID := span.SpanContext().TraceID().String()
		// Truncate trace ID to first 8 characters for readability.
		if len(traceID) > 8 {
			traceID = traceID[:8]
		}

		return slog.With(slog.String("trace_id", traceID))
	}

	// Fallback: Just return the default logger.
	return slog.Default()
}
