package logging

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
)

// DefaultLogger is a structured logger on top of log/slog text handlers.
// Debug/Info -> stdout
// Warn -> stderr (yellow)
// Error -> stderr (red)
// Fatal -> stderr (bold red), then exits
type DefaultLogger struct {
	stdout    *slog.Logger
	stderr    *slog.Logger
	level     *slog.LevelVar
	fields    Fields
	useColors bool
	exit      func(code int)
}

// NewDefaultLogger creates a new default logger with colored output on terminals
func NewDefaultLogger() *DefaultLogger {
	return NewDefaultLoggerWithWriters(os.Stdout, os.Stderr, isTerminal())
}

// NewDefaultLoggerNoColor creates a new default logger without colored output
func NewDefaultLoggerNoColor() *DefaultLogger {
	return NewDefaultLoggerWithWriters(os.Stdout, os.Stderr, false)
}

// NewDefaultLoggerWithWriters builds a logger writing informational records to
// out and warnings and errors to errOut.
func NewDefaultLoggerWithWriters(out, errOut io.Writer, useColors bool) *DefaultLogger {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	opts := &slog.HandlerOptions{Level: level}

	return &DefaultLogger{
		stdout:    slog.New(slog.NewTextHandler(out, opts)),
		stderr:    slog.New(slog.NewTextHandler(errOut, opts)),
		level:     level,
		fields:    make(Fields),
		useColors: useColors,
		exit:      os.Exit,
	}
}

// isTerminal checks if stdout is a character device
func isTerminal() bool {
	if fileInfo, _ := os.Stdout.Stat(); fileInfo != nil {
		return (fileInfo.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel, FatalLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// attrs flattens preset and call-site fields into sorted slog key/value pairs
func (d *DefaultLogger) attrs(err error, fields ...Fields) []any {
	allFields := make(Fields)
	maps.Copy(allFields, d.fields)
	for _, f := range fields {
		maps.Copy(allFields, f)
	}

	keys := slices.Sorted(maps.Keys(allFields))
	args := make([]any, 0, len(keys)*2+2)
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	for _, k := range keys {
		args = append(args, slog.Any(k, allFields[k]))
	}
	return args
}

func (d *DefaultLogger) colorize(level Level, msg string) string {
	if !d.useColors {
		return msg
	}
	switch level {
	case WarnLevel:
		return ColorYellow + msg + ColorReset
	case ErrorLevel:
		return ColorRed + msg + ColorReset
	case FatalLevel:
		return ColorBold + ColorRed + msg + ColorReset
	}
	return msg
}

func (d *DefaultLogger) log(level Level, err error, msg string, fields ...Fields) {
	sl := toSlogLevel(level)
	if sl < d.level.Level() {
		return
	}

	target := d.stdout
	if level >= WarnLevel {
		target = d.stderr
	}
	target.Log(context.Background(), sl, d.colorize(level, msg), d.attrs(err, fields...)...)

	if level == FatalLevel {
		d.exit(1)
	}
}

func (d *DefaultLogger) Debug(msg string, fields ...Fields) {
	d.log(DebugLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Info(msg string, fields ...Fields) {
	d.log(InfoLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Warn(msg string, fields ...Fields) {
	d.log(WarnLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Error(err error, msg string, fields ...Fields) {
	d.log(ErrorLevel, err, msg, fields...)
}

func (d *DefaultLogger) Fatal(err error, msg string, fields ...Fields) {
	d.log(FatalLevel, err, msg, fields...)
}

func (d *DefaultLogger) WithFields(fields Fields) Logger {
	newFields := make(Fields)
	maps.Copy(newFields, d.fields)
	maps.Copy(newFields, fields)

	return &DefaultLogger{
		stdout:    d.stdout,
		stderr:    d.stderr,
		level:     d.level,
		fields:    newFields,
		useColors: d.useColors,
		exit:      d.exit,
	}
}

func (d *DefaultLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := fieldsFromContext(ctx); ok {
		return d.WithFields(fields)
	}
	return d
}

// SetLevel is shared with every logger derived through WithFields.
func (d *DefaultLogger) SetLevel(level Level) {
	d.level.Set(toSlogLevel(level))
}

// NoOpLogger is a logger that does nothing. Tests use it to keep output quiet.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, fields ...Fields)            {}
func (n *NoOpLogger) Info(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Warn(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Error(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) Fatal(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) WithFields(fields Fields) Logger               { return n }
func (n *NoOpLogger) WithContext(ctx context.Context) Logger        { return n }
func (n *NoOpLogger) SetLevel(level Level)                          {}
