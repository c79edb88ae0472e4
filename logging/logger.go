package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/crytic/solbuild/logging/colors"
	"github.com/rs/zerolog"
)

// GlobalLogger describes a Logger that is disabled by default and is configured by the CLI. Each package should create
// its own sub-logger from it.
var GlobalLogger = NewLogger(zerolog.Disabled)

// LogFormat describes what format to log in
type LogFormat string

const (
	// STRUCTURED describes that logging should be done in structured JSON format
	STRUCTURED LogFormat = "structured"
	// UNSTRUCTURED describes that logging should be done in an unstructured format
	UNSTRUCTURED LogFormat = "unstructured"
)

// StructuredLogInfo describes a key-value mapping that can be used to log structured data
type StructuredLogInfo map[string]any

// field describes a key-value pair of context attached to every event of a sub-logger.
type field struct {
	key   string
	value string
}

// Logger describes a custom logging object that can log events to any number of structured, unstructured and
// colorized unstructured channels at once.
type Logger struct {
	// level describes the log level
	level zerolog.Level

	// fields describes the context attached to every event, in the order it was added.
	fields []field

	// structuredLogger, unstructuredLogger and unstructuredColorLogger output to their respective writer lists.
	structuredLogger        zerolog.Logger
	unstructuredLogger      zerolog.Logger
	unstructuredColorLogger zerolog.Logger

	// structuredWriters describes writers which receive JSON output.
	structuredWriters []io.Writer

	// unstructuredWriters describes writers which receive human-readable output without ANSI coloring.
	unstructuredWriters []io.Writer

	// unstructuredColorWriters describes writers which receive colorized human-readable output, such as the console.
	unstructuredColorWriters []io.Writer
}

// NewLogger creates a new Logger with the given level and no writers.
func NewLogger(level zerolog.Level) *Logger {
	l := &Logger{level: level}
	l.rebuild()
	return l
}

// NewSubLogger creates a new Logger which attaches the key-value pair to every event. The expected use of this function
// is for each package to have its own logger so that logs are "grep-able" by module.
func (l *Logger) NewSubLogger(key string, value string) *Logger {
	sub := &Logger{
		level:                    l.level,
		fields:                   append(append([]field(nil), l.fields...), field{key: key, value: value}),
		structuredWriters:        append([]io.Writer(nil), l.structuredWriters...),
		unstructuredWriters:      append([]io.Writer(nil), l.unstructuredWriters...),
		unstructuredColorWriters: append([]io.Writer(nil), l.unstructuredColorWriters...),
	}
	sub.rebuild()
	return sub
}

// AddWriter adds a writer to the channels of the given format. Adding a writer twice is a no-op.
func (l *Logger) AddWriter(writer io.Writer, format LogFormat, colored bool) {
	writers := l.writersFor(format, colored)
	for _, w := range *writers {
		if w == writer {
			return
		}
	}
	*writers = append(*writers, writer)
	l.rebuild()
}

// RemoveWriter removes a writer from the channels of the given format. Removing an unknown writer is a no-op.
func (l *Logger) RemoveWriter(writer io.Writer, format LogFormat, colored bool) {
	writers := l.writersFor(format, colored)
	for i, w := range *writers {
		if w == writer {
			*writers = append((*writers)[:i], (*writers)[i+1:]...)
			l.rebuild()
			return
		}
	}
}

// writersFor returns the writer list of the given format.
func (l *Logger) writersFor(format LogFormat, colored bool) *[]io.Writer {
	switch {
	case format == STRUCTURED:
		return &l.structuredWriters
	case colored:
		return &l.unstructuredColorWriters
	default:
		return &l.unstructuredWriters
	}
}

// rebuild recreates the underlying loggers from the writer lists, level and context fields.
func (l *Logger) rebuild() {
	build := func(writers []io.Writer, wrap func(io.Writer) io.Writer, timestamp bool) zerolog.Logger {
		if len(writers) == 0 {
			return zerolog.Nop()
		}
		wrapped := make([]io.Writer, len(writers))
		for i, w := range writers {
			wrapped[i] = wrap(w)
		}
		ctx := zerolog.New(zerolog.MultiLevelWriter(wrapped...)).Level(l.level).With()
		if timestamp {
			ctx = ctx.Timestamp()
		}
		for _, f := range l.fields {
			ctx = ctx.Str(f.key, f.value)
		}
		return ctx.Logger()
	}

	l.structuredLogger = build(l.structuredWriters, func(w io.Writer) io.Writer { return w }, true)
	l.unstructuredLogger = build(l.unstructuredWriters, func(w io.Writer) io.Writer {
		return setupDefaultFormatting(zerolog.ConsoleWriter{Out: w, NoColor: true}, l.level)
	}, false)
	l.unstructuredColorLogger = build(l.unstructuredColorWriters, func(w io.Writer) io.Writer {
		return &colorToggleWriter{
			colored: setupDefaultFormatting(zerolog.ConsoleWriter{Out: w}, l.level),
			plain:   setupDefaultFormatting(zerolog.ConsoleWriter{Out: w, NoColor: true}, l.level),
		}
	}, false)
}

// colorToggleWriter formats events with colors only while colors.Enabled() holds, so that disabling colors also
// affects writers added before.
type colorToggleWriter struct {
	colored zerolog.ConsoleWriter
	plain   zerolog.ConsoleWriter
}

// Write implements io.Writer.
func (w *colorToggleWriter) Write(p []byte) (int, error) {
	if colors.Enabled() {
		return w.colored.Write(p)
	}
	return w.plain.Write(p)
}

// Level will get the log level of the Logger
func (l *Logger) Level() zerolog.Level {
	return l.level
}

// SetLevel will update the log level of the Logger
func (l *Logger) SetLevel(level zerolog.Level) {
	l.level = level
	l.rebuild()
}

// Trace is a wrapper function that will log a trace event
func (l *Logger) Trace(args ...any) {
	l.log(zerolog.TraceLevel, args...)
}

// Debug is a wrapper function that will log a debug event
func (l *Logger) Debug(args ...any) {
	l.log(zerolog.DebugLevel, args...)
}

// Info is a wrapper function that will log an info event
func (l *Logger) Info(args ...any) {
	l.log(zerolog.InfoLevel, args...)
}

// Warn is a wrapper function that will log a warning event
func (l *Logger) Warn(args ...any) {
	l.log(zerolog.WarnLevel, args...)
}

// Error is a wrapper function that will log an error event
func (l *Logger) Error(args ...any) {
	l.log(zerolog.ErrorLevel, args...)
}

// Panic is a wrapper function that will log a panic event to every channel and then panic
func (l *Logger) Panic(args ...any) {
	_, msg, _, _ := buildMsgs(args...)
	l.log(zerolog.PanicLevel, args...)
	panic(msg)
}

// log sends an event of the given level to every channel. Errors are chained to the event, with a stack trace when
// debugging.
func (l *Logger) log(level zerolog.Level, args ...any) {
	colorMsg, msg, err, info := buildMsgs(args...)

	send := func(logger zerolog.Logger, message string) {
		event := logger.WithLevel(level)
		if event == nil {
			return
		}
		if err != nil {
			event = event.Err(err)
			if l.level <= zerolog.DebugLevel {
				event = event.Stack()
			}
		}
		if info != nil {
			event = event.Any("info", info)
		}
		event.Msg(message)
	}
	send(l.structuredLogger, msg)
	send(l.unstructuredLogger, msg)
	send(l.unstructuredColorLogger, colorMsg)
}

// buildMsgs takes a variadic list of arguments of any type and returns a colorized message for console logging, a
// plain message for every other channel and, optionally, an error and a StructuredLogInfo object.
func buildMsgs(args ...any) (string, string, error, StructuredLogInfo) {
	if len(args) == 0 {
		return "", "", nil, nil
	}

	colorCtx := colors.Reset
	consoleOutput := make([]string, 0, len(args))
	plainOutput := make([]string, 0, len(args))
	var info StructuredLogInfo
	var err error

	for _, arg := range args {
		switch t := arg.(type) {
		case colors.ColorFunc:
			// Switch the current color context
			colorCtx = t
		case StructuredLogInfo:
			// Only one structured log info can be provided for each log message
			info = t
		case *LogBuffer:
			bufferColor, bufferPlain, _, _ := buildMsgs(t.Args()...)
			consoleOutput = append(consoleOutput, bufferColor)
			plainOutput = append(plainOutput, bufferPlain)
		case error:
			// Only one error can be provided for each log message
			err = t
		default:
			consoleOutput = append(consoleOutput, colorCtx(t))
			plainOutput = append(plainOutput, fmt.Sprintf("%v", t))
		}
	}

	return strings.Join(consoleOutput, ""), strings.Join(plainOutput, ""), err, info
}

// setupDefaultFormatting updates a console writer's formatting to the solbuild standard
func setupDefaultFormatting(writer zerolog.ConsoleWriter, level zerolog.Level) zerolog.ConsoleWriter {
	// Get rid of the timestamp for console output
	writer.FormatTimestamp = func(i any) string {
		return ""
	}

	writer.FormatLevel = func(i any) string {
		name, _ := i.(string)
		parsed, err := zerolog.ParseLevel(name)
		if err != nil {
			return name
		}

		switch parsed {
		case zerolog.TraceLevel:
			return colors.CyanBold(zerolog.LevelTraceValue)
		case zerolog.DebugLevel:
			return colors.BlueBold(zerolog.LevelDebugValue)
		case zerolog.InfoLevel:
			return colors.GreenBold(colors.LEFT_ARROW)
		case zerolog.WarnLevel:
			return colors.YellowBold(zerolog.LevelWarnValue)
		case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
			return colors.RedBold(parsed.String())
		default:
			return name
		}
	}

	// Above debug level, the module of a log line is noise on the console
	if level > zerolog.DebugLevel {
		writer.FieldsExclude = []string{"module", "session"}
	}

	return writer
}
