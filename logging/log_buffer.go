package logging

// LogBuffer is a helper object that can be used to buffer log messages. A log buffer is effectively a list of arguments
// of any type, which allows multi-line reports (such as build diagnostics) to be colored piecewise and then logged as a
// single event.
type LogBuffer struct {
	// args describes the list of arguments that eventually need to be concatenated together in the Logger
	args []any
}

// NewLogBuffer creates a new LogBuffer object
func NewLogBuffer() *LogBuffer {
	return &LogBuffer{
		args: make([]any, 0),
	}
}

// Append appends a variadic set of arguments to the list of arguments
func (l *LogBuffer) Append(newArgs ...any) {
	l.args = append(l.args, newArgs...)
}

// Args returns the list of arguments stored in this LogBuffer
func (l *LogBuffer) Args() []any {
	return l.args
}

// Len returns the number of arguments stored in this LogBuffer
func (l *LogBuffer) Len() int {
	return len(l.args)
}

// String provides the non-colorized string representation of the LogBuffer
func (l *LogBuffer) String() string {
	_, msg, _, _ := buildMsgs(l.args...)
	return msg
}
