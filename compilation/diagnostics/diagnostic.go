package diagnostics

import (
	"fmt"
	"strings"
)

// Severity describes how a Diagnostic affects a build.
type Severity string

const (
	// SeverityError describes a diagnostic which fails the build.
	SeverityError Severity = "error"
	// SeverityWarning describes a diagnostic which is reported but does not fail the build.
	SeverityWarning Severity = "warning"
	// SeverityInfo describes an informational diagnostic.
	SeverityInfo Severity = "info"
)

// componentGeneral is the component every backend diagnostic is attributed to.
const componentGeneral = "general"

// SourceLocation describes a region of a source file a Diagnostic refers to.
type SourceLocation struct {
	// File describes the source file path.
	File string `json:"file"`

	// Start describes the start byte offset within the file, or -1 if unknown.
	Start int `json:"start"`

	// End describes the end byte offset within the file, or -1 if unknown.
	End int `json:"end"`
}

// NewSourceLocation returns a SourceLocation covering a whole file.
func NewSourceLocation(file string) *SourceLocation {
	return &SourceLocation{File: file, Start: -1, End: -1}
}

// String returns a human-readable representation of the location.
func (l SourceLocation) String() string {
	if l.Start < 0 {
		return l.File
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Start, l.End)
}

// Diagnostic describes a protocol-level message produced by a build, in the shape used by standard JSON output. A
// Diagnostic is also an error so that it can travel through error returns unchanged.
type Diagnostic struct {
	// Component describes the compiler component the message originates from.
	Component string `json:"component"`

	// ErrorCode describes an optional numeric code identifying the message kind.
	ErrorCode string `json:"errorCode,omitempty"`

	// FormattedMessage describes the message as it should be printed to a user.
	FormattedMessage string `json:"formattedMessage"`

	// Message describes the unformatted message.
	Message string `json:"message"`

	// Severity describes whether the message is an error or a warning.
	Severity Severity `json:"severity"`

	// SourceLocation describes the optional location the message refers to.
	SourceLocation *SourceLocation `json:"sourceLocation,omitempty"`

	// Type describes the capitalized message type, e.g. "Error" or "Warning".
	Type string `json:"type"`
}

// newDiagnostic creates a Diagnostic of the given type. The formatted message is prefixed with the type unless the
// message already starts with it.
func newDiagnostic(typ string, code string, message string, location *SourceLocation) *Diagnostic {
	trimmed := strings.TrimSpace(message)
	formatted := trimmed
	if !strings.HasPrefix(trimmed, typ) {
		formatted = fmt.Sprintf("%s: %s", typ, trimmed)
	}
	formatted += "\n"
	if location != nil {
		formatted += "--> " + location.String() + "\n"
	}

	return &Diagnostic{
		Component:        componentGeneral,
		ErrorCode:        code,
		FormattedMessage: formatted,
		Message:          message,
		Severity:         Severity(strings.ToLower(typ)),
		SourceLocation:   location,
		Type:             typ,
	}
}

// NewError creates an error Diagnostic.
func NewError(code string, message string, location *SourceLocation) *Diagnostic {
	return newDiagnostic("Error", code, message, location)
}

// NewWarning creates a warning Diagnostic.
func NewWarning(code string, message string, location *SourceLocation) *Diagnostic {
	return newDiagnostic("Warning", code, message, location)
}

// MakeWarning downgrades the diagnostic to a warning.
func (d *Diagnostic) MakeWarning() {
	d.Severity = SeverityWarning
	d.Type = "Warning"
}

// MakeError upgrades the diagnostic to an error.
func (d *Diagnostic) MakeError() {
	d.Severity = SeverityError
	d.Type = "Error"
}

// IsError returns a boolean indicating whether the diagnostic fails a build.
func (d *Diagnostic) IsError() bool {
	return d.Severity == SeverityError
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	return strings.TrimSuffix(d.FormattedMessage, "\n")
}
