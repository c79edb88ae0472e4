package codegen

import (
	"fmt"

	"github.com/crytic/solbuild/compilation/diagnostics"
)

const (
	// errorCodeSyntax is reported for assembly which cannot be lowered.
	errorCodeSyntax = "1001"
	// errorCodeUnknownIdentifier is reported for references to objects missing from the identifier map.
	errorCodeUnknownIdentifier = "1002"
	// errorCodeImmutables is reported for immutable accesses in the wrong segment.
	errorCodeImmutables = "1003"
	// warningCodeCodeSize is reported for code exceeding the EVM contract size limit.
	warningCodeCodeSize = "5574"
)

// newSyntaxError returns a protocol error for a malformed assembly line.
func newSyntaxError(line int, format string, args ...any) *diagnostics.Diagnostic {
	return diagnostics.NewError(errorCodeSyntax, fmt.Sprintf("line %d: %s", line, fmt.Sprintf(format, args...)), nil)
}
