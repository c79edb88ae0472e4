package diagnostics

import (
	"github.com/pkg/errors"
)

// Classify converts any error into a Diagnostic attributed to the given contract path. An empty path produces a
// diagnostic without a source location.
func Classify(err error, path string) *Diagnostic {
	if err == nil {
		return nil
	}

	var location *SourceLocation
	if path != "" {
		location = NewSourceLocation(path)
	}

	var diagnostic *Diagnostic
	if errors.As(err, &diagnostic) {
		if diagnostic.SourceLocation == nil && location != nil {
			return newDiagnostic(diagnostic.Type, diagnostic.ErrorCode, diagnostic.Message, location)
		}
		return diagnostic
	}

	var internalErr *InternalError
	if errors.As(err, &internalErr) {
		return NewError("", internalErr.Error(), location)
	}

	return NewError("", err.Error(), location)
}

// Flatten returns the errors contained in err. Errors joined with errors.Join are expanded recursively; any other
// error is returned as is.
func Flatten(err error) []error {
	if err == nil {
		return nil
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}
	var flattened []error
	for _, inner := range joined.Unwrap() {
		flattened = append(flattened, Flatten(inner)...)
	}
	return flattened
}
