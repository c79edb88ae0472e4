package workers

import (
	"github.com/crytic/solbuild/compilation/diagnostics"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/version"
	"github.com/pkg/errors"
)

// Input describes the message a worker receives: a single compilation unit and the version of the compiler which
// produced it.
type Input struct {
	// Unit describes the unit to compile.
	Unit *types.CompilationUnit `json:"unit"`

	// CompilerVersion describes the version of the dispatching compiler.
	CompilerVersion string `json:"compiler_version"`
}

// NewInput creates an Input for a unit, stamped with the running compiler version.
func NewInput(unit *types.CompilationUnit) *Input {
	return &Input{Unit: unit, CompilerVersion: version.Version}
}

// errorKind describes which error type a WireError is reconstructed into.
type errorKind string

const (
	errorKindStackTooDeep errorKind = "stack_too_deep"
	errorKindDiagnostic   errorKind = "diagnostic"
	errorKindInternal     errorKind = "internal"
)

// WireError describes a structured compilation error as it crosses a worker boundary.
type WireError struct {
	// Kind describes the error type.
	Kind errorKind `json:"kind"`

	// Diagnostic describes a protocol error, set when Kind is "diagnostic".
	Diagnostic *diagnostics.Diagnostic `json:"diagnostic,omitempty"`

	// Message describes an internal error, set when Kind is "internal".
	Message string `json:"message,omitempty"`

	// SpillAreaSize describes the required spill area, set when Kind is "stack_too_deep".
	SpillAreaSize uint64 `json:"spill_area_size,omitempty"`

	// IsSizeFallback describes whether a stack-too-deep error occurred after the size fallback.
	IsSizeFallback bool `json:"is_size_fallback,omitempty"`
}

// Output describes the message a worker replies with: exactly one of an object or an error.
type Output struct {
	// Object describes the compiled object.
	Object *types.ContractObject `json:"object,omitempty"`

	// Error describes the compilation error.
	Error *WireError `json:"error,omitempty"`
}

// NewOutput creates a successful Output.
func NewOutput(object *types.ContractObject) *Output {
	return &Output{Object: object}
}

// NewErrorOutput converts an error into an Output. Errors which are neither diagnostics nor stack-too-deep errors
// are carried as internal errors.
func NewErrorOutput(err error) *Output {
	var stackTooDeep *diagnostics.StackTooDeepError
	if errors.As(err, &stackTooDeep) {
		return &Output{Error: &WireError{
			Kind:           errorKindStackTooDeep,
			SpillAreaSize:  stackTooDeep.SpillAreaSize,
			IsSizeFallback: stackTooDeep.IsSizeFallback,
		}}
	}
	var diagnostic *diagnostics.Diagnostic
	if errors.As(err, &diagnostic) {
		return &Output{Error: &WireError{Kind: errorKindDiagnostic, Diagnostic: diagnostic}}
	}
	var internalErr *diagnostics.InternalError
	if errors.As(err, &internalErr) {
		return &Output{Error: &WireError{Kind: errorKindInternal, Message: internalErr.Message}}
	}
	return &Output{Error: &WireError{Kind: errorKindInternal, Message: err.Error()}}
}

// Result converts the output back into the values a Worker returns. Stack-too-deep errors are attributed to the
// given unit, since the contract and segment are not transmitted.
func (o *Output) Result(unit *types.CompilationUnit) (*types.ContractObject, error) {
	switch {
	case o.Error != nil:
		return nil, o.Error.Err(unit)
	case o.Object != nil:
		return o.Object, nil
	default:
		return nil, errors.New("worker output carries neither an object nor an error")
	}
}

// Err reconstructs the typed error carried by the WireError.
func (e *WireError) Err(unit *types.CompilationUnit) error {
	switch e.Kind {
	case errorKindStackTooDeep:
		return diagnostics.NewStackTooDeepError(e.SpillAreaSize, e.IsSizeFallback).WithUnit(unit.Name, unit.Segment)
	case errorKindDiagnostic:
		if e.Diagnostic != nil {
			return e.Diagnostic
		}
	}
	return &diagnostics.InternalError{Message: e.Message}
}
