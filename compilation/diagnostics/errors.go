package diagnostics

import (
	"fmt"
	"strings"

	"github.com/crytic/solbuild/compilation/types"
)

// StackTooDeepError describes a unit which needs more stack slots than the EVM can address directly. It carries the
// spill area size the unit needs so that it can be recompiled with that much memory reserved.
type StackTooDeepError struct {
	// SpillAreaSize describes the number of bytes of memory the unit needs for spilled stack slots.
	SpillAreaSize uint64

	// IsSizeFallback describes whether the error occurred after the unit was recompiled for size.
	IsSizeFallback bool

	// ContractName describes the contract the unit belongs to, if known.
	ContractName *types.ContractName

	// CodeSegment describes the failing code segment, if known.
	CodeSegment *types.CodeSegment
}

// NewStackTooDeepError creates a StackTooDeepError without contract attribution.
func NewStackTooDeepError(spillAreaSize uint64, isSizeFallback bool) *StackTooDeepError {
	return &StackTooDeepError{SpillAreaSize: spillAreaSize, IsSizeFallback: isSizeFallback}
}

// WithUnit returns a copy of the error attributed to the given contract and segment.
func (e *StackTooDeepError) WithUnit(name types.ContractName, segment types.CodeSegment) *StackTooDeepError {
	clone := *e
	clone.ContractName = &name
	clone.CodeSegment = &segment
	return &clone
}

// Error implements the error interface.
func (e *StackTooDeepError) Error() string {
	var b strings.Builder
	b.WriteString("stack-too-deep error detected")
	if e.CodeSegment != nil {
		fmt.Fprintf(&b, " in %s code", e.CodeSegment)
	}
	if e.ContractName != nil {
		fmt.Fprintf(&b, " of %s", e.ContractName)
	}
	fmt.Fprintf(&b, ". Required spill area: %d bytes", e.SpillAreaSize)
	if e.IsSizeFallback {
		b.WriteString(" (after size fallback)")
	}
	return b.String()
}

// InternalError describes a failure inside the backend which does not originate from user input.
type InternalError struct {
	// Message describes the failure.
	Message string
}

// NewInternalError creates an InternalError with a formatted message.
func NewInternalError(format string, args ...any) *InternalError {
	return &InternalError{Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	return "internal error: " + e.Message
}

// WorkerFailureError describes a worker which did not deliver a well-formed result: a process that exited with a
// non-zero code, was killed, or printed output which could not be parsed.
type WorkerFailureError struct {
	// Path describes the contract path the worker was compiling.
	Path string

	// ExitCode describes the worker process exit code. Nil means the process terminated without one.
	ExitCode *int

	// Signal describes the name of the signal which terminated the process, if any.
	Signal string

	// Stdout describes the captured standard output of the worker.
	Stdout string

	// Stderr describes the captured standard error of the worker.
	Stderr string

	// Cause describes the underlying failure, if any.
	Cause error
}

// Error implements the error interface.
func (e *WorkerFailureError) Error() string {
	var head string
	switch {
	case e.ExitCode != nil && *e.ExitCode != 0:
		head = fmt.Sprintf("subprocess failed with exit code %d", *e.ExitCode)
	case e.ExitCode == nil && e.Signal != "":
		head = fmt.Sprintf("subprocess terminated by signal %s", e.Signal)
	case e.ExitCode == nil:
		head = "subprocess terminated without exit code"
	default:
		head = "subprocess output could not be parsed"
	}
	if e.Cause != nil {
		head = fmt.Sprintf("%s: %v", head, e.Cause)
	}
	return fmt.Sprintf("%s:\n%s\n%s", head, e.Stdout, e.Stderr)
}

// Unwrap returns the underlying cause.
func (e *WorkerFailureError) Unwrap() error {
	return e.Cause
}

// AbortedError describes a unit which was never started because the run was aborted by a worker failure or an
// interrupt.
type AbortedError struct {
	// Path describes the contract path of the unit.
	Path string

	// Cause describes what triggered the abort.
	Cause error
}

// Error implements the error interface.
func (e *AbortedError) Error() string {
	return fmt.Sprintf("compilation of %s aborted: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *AbortedError) Unwrap() error {
	return e.Cause
}
