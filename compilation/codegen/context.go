package codegen

import (
	"fmt"
	"strings"

	"github.com/crytic/solbuild/compilation/diagnostics"
	"github.com/crytic/solbuild/compilation/evmobject"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/pkg/errors"
)

// fatalErrorHandler converts a backend panic raised while compiling a unit into an error.
type fatalErrorHandler func(unit *types.CompilationUnit, recovered any) error

// Context describes a backend context. A Context belongs to exactly one worker and is never shared: it must be
// started before use and closed once the worker is done with it.
type Context struct {
	// version describes the compiler version embedded in metadata.
	version string

	// onFatal describes the fatal-error handler installed by Start. It is nil outside of the context's lifetime.
	onFatal fatalErrorHandler

	// closed describes whether Close was called.
	closed bool
}

// NewContext creates a new, unstarted backend Context.
func NewContext(version string) *Context {
	return &Context{version: version}
}

// Start installs the fatal-error handler of the context, which turns backend panics into an InternalError for the
// unit being compiled. A context can only be started once.
func (c *Context) Start() error {
	if c.onFatal != nil || c.closed {
		return errors.New("backend context cannot be started twice")
	}
	c.onFatal = internalFatalError
	return nil
}

// Close uninstalls the fatal-error handler. Closing an already closed context is a no-op.
func (c *Context) Close() {
	c.onFatal = nil
	c.closed = true
}

// internalFatalError is the fatal-error handler of a started Context.
func internalFatalError(unit *types.CompilationUnit, recovered any) error {
	return diagnostics.NewInternalError("backend failure while compiling %s: %v", unit.Key(), recovered)
}

// Compile lowers a single compilation unit into a relocatable ContractObject. Backend panics are passed to the
// fatal-error handler installed by Start instead of crashing the worker.
func (c *Context) Compile(unit *types.CompilationUnit) (object *types.ContractObject, err error) {
	onFatal := c.onFatal
	if onFatal == nil {
		return nil, diagnostics.NewInternalError("backend context used outside of its lifetime")
	}
	defer func() {
		if r := recover(); r != nil {
			object = nil
			err = onFatal(unit, r)
		}
	}()

	return c.compile(unit, unit.Settings.Optimizer)
}

// compile runs the backend pipeline with the given optimizer settings, falling back to size optimization once if the
// code exceeds the size limit.
func (c *Context) compile(unit *types.CompilationUnit, optimizer types.OptimizerSettings) (*types.ContractObject, error) {
	instructions, err := parse(unit.IR)
	if err != nil {
		return nil, err
	}
	instructions = optimize(instructions, optimizer.Mode)

	var spillAreaSize uint64
	if unit.SpillAreaSize != nil {
		spillAreaSize = *unit.SpillAreaSize
	}
	if required := requiredSpillArea(instructions); required > spillAreaSize {
		return nil, diagnostics.NewStackTooDeepError(required, optimizer.IsFallbackToSize).WithUnit(unit.Name, unit.Segment)
	}

	lowered, err := lower(unit, instructions, optimizer.Mode)
	if err != nil {
		return nil, err
	}

	var warnings []string
	if len(lowered.code) > MaxCodeSize {
		if optimizer.SizeFallback && !optimizer.IsFallbackToSize {
			fallback := optimizer
			fallback.Mode = types.OptimizerModeSizeAggressive
			fallback.IsFallbackToSize = true
			return c.compile(unit, fallback)
		}
		warnings = append(warnings, fmt.Sprintf("%s code of %s is %d bytes, exceeding the %d byte limit", unit.Segment, unit.Name, len(lowered.code), MaxCodeSize))
	}

	module := &evmobject.Module{
		Identifier:  unit.Identifier,
		Segment:     unit.Segment.String(),
		Code:        lowered.code,
		Relocations: lowered.relocations,
	}
	encoded, err := module.Encode()
	if err != nil {
		return nil, diagnostics.NewInternalError("could not encode module of %s: %v", unit.Key(), err)
	}

	object := &types.ContractObject{
		Identifier:   unit.Identifier,
		ContractName: unit.Name,
		Bytecode:     encoded,
		CodeSegment:  unit.Segment,
		Dependencies: module.Dependencies(),
		Format:       types.ObjectFormatRelocatable,
		Warnings:     warnings,
	}
	if unit.Segment == types.CodeSegmentRuntime {
		object.Immutables = lowered.immutables
		object.MetadataBytes, err = evmobject.BuildMetadata(unit.Settings.MetadataHash, unit.MetadataJSON, unit.Settings.AppendCBOR, c.version)
		if err != nil {
			return nil, diagnostics.NewError("", err.Error(), nil)
		}
	}
	if unit.Settings.IsSelected(types.OutputSelectionAssembly) {
		object.Assembly = listing(instructions)
	}

	if unit.Settings.DebugOutputDir != "" {
		if err := dumpModule(unit.Settings.DebugOutputDir, unit, module); err != nil {
			return nil, err
		}
	}
	return object, nil
}

// listing renders instructions as a text assembly listing.
func listing(instructions []instruction) string {
	var b strings.Builder
	for _, i := range instructions {
		if !i.isLabel() {
			b.WriteString("    ")
		}
		b.WriteString(i.String())
		b.WriteByte('\n')
	}
	return b.String()
}
