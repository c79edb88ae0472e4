package build

import (
	stderrors "errors"
	"sort"
	"strings"

	"github.com/crytic/solbuild/compilation/assembler"
	"github.com/crytic/solbuild/compilation/diagnostics"
	"github.com/crytic/solbuild/compilation/linker"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/pkg/errors"
)

// Build describes the outcome of compiling a project: one result per contract path plus build-level messages.
type Build struct {
	// Results maps contract paths to their compiled contract or error.
	Results map[string]*types.ContractResult

	// Messages describes diagnostics which are not attached to a single result, such as warnings and link errors.
	Messages []*diagnostics.Diagnostic
}

// Error describes a build which finished with errors.
type Error struct {
	// Diagnostics describes every error of the build.
	Diagnostics []*diagnostics.Diagnostic
}

// Error implements the error interface.
func (e *Error) Error() string {
	messages := make([]string, len(e.Diagnostics))
	for i, diagnostic := range e.Diagnostics {
		messages[i] = diagnostic.Error()
	}
	return strings.Join(messages, "\n")
}

// NewBuild creates a Build from dispatcher results. Warnings carried by compiled objects are moved into the build
// messages.
func NewBuild(results map[string]*types.ContractResult, messages []*diagnostics.Diagnostic) *Build {
	if results == nil {
		results = make(map[string]*types.ContractResult)
	}
	build := &Build{Results: results, Messages: messages}
	for _, path := range build.paths() {
		result := results[path]
		if result.Contract == nil {
			continue
		}
		for _, object := range result.Contract.Objects() {
			for _, warning := range object.Warnings {
				build.Messages = append(build.Messages, diagnostics.NewWarning("", warning, diagnostics.NewSourceLocation(path)))
			}
			object.Warnings = nil
		}
	}
	return build
}

// paths returns the contract paths of the build, sorted.
func (b *Build) paths() []string {
	paths := make([]string, 0, len(b.Results))
	for path := range b.Results {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// objects returns the objects of every successfully compiled contract, in path order.
func (b *Build) objects() []*types.ContractObject {
	var objects []*types.ContractObject
	for _, path := range b.paths() {
		if contract := b.Results[path].Contract; contract != nil {
			objects = append(objects, contract.Objects()...)
		}
	}
	return objects
}

// Link assembles every object of the build and links it against the given libraries. Failures to assemble or link are
// fatal: the returned Build then carries no results, only diagnostics. When requireFullyLinked is set, objects left
// with library placeholders are reported as errors of their contract.
func (b *Build) Link(symbols types.LinkerSymbols, requireFullyLinked bool) *Build {
	if _, err := assembler.Assemble(b.objects()); err != nil {
		return b.fatal(err)
	}

	var unlinkedMessages []*diagnostics.Diagnostic
	var fatalErrs []error
	for _, err := range linker.Link(b.objects(), symbols, requireFullyLinked) {
		var unlinked *linker.UnlinkedLibraryError
		if errors.As(err, &unlinked) {
			unlinkedMessages = append(unlinkedMessages, diagnostics.Classify(err, unlinked.ContractName.FullPath))
			continue
		}
		fatalErrs = append(fatalErrs, err)
	}
	if len(fatalErrs) > 0 {
		return b.fatal(stderrors.Join(fatalErrs...))
	}
	b.Messages = append(b.Messages, unlinkedMessages...)
	return b
}

// fatal returns an error-only Build carrying the existing messages and the fatal errors.
func (b *Build) fatal(err error) *Build {
	messages := append(b.Errors(), b.warnings()...)
	for _, inner := range diagnostics.Flatten(err) {
		messages = append(messages, diagnostics.Classify(inner, ""))
	}
	return &Build{Results: make(map[string]*types.ContractResult), Messages: messages}
}

// Errors returns every error of the build: result errors in path order, followed by build-level errors.
func (b *Build) Errors() []*diagnostics.Diagnostic {
	var errs []*diagnostics.Diagnostic
	for _, path := range b.paths() {
		for _, err := range diagnostics.Flatten(b.Results[path].Err) {
			errs = append(errs, diagnostics.Classify(err, path))
		}
	}
	for _, message := range b.Messages {
		if message.IsError() {
			errs = append(errs, message)
		}
	}
	return errs
}

// warnings returns the non-error build messages.
func (b *Build) warnings() []*diagnostics.Diagnostic {
	var warnings []*diagnostics.Diagnostic
	for _, message := range b.Messages {
		if !message.IsError() {
			warnings = append(warnings, message)
		}
	}
	return warnings
}

// TakeWarnings removes and returns the non-error build messages.
func (b *Build) TakeWarnings() []*diagnostics.Diagnostic {
	warnings := b.warnings()
	kept := b.Messages[:0]
	for _, message := range b.Messages {
		if message.IsError() {
			kept = append(kept, message)
		}
	}
	b.Messages = kept
	return warnings
}

// HasErrors returns a boolean indicating whether the build has any error.
func (b *Build) HasErrors() bool {
	return len(b.Errors()) > 0
}

// CheckErrors returns an *Error describing every error of the build, or nil if there are none.
func (b *Build) CheckErrors() error {
	if errs := b.Errors(); len(errs) > 0 {
		return &Error{Diagnostics: errs}
	}
	return nil
}

// TakeStackTooDeepErrors removes the results which failed only with stack-too-deep errors and returns those errors,
// in path order.
func (b *Build) TakeStackTooDeepErrors() []*diagnostics.StackTooDeepError {
	var taken []*diagnostics.StackTooDeepError
	for _, path := range b.paths() {
		result := b.Results[path]
		if result.Err == nil {
			continue
		}
		var stackTooDeep []*diagnostics.StackTooDeepError
		for _, err := range diagnostics.Flatten(result.Err) {
			var target *diagnostics.StackTooDeepError
			if !errors.As(err, &target) {
				stackTooDeep = nil
				break
			}
			stackTooDeep = append(stackTooDeep, target)
		}
		if len(stackTooDeep) > 0 {
			taken = append(taken, stackTooDeep...)
			delete(b.Results, path)
		}
	}
	return taken
}
