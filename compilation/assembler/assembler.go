package assembler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/crytic/solbuild/compilation/evmobject"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/pkg/errors"
)

// UnresolvedDependenciesError describes objects whose dependencies can never be finalized, because they are missing
// from the build or form a cycle.
type UnresolvedDependenciesError struct {
	// Identifiers describes every object left unassembled, sorted.
	Identifiers []string

	// Missing maps each unassembled object to the dependencies it is still waiting for.
	Missing map[string][]string
}

// Error implements the error interface.
func (e *UnresolvedDependenciesError) Error() string {
	var b strings.Builder
	b.WriteString("could not resolve dependencies of ")
	b.WriteString(strings.Join(e.Identifiers, ", "))
	for _, identifier := range e.Identifiers {
		fmt.Fprintf(&b, "\n  %s waits for %s", identifier, strings.Join(e.Missing[identifier], ", "))
	}
	return b.String()
}

// Assemble embeds every object's dependencies into it, iterating until every object is assembled. In each round, all
// objects whose dependencies are already assembled are combined from the state at the start of the round; the round's
// results are then applied together, so the outcome does not depend on the order of objects. Every round assembles at
// least one object, so at most len(objects) rounds are needed. A round without progress fails with
// *UnresolvedDependenciesError; a malformed object fails with evmobject.ErrMalformedBytecode.
//
// Objects are updated in place. The number of rounds performed is returned.
func Assemble(objects []*types.ContractObject) (int, error) {
	byIdentifier := make(map[string]*types.ContractObject, len(objects))
	for _, object := range objects {
		if _, exists := byIdentifier[object.Identifier]; exists {
			return 0, errors.Wrapf(evmobject.ErrMalformedBytecode, "duplicate object identifier '%s'", object.Identifier)
		}
		byIdentifier[object.Identifier] = object
	}

	rounds := 0
	for {
		ready := readyObjects(objects, byIdentifier)
		if len(ready) == 0 {
			if remaining := unresolved(objects, byIdentifier); remaining != nil {
				return rounds, remaining
			}
			return rounds, nil
		}
		rounds++

		// Combine every ready object before applying any result.
		fragments := make([]*evmobject.Fragment, len(ready))
		for i, object := range ready {
			fragment, err := combine(object, byIdentifier)
			if err != nil {
				return rounds, err
			}
			fragments[i] = fragment
		}
		for i, object := range ready {
			object.Bytecode = fragments[i].Code
			object.UnlinkedLibraries = fragments[i].Unlinked
			object.IsAssembled = true
			object.Format = types.ObjectFormatUnlinked
			if len(object.UnlinkedLibraries) == 0 {
				object.Format = types.ObjectFormatLinked
			}
		}
	}
}

// readyObjects returns the unassembled objects whose dependencies are all assembled.
func readyObjects(objects []*types.ContractObject, byIdentifier map[string]*types.ContractObject) []*types.ContractObject {
	var ready []*types.ContractObject
	for _, object := range objects {
		if !object.RequiresAssembling() {
			continue
		}
		isReady := true
		for _, dependency := range object.Dependencies.Inner {
			if target, ok := byIdentifier[dependency]; !ok || target.RequiresAssembling() {
				isReady = false
				break
			}
		}
		if isReady {
			ready = append(ready, object)
		}
	}
	return ready
}

// unresolved returns an error listing every unassembled object, or nil if all objects are assembled.
func unresolved(objects []*types.ContractObject, byIdentifier map[string]*types.ContractObject) *UnresolvedDependenciesError {
	err := &UnresolvedDependenciesError{Missing: make(map[string][]string)}
	for _, object := range objects {
		if !object.RequiresAssembling() {
			continue
		}
		err.Identifiers = append(err.Identifiers, object.Identifier)
		for _, dependency := range object.Dependencies.Inner {
			if target, ok := byIdentifier[dependency]; !ok || target.RequiresAssembling() {
				err.Missing[object.Identifier] = append(err.Missing[object.Identifier], dependency)
			}
		}
	}
	if len(err.Identifiers) == 0 {
		return nil
	}
	sort.Strings(err.Identifiers)
	return err
}

// combine decodes a relocatable object and embeds its assembled dependencies and metadata.
func combine(object *types.ContractObject, byIdentifier map[string]*types.ContractObject) (*evmobject.Fragment, error) {
	module, err := evmobject.DecodeModule(object.Bytecode)
	if err != nil {
		return nil, errors.Wrapf(err, "could not assemble '%s'", object.Identifier)
	}

	dependencies := make([]evmobject.Fragment, 0, object.Dependencies.Len())
	for _, identifier := range object.Dependencies.Inner {
		dependency := byIdentifier[identifier]
		dependencies = append(dependencies, evmobject.Fragment{
			Identifier: dependency.Identifier,
			Code:       dependency.Bytecode,
			Unlinked:   dependency.UnlinkedLibraries,
		})
	}

	var metadata []byte
	if object.CodeSegment == types.CodeSegmentRuntime {
		metadata = object.MetadataBytes
	}
	fragment, err := evmobject.Assemble(module, dependencies, metadata)
	if err != nil {
		return nil, errors.Wrapf(err, "could not assemble '%s'", object.Identifier)
	}
	return fragment, nil
}
