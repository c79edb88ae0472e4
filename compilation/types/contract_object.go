package types

import (
	"github.com/crytic/medusa-geth/common/hexutil"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ObjectFormat describes the lifecycle stage of a ContractObject's bytecode.
type ObjectFormat string

const (
	// ObjectFormatRelocatable describes a worker output: an encoded module whose dependency references are not yet
	// resolved.
	ObjectFormatRelocatable ObjectFormat = "relocatable"
	// ObjectFormatUnlinked describes assembled bytecode which still carries library placeholders.
	ObjectFormatUnlinked ObjectFormat = "unlinked"
	// ObjectFormatLinked describes final bytecode with no outstanding library references.
	ObjectFormatLinked ObjectFormat = "linked"
)

// LinkReferenceLength is the byte length of an address written over a library placeholder.
const LinkReferenceLength = 20

// LinkReference describes a single placeholder location within bytecode.
type LinkReference struct {
	// Start describes the byte offset of the placeholder.
	Start uint64 `json:"start"`

	// Length describes the byte length of the placeholder.
	Length uint64 `json:"length"`
}

// ContractObject describes the compiled output of a single CompilationUnit as it moves through assembly and linking.
type ContractObject struct {
	// Identifier describes the object identifier other objects reference this object by.
	Identifier string `json:"identifier"`

	// ContractName describes the contract the object belongs to.
	ContractName ContractName `json:"contract_name"`

	// Bytecode describes the object's code. Its interpretation depends on Format.
	Bytecode hexutil.Bytes `json:"bytecode"`

	// CodeSegment describes whether this is deploy or runtime code.
	CodeSegment CodeSegment `json:"code_segment"`

	// Dependencies describes the identifiers of the objects that must be embedded into this one.
	Dependencies Dependencies `json:"dependencies"`

	// UnlinkedLibraries maps library names to the byte offsets of their placeholders.
	UnlinkedLibraries map[string][]uint64 `json:"unlinked_libraries,omitempty"`

	// IsAssembled describes whether every dependency has been embedded.
	IsAssembled bool `json:"is_assembled"`

	// Format describes the lifecycle stage of Bytecode.
	Format ObjectFormat `json:"format"`

	// MetadataBytes describes the CBOR metadata appended to runtime code during assembly.
	MetadataBytes hexutil.Bytes `json:"metadata_bytes,omitempty"`

	// Immutables maps immutable keys to their offsets within runtime code.
	Immutables map[string][]uint64 `json:"immutables,omitempty"`

	// Assembly describes the lowered text assembly listing, if it was selected for output.
	Assembly string `json:"assembly,omitempty"`

	// Warnings describes non-fatal messages produced while compiling the object.
	Warnings []string `json:"warnings,omitempty"`
}

// RequiresAssembling returns a boolean indicating whether dependencies still need to be embedded in this object.
func (o *ContractObject) RequiresAssembling() bool {
	return !o.IsAssembled
}

// IsFullyLinked returns a boolean indicating whether no library placeholders remain in the object.
func (o *ContractObject) IsFullyLinked() bool {
	return o.IsAssembled && len(o.UnlinkedLibraries) == 0
}

// LinkReferences returns the placeholder locations of every unlinked library, keyed by library name.
func (o *ContractObject) LinkReferences() map[string][]LinkReference {
	references := make(map[string][]LinkReference, len(o.UnlinkedLibraries))
	for name, offsets := range o.UnlinkedLibraries {
		sorted := slices.Clone(offsets)
		slices.Sort(sorted)
		for _, offset := range sorted {
			references[name] = append(references[name], LinkReference{Start: offset, Length: LinkReferenceLength})
		}
	}
	return references
}

// BytecodeHex returns the hex encoding of the object's bytecode, rendering unlinked libraries as placeholders.
func (o *ContractObject) BytecodeHex() string {
	return EncodeBytecodeHex(o.Bytecode, o.UnlinkedLibraries)
}

// Clone returns a deep copy of the object.
func (o *ContractObject) Clone() *ContractObject {
	clone := *o
	clone.Bytecode = slices.Clone(o.Bytecode)
	clone.MetadataBytes = slices.Clone(o.MetadataBytes)
	clone.Dependencies = Dependencies{Identifier: o.Dependencies.Identifier, Inner: slices.Clone(o.Dependencies.Inner)}
	clone.UnlinkedLibraries = cloneOffsets(o.UnlinkedLibraries)
	clone.Immutables = cloneOffsets(o.Immutables)
	clone.Warnings = slices.Clone(o.Warnings)
	return &clone
}

// cloneOffsets deep copies an offset table.
func cloneOffsets(offsets map[string][]uint64) map[string][]uint64 {
	if offsets == nil {
		return nil
	}
	clone := maps.Clone(offsets)
	for name, list := range clone {
		clone[name] = slices.Clone(list)
	}
	return clone
}
