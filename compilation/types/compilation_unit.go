package types

import (
	"fmt"

	"golang.org/x/exp/maps"
)

// CompilationUnit describes a single code segment of a contract submitted to a worker. Units are never modified once
// they are handed to the dispatcher; use the With* helpers to derive a copy.
type CompilationUnit struct {
	// Name describes the contract the unit belongs to.
	Name ContractName `json:"name"`

	// Segment describes whether this unit produces deploy or runtime code.
	Segment CodeSegment `json:"segment"`

	// Identifier describes the object identifier the unit's output is known by to other objects.
	Identifier string `json:"identifier"`

	// IR describes the textual intermediate representation of the unit.
	IR string `json:"ir"`

	// IdentifierPaths maps every object identifier in the project to the contract path that produces it.
	IdentifierPaths map[string]string `json:"identifier_paths"`

	// Immutables maps immutable keys to their offsets within the sibling runtime object. It is only set on deploy
	// units, once the runtime unit of the same contract has been compiled.
	Immutables map[string][]uint64 `json:"immutables,omitempty"`

	// MetadataJSON describes the contract metadata document whose hash is appended to runtime code.
	MetadataJSON string `json:"metadata_json,omitempty"`

	// SpillAreaSize describes the memory reserved for deep stack accesses. Nil means none is reserved.
	SpillAreaSize *uint64 `json:"spill_area_size,omitempty"`

	// Settings describes the project-wide settings the unit is compiled with.
	Settings CompilationSettings `json:"settings"`
}

// Key returns a string uniquely identifying the unit within a project.
func (u *CompilationUnit) Key() string {
	return fmt.Sprintf("%s#%s", u.Name.FullPath, u.Segment)
}

// WithImmutables returns a copy of the unit carrying the provided runtime immutables.
func (u *CompilationUnit) WithImmutables(immutables map[string][]uint64) *CompilationUnit {
	clone := *u
	clone.Immutables = maps.Clone(immutables)
	return &clone
}

// WithSpillAreaSize returns a copy of the unit reserving the provided spill area.
func (u *CompilationUnit) WithSpillAreaSize(size uint64) *CompilationUnit {
	clone := *u
	clone.SpillAreaSize = &size
	return &clone
}
