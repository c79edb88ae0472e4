package types

import "golang.org/x/exp/slices"

// Dependencies describes the ordered list of object identifiers an object embeds in its bytecode: its own runtime code
// (for deploy code) and the deploy code of any contract it creates via CREATE or CREATE2.
type Dependencies struct {
	// Identifier describes the identifier of the object owning these dependencies.
	Identifier string `json:"identifier"`

	// Inner describes the dependency identifiers in order of first reference.
	Inner []string `json:"inner"`
}

// NewDependencies returns an empty dependency list for the object with the given identifier.
func NewDependencies(identifier string) *Dependencies {
	return &Dependencies{
		Identifier: identifier,
		Inner:      make([]string, 0),
	}
}

// Push appends a dependency if it is neither the owner itself nor already present.
func (d *Dependencies) Push(identifier string) {
	if identifier == d.Identifier || d.Contains(identifier) {
		return
	}
	d.Inner = append(d.Inner, identifier)
}

// Contains returns a boolean indicating whether the identifier is already a dependency.
func (d *Dependencies) Contains(identifier string) bool {
	return slices.Contains(d.Inner, identifier)
}

// Len returns the number of dependencies.
func (d *Dependencies) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Inner)
}
