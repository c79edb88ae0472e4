package evmobject

import (
	"bytes"

	"github.com/crytic/solbuild/compilation/types"
	"github.com/fxamacker/cbor"
	"github.com/pkg/errors"
)

// ErrMalformedBytecode indicates an object which cannot be decoded or combined with its dependencies.
var ErrMalformedBytecode = errors.New("malformed bytecode")

// moduleMagic prefixes every encoded Module so that raw bytecode is never mistaken for one.
var moduleMagic = []byte{0xef, 0x52}

// RelocationKind describes how a relocation's immediate is resolved.
type RelocationKind string

const (
	// RelocationDataOffset is resolved to the 4-byte offset of an object within the assembled code.
	RelocationDataOffset RelocationKind = "dataoffset"
	// RelocationDataSize is resolved to the 4-byte size of an object within the assembled code.
	RelocationDataSize RelocationKind = "datasize"
	// RelocationLinkerSymbol is left as a 20-byte library placeholder for the linker.
	RelocationLinkerSymbol RelocationKind = "linkersymbol"
)

// ImmediateSize returns the byte width of the immediate the relocation patches.
func (k RelocationKind) ImmediateSize() uint64 {
	if k == RelocationLinkerSymbol {
		return types.LinkReferenceLength
	}
	return 4
}

// IsData returns a boolean indicating whether the relocation refers to another object.
func (k RelocationKind) IsData() bool {
	return k == RelocationDataOffset || k == RelocationDataSize
}

// Relocation describes an immediate within a Module's code which can only be filled in once the module is combined
// with its dependencies, or linked.
type Relocation struct {
	// Kind describes how the immediate is resolved.
	Kind RelocationKind `cbor:"kind"`

	// Symbol describes the object identifier or library name the immediate refers to.
	Symbol string `cbor:"symbol"`

	// Offset describes the byte offset of the immediate within the module code.
	Offset uint64 `cbor:"offset"`
}

// Module describes the relocatable output of a single compilation unit.
type Module struct {
	// Identifier describes the object identifier of the module.
	Identifier string `cbor:"identifier"`

	// Segment describes the code segment the module was produced for.
	Segment string `cbor:"segment"`

	// Code describes the lowered code with zeroed immediates at every relocation.
	Code []byte `cbor:"code"`

	// Relocations describes the unresolved immediates of Code.
	Relocations []Relocation `cbor:"relocations"`
}

// Encode serializes the module into its binary container format.
func (m *Module) Encode() ([]byte, error) {
	data, err := cbor.Marshal(m, cbor.EncOptions{})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return append(bytes.Clone(moduleMagic), data...), nil
}

// DecodeModule deserializes a module produced by Module.Encode. Data which is not an encoded module yields
// ErrMalformedBytecode.
func DecodeModule(data []byte) (*Module, error) {
	if !IsModule(data) {
		return nil, errors.Wrap(ErrMalformedBytecode, "missing module header")
	}
	var module Module
	if err := cbor.Unmarshal(data[len(moduleMagic):], &module); err != nil {
		return nil, errors.Wrapf(ErrMalformedBytecode, "could not decode module: %v", err)
	}
	for _, relocation := range module.Relocations {
		if relocation.Offset+relocation.Kind.ImmediateSize() > uint64(len(module.Code)) {
			return nil, errors.Wrapf(ErrMalformedBytecode, "relocation of '%s' at offset %d is out of bounds", relocation.Symbol, relocation.Offset)
		}
	}
	return &module, nil
}

// IsModule returns a boolean indicating whether the data carries the module header.
func IsModule(data []byte) bool {
	return bytes.HasPrefix(data, moduleMagic)
}

// Dependencies returns the identifiers of the objects the module embeds, in order of first reference.
func (m *Module) Dependencies() types.Dependencies {
	dependencies := types.NewDependencies(m.Identifier)
	for _, relocation := range m.Relocations {
		if relocation.Kind.IsData() {
			dependencies.Push(relocation.Symbol)
		}
	}
	return *dependencies
}

// LinkerSymbols returns the library names the module references.
func (m *Module) LinkerSymbols() []string {
	var symbols []string
	seen := make(map[string]bool)
	for _, relocation := range m.Relocations {
		if relocation.Kind == RelocationLinkerSymbol && !seen[relocation.Symbol] {
			seen[relocation.Symbol] = true
			symbols = append(symbols, relocation.Symbol)
		}
	}
	return symbols
}
