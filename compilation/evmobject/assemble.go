package evmobject

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// EmbeddingOverhead is the number of separator bytes placed before every embedded dependency.
const EmbeddingOverhead = 1

// separator is the INVALID opcode placed between embedded objects so that execution never falls through into them.
const separator = 0xfe

// Fragment describes finalized code ready to be embedded into other objects.
type Fragment struct {
	// Identifier describes the object identifier of the fragment.
	Identifier string

	// Code describes the finalized code, with zeroed library placeholders.
	Code []byte

	// Unlinked maps library names to the offsets of their placeholders within Code.
	Unlinked map[string][]uint64
}

// Assemble combines a module with the finalized fragments of its dependencies. The resulting layout is the module
// code, the metadata (if any), then every dependency in order of first reference, each preceded by a separator byte.
// Data relocations are patched with big-endian offsets and sizes; library references of the module and of every
// embedded dependency are collected, shifted to their final position.
func Assemble(module *Module, dependencies []Fragment, metadata []byte) (*Fragment, error) {
	byIdentifier := make(map[string]*Fragment, len(dependencies))
	for i := range dependencies {
		byIdentifier[dependencies[i].Identifier] = &dependencies[i]
	}

	order := module.Dependencies()

	// Compute the layout of the final code before writing anything.
	type placement struct {
		offset uint64
		size   uint64
	}
	placements := make(map[string]placement, order.Len())
	size := uint64(len(module.Code)) + uint64(len(metadata))
	for _, identifier := range order.Inner {
		dependency, ok := byIdentifier[identifier]
		if !ok {
			return nil, errors.Wrapf(ErrMalformedBytecode, "object '%s' references missing dependency '%s'", module.Identifier, identifier)
		}
		size += EmbeddingOverhead
		placements[identifier] = placement{offset: size, size: uint64(len(dependency.Code))}
		size += uint64(len(dependency.Code))
	}
	placements[module.Identifier] = placement{offset: 0, size: size}

	code := make([]byte, 0, size)
	code = append(code, module.Code...)
	code = append(code, metadata...)
	unlinked := make(map[string][]uint64)

	for _, relocation := range module.Relocations {
		end := relocation.Offset + relocation.Kind.ImmediateSize()
		if end > uint64(len(module.Code)) {
			return nil, errors.Wrapf(ErrMalformedBytecode, "relocation of '%s' at offset %d is out of bounds", relocation.Symbol, relocation.Offset)
		}

		switch relocation.Kind {
		case RelocationLinkerSymbol:
			unlinked[relocation.Symbol] = append(unlinked[relocation.Symbol], relocation.Offset)
		case RelocationDataOffset, RelocationDataSize:
			target, ok := placements[relocation.Symbol]
			if !ok {
				return nil, errors.Wrapf(ErrMalformedBytecode, "object '%s' references unknown object '%s'", module.Identifier, relocation.Symbol)
			}
			value := target.offset
			if relocation.Kind == RelocationDataSize {
				value = target.size
			}
			if value > 0xffffffff {
				return nil, errors.Wrapf(ErrMalformedBytecode, "object '%s' exceeds the 4-byte immediate range", relocation.Symbol)
			}
			binary.BigEndian.PutUint32(code[relocation.Offset:end], uint32(value))
		default:
			return nil, errors.Wrapf(ErrMalformedBytecode, "unknown relocation kind '%s'", relocation.Kind)
		}
	}

	for _, identifier := range order.Inner {
		dependency := byIdentifier[identifier]
		position := placements[identifier].offset
		code = append(code, separator)
		code = append(code, dependency.Code...)
		for name, offsets := range dependency.Unlinked {
			for _, offset := range offsets {
				unlinked[name] = append(unlinked[name], position+offset)
			}
		}
	}

	if len(unlinked) == 0 {
		unlinked = nil
	}
	return &Fragment{Identifier: module.Identifier, Code: code, Unlinked: unlinked}, nil
}
