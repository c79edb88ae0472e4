package evmobject

import (
	"github.com/crytic/solbuild/compilation/types"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// Link writes the addresses of every library present in symbols over its placeholders. It returns the linked code
// along with the libraries which remain unlinked. Linking already linked code with the same symbols is a no-op.
func Link(code []byte, unlinked map[string][]uint64, symbols types.LinkerSymbols) ([]byte, map[string][]uint64, error) {
	linked := slices.Clone(code)
	var remaining map[string][]uint64
	for name, offsets := range unlinked {
		address, ok := symbols[name]
		if !ok {
			if remaining == nil {
				remaining = make(map[string][]uint64)
			}
			remaining[name] = slices.Clone(offsets)
			continue
		}
		for _, offset := range offsets {
			if offset+types.LinkReferenceLength > uint64(len(linked)) {
				return nil, nil, errors.Errorf("placeholder of library '%s' at offset %d is out of bounds", name, offset)
			}
			copy(linked[offset:offset+types.LinkReferenceLength], address.Bytes())
		}
	}
	return linked, remaining, nil
}
