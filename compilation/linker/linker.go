package linker

import (
	"fmt"
	"strings"

	"github.com/crytic/solbuild/compilation/evmobject"
	"github.com/crytic/solbuild/compilation/types"
	"golang.org/x/exp/slices"
)

// UnlinkedLibraryError describes an object which still references libraries after linking, while fully linked output
// was requested.
type UnlinkedLibraryError struct {
	// Identifier describes the object.
	Identifier string

	// ContractName describes the contract the object belongs to.
	ContractName types.ContractName

	// Libraries describes the names of the unlinked libraries, sorted.
	Libraries []string
}

// Error implements the error interface.
func (e *UnlinkedLibraryError) Error() string {
	return fmt.Sprintf("object '%s' of %s references unlinked libraries: %s", e.Identifier, e.ContractName, strings.Join(e.Libraries, ", "))
}

// Link writes the address of every library present in symbols over its placeholders in every assembled object.
// Libraries missing from symbols keep their placeholders; when requireFullyLinked is set, each object left with
// placeholders yields an UnlinkedLibraryError. Linking is idempotent.
func Link(objects []*types.ContractObject, symbols types.LinkerSymbols, requireFullyLinked bool) []error {
	var errs []error
	for _, object := range objects {
		if !object.IsAssembled {
			errs = append(errs, fmt.Errorf("object '%s' cannot be linked before it is assembled", object.Identifier))
			continue
		}

		if len(object.UnlinkedLibraries) > 0 && len(symbols) > 0 {
			linked, remaining, err := evmobject.Link(object.Bytecode, object.UnlinkedLibraries, symbols)
			if err != nil {
				errs = append(errs, fmt.Errorf("could not link '%s': %w", object.Identifier, err))
				continue
			}
			object.Bytecode = linked
			object.UnlinkedLibraries = remaining
		}

		if len(object.UnlinkedLibraries) == 0 {
			object.Format = types.ObjectFormatLinked
			continue
		}
		object.Format = types.ObjectFormatUnlinked
		if requireFullyLinked {
			libraries := make([]string, 0, len(object.UnlinkedLibraries))
			for name := range object.UnlinkedLibraries {
				libraries = append(libraries, name)
			}
			slices.Sort(libraries)
			errs = append(errs, &UnlinkedLibraryError{Identifier: object.Identifier, ContractName: object.ContractName, Libraries: libraries})
		}
	}
	return errs
}
