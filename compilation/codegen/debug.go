package codegen

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/crytic/solbuild/compilation/evmobject"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/utils"
)

// debugFileName returns the name of the debug dump of a unit. Path separators and colons are replaced so that every
// unit maps to a single file within the debug directory.
func debugFileName(unit *types.CompilationUnit) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", ".").Replace(unit.Name.FullPath)
	return fmt.Sprintf("%s.%s.evm", name, unit.Segment)
}

// dumpModule writes the lowered code and relocations of a module to the debug directory.
func dumpModule(directory string, unit *types.CompilationUnit, module *evmobject.Module) error {
	file, err := utils.CreateFile(directory, debugFileName(unit))
	if err != nil {
		return err
	}
	defer file.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "; %s\n%s\n", module.Identifier, hex.EncodeToString(module.Code))
	for _, relocation := range module.Relocations {
		fmt.Fprintf(&b, "; %s %s @ %d\n", relocation.Kind, relocation.Symbol, relocation.Offset)
	}
	_, err = file.WriteString(b.String())
	return err
}
