package types

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a.sol:A", NewContractName("a.sol", "A").FullPath)
	assert.Equal(t, "a.yul", NewContractName("a.yul", "").FullPath)

	name := ParseContractName(`C:\contracts\a.sol:A`)
	assert.Equal(t, `C:\contracts\a.sol`, name.Path)
	assert.Equal(t, "A", name.Name)

	name = ParseContractName("a.yul")
	assert.Equal(t, "a.yul", name.Path)
	assert.Empty(t, name.Name)
}

func TestDependencies(t *testing.T) {
	t.Parallel()

	dependencies := NewDependencies("A")
	for _, identifier := range []string{"A_deployed", "B", "A", "A_deployed"} {
		dependencies.Push(identifier)
	}
	assert.Equal(t, []string{"A_deployed", "B"}, dependencies.Inner)
	assert.Equal(t, 2, dependencies.Len())

	var missing *Dependencies
	assert.Zero(t, missing.Len())
}

func TestCompilationUnit_With(t *testing.T) {
	t.Parallel()

	unit := &CompilationUnit{Name: NewContractName("a.sol", "A"), Segment: CodeSegmentDeploy}
	immutables := map[string][]uint64{"owner": {1}}
	withImmutables := unit.WithImmutables(immutables)
	withSpill := unit.WithSpillAreaSize(64)

	immutables["owner"] = append(immutables["owner"], 2)
	assert.Nil(t, unit.Immutables)
	assert.Nil(t, unit.SpillAreaSize)
	assert.Equal(t, []uint64{1}, withImmutables.Immutables["owner"])
	assert.EqualValues(t, 64, *withSpill.SpillAreaSize)
	assert.Equal(t, "a.sol:A#deploy", unit.Key())
}

func TestCodeSegment_JSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(map[string]CodeSegment{"s": CodeSegmentRuntime})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"runtime"}`, string(b))

	var segment CodeSegment
	require.NoError(t, json.Unmarshal([]byte(`"deploy"`), &segment))
	assert.Equal(t, CodeSegmentDeploy, segment)
	assert.Error(t, json.Unmarshal([]byte(`"init"`), &segment))
}

func TestOptimizerMode(t *testing.T) {
	t.Parallel()

	for _, mode := range []string{"0", "1", "2", "3", "s", "z"} {
		parsed, err := ParseOptimizerMode(mode)
		require.NoError(t, err, mode)
		assert.Equal(t, mode, parsed.String())
	}
	for _, mode := range []string{"", "4", "zz", "O3"} {
		_, err := ParseOptimizerMode(mode)
		assert.Error(t, err, mode)
	}
	assert.True(t, OptimizerModeSizeAggressive.IsSizeOriented())
	assert.False(t, OptimizerModeAggressive.IsSizeOriented())

	_, err := ParseMetadataHashType("sha256")
	assert.Error(t, err)

	settings := DefaultCompilationSettings()
	assert.True(t, settings.IsSelected(OutputSelectionBytecode))
	assert.False(t, settings.IsSelected(OutputSelectionAssembly))
	settings.OutputSelection = []string{"*"}
	assert.True(t, settings.IsSelected(OutputSelectionAssembly))
}

func TestParseLibraries(t *testing.T) {
	t.Parallel()

	symbols, err := ParseLibraries([]string{
		"lib.sol:L = 0x1111111111111111111111111111111111111111",
		"lib.sol:M=0x2222222222222222222222222222222222222222",
		"lib.sol:L=0x1111111111111111111111111111111111111111",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"lib.sol:L", "lib.sol:M"}, symbols.Names())
	assert.Equal(t, common.HexToAddress("0x2222222222222222222222222222222222222222"), symbols["lib.sol:M"])

	invalid := [][]string{
		{"lib.sol:L"},
		{"L=0x1111111111111111111111111111111111111111"},
		{"lib.sol:L=0x11"},
		{"lib.sol:L=0x1111111111111111111111111111111111111111", "lib.sol:L=0x2222222222222222222222222222222222222222"},
	}
	for _, definitions := range invalid {
		_, err := ParseLibraries(definitions)
		assert.Error(t, err, definitions)
	}
}

func TestBytecodeHex_Placeholders(t *testing.T) {
	t.Parallel()

	placeholder := FormatLibraryPlaceholder("lib.sol:L")
	assert.Len(t, placeholder, 40)
	assert.True(t, strings.HasPrefix(placeholder, "__$") && strings.HasSuffix(placeholder, "$__"))

	code := append(append([]byte{0x73}, make([]byte, 20)...), 0x00)
	unlinked := map[string][]uint64{"lib.sol:L": {1}, "lib.sol:Far": {100}}
	encoded := EncodeBytecodeHex(code, unlinked)
	assert.Equal(t, "73"+placeholder+"00", encoded)

	decoded, placeholders, err := DecodeBytecodeHex("0x" + encoded + "\n")
	require.NoError(t, err)
	assert.Equal(t, code, decoded)
	assert.Equal(t, map[string][]uint64{LibraryPlaceholder("lib.sol:L"): {1}}, placeholders)

	resolved, unresolved := ResolvePlaceholders(placeholders, []string{"lib.sol:M", "lib.sol:L"})
	assert.Equal(t, map[string][]uint64{"lib.sol:L": {1}}, resolved)
	assert.Empty(t, unresolved)

	resolved, unresolved = ResolvePlaceholders(placeholders, nil)
	assert.Empty(t, resolved)
	assert.Equal(t, []string{LibraryPlaceholder("lib.sol:L")}, unresolved)

	// Placeholders must start on a byte boundary.
	_, _, err = DecodeBytecodeHex("7" + placeholder + "0")
	assert.Error(t, err)
}

func TestContractObject_LinkReferences(t *testing.T) {
	t.Parallel()

	object := &ContractObject{
		Bytecode:          make([]byte, 64),
		IsAssembled:       true,
		UnlinkedLibraries: map[string][]uint64{"lib.sol:L": {40, 2}},
	}
	assert.False(t, object.IsFullyLinked())
	assert.Equal(t, []LinkReference{{Start: 2, Length: 20}, {Start: 40, Length: 20}}, object.LinkReferences()["lib.sol:L"])

	clone := object.Clone()
	clone.UnlinkedLibraries["lib.sol:L"][0] = 0
	clone.Bytecode[0] = 1
	assert.EqualValues(t, 40, object.UnlinkedLibraries["lib.sol:L"][0])
	assert.Zero(t, object.Bytecode[0])
}
