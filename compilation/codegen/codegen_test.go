package codegen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crytic/solbuild/compilation/diagnostics"
	"github.com/crytic/solbuild/compilation/evmobject"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestUnit creates a compilation unit for contract "a.sol:A" with the given IR.
func newTestUnit(segment types.CodeSegment, ir string) *types.CompilationUnit {
	identifier := "A"
	if segment == types.CodeSegmentRuntime {
		identifier = "A_deployed"
	}
	settings := types.DefaultCompilationSettings()
	settings.Optimizer = types.NewOptimizerSettings(types.OptimizerModeNone)
	settings.AppendCBOR = false
	return &types.CompilationUnit{
		Name:            types.NewContractName("a.sol", "A"),
		Segment:         segment,
		Identifier:      identifier,
		IR:              ir,
		IdentifierPaths: map[string]string{"A": "a.sol:A", "A_deployed": "a.sol:A"},
		Settings:        settings,
	}
}

// compileTestUnit compiles a unit with a fresh context and decodes the resulting module.
func compileTestUnit(t *testing.T, unit *types.CompilationUnit) (*types.ContractObject, *evmobject.Module, error) {
	ctx := NewContext("0.1.0")
	require.NoError(t, ctx.Start())
	defer ctx.Close()

	object, err := ctx.Compile(unit)
	if err != nil {
		return nil, nil, err
	}
	module, err := evmobject.DecodeModule(object.Bytecode)
	require.NoError(t, err)
	return object, module, nil
}

func TestCompile_Opcodes(t *testing.T) {
	t.Parallel()

	ir := `
		PUSH 0x80   ; free memory pointer
		PUSH 64
		MSTORE
		tag_1:
		PUSHTAG tag_1
		JUMP
	`
	object, module, err := compileTestUnit(t, newTestUnit(types.CodeSegmentRuntime, ir))
	require.NoError(t, err)

	assert.Equal(t, types.ObjectFormatRelocatable, object.Format)
	assert.False(t, object.IsAssembled)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52, 0x5b, 0x61, 0x00, 0x05, 0x56}, module.Code)
}

func TestCompile_DataReferences(t *testing.T) {
	t.Parallel()

	object, module, err := compileTestUnit(t, newTestUnit(types.CodeSegmentDeploy, "DATASIZE A_deployed\nDATAOFFSET A_deployed\nLINKERSYMBOL lib.sol:Lib"))
	require.NoError(t, err)

	assert.Equal(t, []string{"A_deployed"}, object.Dependencies.Inner)
	require.Len(t, module.Relocations, 3)
	assert.Equal(t, evmobject.Relocation{Kind: evmobject.RelocationDataSize, Symbol: "A_deployed", Offset: 1}, module.Relocations[0])
	assert.Equal(t, evmobject.Relocation{Kind: evmobject.RelocationDataOffset, Symbol: "A_deployed", Offset: 6}, module.Relocations[1])
	assert.Equal(t, evmobject.Relocation{Kind: evmobject.RelocationLinkerSymbol, Symbol: "lib.sol:Lib", Offset: 11}, module.Relocations[2])
}

func TestCompile_UnknownIdentifier(t *testing.T) {
	t.Parallel()

	_, _, err := compileTestUnit(t, newTestUnit(types.CodeSegmentDeploy, "DATAOFFSET B"))
	var diagnostic *diagnostics.Diagnostic
	require.True(t, errors.As(err, &diagnostic))
	assert.True(t, diagnostic.IsError())
	assert.Contains(t, diagnostic.Message, "'B'")
}

func TestCompile_StackTooDeep(t *testing.T) {
	t.Parallel()

	unit := newTestUnit(types.CodeSegmentRuntime, "DUP18\nSWAP17")
	_, _, err := compileTestUnit(t, unit)

	var stackTooDeep *diagnostics.StackTooDeepError
	require.True(t, errors.As(err, &stackTooDeep))
	assert.EqualValues(t, 64, stackTooDeep.SpillAreaSize)
	assert.False(t, stackTooDeep.IsSizeFallback)
	assert.Equal(t, "a.sol:A", stackTooDeep.ContractName.FullPath)

	// Reserving the reported spill area makes the unit compile.
	_, module, err := compileTestUnit(t, unit.WithSpillAreaSize(stackTooDeep.SpillAreaSize))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x61, 0x00, 0xa0, 0x51}, module.Code[:4])
}

func TestCompile_Immutables(t *testing.T) {
	t.Parallel()

	runtime, _, err := compileTestUnit(t, newTestUnit(types.CodeSegmentRuntime, "LOADIMMUTABLE owner\nSTOP\nLOADIMMUTABLE owner"))
	require.NoError(t, err)
	assert.Equal(t, map[string][]uint64{"owner": {1, 35}}, runtime.Immutables)

	// Deploy code cannot be lowered before the runtime immutables are known.
	deploy := newTestUnit(types.CodeSegmentDeploy, "ASSIGNIMMUTABLE owner")
	_, _, err = compileTestUnit(t, deploy)
	assert.Error(t, err)

	_, module, err := compileTestUnit(t, deploy.WithImmutables(runtime.Immutables))
	require.NoError(t, err)
	assert.NotEmpty(t, module.Code)
}

func TestCompile_Peephole(t *testing.T) {
	t.Parallel()

	ir := "PUSH 1\nPOP\nSWAP1\nSWAP1\nPUSH 0"
	unit := newTestUnit(types.CodeSegmentRuntime, ir)
	_, module, err := compileTestUnit(t, unit)
	require.NoError(t, err)
	assert.Len(t, module.Code, 7)

	unit.Settings.Optimizer.Mode = types.OptimizerModeSize
	_, module, err = compileTestUnit(t, unit)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x5f}, module.Code)
}

func TestCompile_SizeFallback(t *testing.T) {
	t.Parallel()

	// Every push of zero takes two bytes unless the size profile lowers it to PUSH0.
	ir := strings.Repeat("PUSH 0\n", MaxCodeSize/2+1)
	unit := newTestUnit(types.CodeSegmentRuntime, ir)

	object, module, err := compileTestUnit(t, unit)
	require.NoError(t, err)
	assert.Len(t, module.Code, MaxCodeSize+2)
	assert.Len(t, object.Warnings, 1)

	unit.Settings.Optimizer.SizeFallback = true
	object, module, err = compileTestUnit(t, unit)
	require.NoError(t, err)
	assert.Len(t, module.Code, MaxCodeSize/2+1)
	assert.Empty(t, object.Warnings)
}

func TestCompile_Metadata(t *testing.T) {
	t.Parallel()

	unit := newTestUnit(types.CodeSegmentRuntime, "STOP")
	unit.Settings.AppendCBOR = true
	unit.MetadataJSON = `{"language":"Solidity"}`
	object, _, err := compileTestUnit(t, unit)
	require.NoError(t, err)
	require.NotEmpty(t, object.MetadataBytes)
	assert.NotNil(t, evmobject.ExtractMetadata(object.MetadataBytes))
}

func TestCompile_SyntaxErrors(t *testing.T) {
	t.Parallel()

	for _, ir := range []string{"FOO", "PUSH", "PUSH1 0x100", "STOP 1", "PUSHTAG tag_9", "tag_1:\ntag_1:"} {
		_, _, err := compileTestUnit(t, newTestUnit(types.CodeSegmentRuntime, ir))
		assert.Error(t, err, ir)
	}
}

func TestCompile_DebugOutput(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	unit := newTestUnit(types.CodeSegmentRuntime, "STOP")
	unit.Settings.DebugOutputDir = directory
	_, _, err := compileTestUnit(t, unit)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(directory, "a.sol.A.runtime.evm"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "A_deployed")
}

func TestContext_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx := NewContext("0.1.0")
	_, err := ctx.Compile(newTestUnit(types.CodeSegmentRuntime, "STOP"))
	var internalErr *diagnostics.InternalError
	assert.True(t, errors.As(err, &internalErr))

	require.NoError(t, ctx.Start())
	assert.Error(t, ctx.Start())
	ctx.Close()
	_, err = ctx.Compile(newTestUnit(types.CodeSegmentRuntime, "STOP"))
	assert.Error(t, err)
}

func TestContext_StartInstallsFatalErrorHandler(t *testing.T) {
	t.Parallel()

	ctx := NewContext("0.1.0")
	assert.Nil(t, ctx.onFatal)

	require.NoError(t, ctx.Start())
	require.NotNil(t, ctx.onFatal)
	err := ctx.onFatal(newTestUnit(types.CodeSegmentRuntime, "STOP"), "out of memory")
	var internalErr *diagnostics.InternalError
	require.True(t, errors.As(err, &internalErr))
	assert.Contains(t, internalErr.Message, "out of memory")

	ctx.Close()
	assert.Nil(t, ctx.onFatal)
}
