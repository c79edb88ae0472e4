package assembler

import (
	"testing"

	"github.com/crytic/solbuild/compilation/evmobject"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestObject creates a relocatable object whose code pushes the offset of every dependency.
func newTestObject(t *testing.T, identifier string, segment types.CodeSegment, dependencies ...string) *types.ContractObject {
	module := &evmobject.Module{Identifier: identifier, Segment: segment.String()}
	for _, dependency := range dependencies {
		module.Relocations = append(module.Relocations, evmobject.Relocation{
			Kind:   evmobject.RelocationDataOffset,
			Symbol: dependency,
			Offset: uint64(len(module.Code) + 1),
		})
		module.Code = append(module.Code, 0x63, 0, 0, 0, 0)
	}
	module.Code = append(module.Code, 0x00)

	encoded, err := module.Encode()
	require.NoError(t, err)
	return &types.ContractObject{
		Identifier:   identifier,
		ContractName: types.NewContractName(identifier+".sol", identifier),
		Bytecode:     encoded,
		CodeSegment:  segment,
		Dependencies: module.Dependencies(),
		Format:       types.ObjectFormatRelocatable,
	}
}

// testObjects returns deploy code A embedding its runtime code A_runtime, which creates library Lib.
func testObjects(t *testing.T) []*types.ContractObject {
	return []*types.ContractObject{
		newTestObject(t, "A", types.CodeSegmentDeploy, "A_runtime"),
		newTestObject(t, "A_runtime", types.CodeSegmentRuntime, "Lib"),
		newTestObject(t, "Lib", types.CodeSegmentDeploy),
	}
}

func TestAssemble_Chain(t *testing.T) {
	t.Parallel()

	objects := testObjects(t)
	rounds, err := Assemble(objects)
	require.NoError(t, err)
	assert.Equal(t, 3, rounds)

	for _, object := range objects {
		assert.True(t, object.IsAssembled, object.Identifier)
		assert.Equal(t, types.ObjectFormatLinked, object.Format)
	}

	// Lib is a single STOP; A_runtime embeds it after a separator; A embeds the assembled A_runtime.
	lib, runtime, deploy := objects[2], objects[1], objects[0]
	assert.Equal(t, []byte{0x00}, []byte(lib.Bytecode))
	assert.Equal(t, []byte{0x63, 0, 0, 0, 7, 0x00, 0xfe, 0x00}, []byte(runtime.Bytecode))
	assert.Equal(t, append([]byte{0x63, 0, 0, 0, 7, 0x00, 0xfe}, runtime.Bytecode...), []byte(deploy.Bytecode))
}

func TestAssemble_OrderIndependent(t *testing.T) {
	t.Parallel()

	expected := testObjects(t)
	_, err := Assemble(expected)
	require.NoError(t, err)

	permutations := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, permutation := range permutations {
		objects := testObjects(t)
		shuffled := make([]*types.ContractObject, len(objects))
		for i, index := range permutation {
			shuffled[i] = objects[index]
		}

		rounds, err := Assemble(shuffled)
		require.NoError(t, err)
		assert.LessOrEqual(t, rounds, len(objects))
		for i := range objects {
			assert.Equal(t, expected[i].Bytecode, objects[i].Bytecode, "permutation %v", permutation)
		}
	}
}

func TestAssemble_Cycle(t *testing.T) {
	t.Parallel()

	objects := []*types.ContractObject{
		newTestObject(t, "A", types.CodeSegmentRuntime, "B"),
		newTestObject(t, "B", types.CodeSegmentRuntime, "A"),
		newTestObject(t, "C", types.CodeSegmentRuntime),
	}
	rounds, err := Assemble(objects)
	assert.Equal(t, 1, rounds)

	var unresolvedErr *UnresolvedDependenciesError
	require.True(t, errors.As(err, &unresolvedErr))
	assert.Equal(t, []string{"A", "B"}, unresolvedErr.Identifiers)
	assert.Equal(t, []string{"B"}, unresolvedErr.Missing["A"])
	assert.True(t, objects[2].IsAssembled)
}

func TestAssemble_MissingDependency(t *testing.T) {
	t.Parallel()

	objects := []*types.ContractObject{newTestObject(t, "A", types.CodeSegmentRuntime, "Ghost")}
	rounds, err := Assemble(objects)
	assert.Equal(t, 0, rounds)

	var unresolvedErr *UnresolvedDependenciesError
	require.True(t, errors.As(err, &unresolvedErr))
	assert.Equal(t, []string{"A"}, unresolvedErr.Identifiers)
}

func TestAssemble_MalformedBytecode(t *testing.T) {
	t.Parallel()

	object := newTestObject(t, "A", types.CodeSegmentRuntime)
	object.Bytecode = []byte{0x60, 0x00}
	_, err := Assemble([]*types.ContractObject{object})
	assert.ErrorIs(t, err, evmobject.ErrMalformedBytecode)

	_, err = Assemble([]*types.ContractObject{newTestObject(t, "A", types.CodeSegmentRuntime), newTestObject(t, "A", types.CodeSegmentRuntime)})
	assert.ErrorIs(t, err, evmobject.ErrMalformedBytecode)
}

func TestAssemble_CarriesLibraryReferences(t *testing.T) {
	t.Parallel()

	module := &evmobject.Module{
		Identifier:  "Lib_user",
		Code:        append([]byte{0x73}, make([]byte, 20)...),
		Relocations: []evmobject.Relocation{{Kind: evmobject.RelocationLinkerSymbol, Symbol: "lib.sol:L", Offset: 1}},
	}
	encoded, err := module.Encode()
	require.NoError(t, err)
	user := &types.ContractObject{Identifier: "Lib_user", Bytecode: encoded, CodeSegment: types.CodeSegmentDeploy, Dependencies: module.Dependencies()}
	parent := newTestObject(t, "Parent", types.CodeSegmentDeploy, "Lib_user")

	_, err = Assemble([]*types.ContractObject{parent, user})
	require.NoError(t, err)
	assert.Equal(t, types.ObjectFormatUnlinked, parent.Format)
	assert.Equal(t, map[string][]uint64{"lib.sol:L": {8}}, parent.UnlinkedLibraries)
}
