package cache

import (
	"testing"

	"github.com/crytic/solbuild/compilation/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectCache(t *testing.T) {
	directory := t.TempDir()
	cache, err := Open(directory)
	require.NoError(t, err)

	input := map[string]string{"ir": "STOP"}
	_, found, err := cache.Get(input)
	require.NoError(t, err)
	assert.False(t, found)

	object := &types.ContractObject{
		Identifier:   "A_deployed",
		ContractName: types.NewContractName("a.sol", "A"),
		Bytecode:     []byte{0xef, 0x52, 0x00},
		CodeSegment:  types.CodeSegmentRuntime,
		Format:       types.ObjectFormatRelocatable,
	}
	require.NoError(t, cache.Put(input, object))
	require.NoError(t, cache.Close())

	// Entries survive reopening the cache.
	cache, err = Open(directory)
	require.NoError(t, err)
	defer cache.Close()

	cached, found, err := cache.Get(input)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, object.Identifier, cached.Identifier)
	assert.Equal(t, object.Bytecode, cached.Bytecode)
	assert.Equal(t, object.CodeSegment, cached.CodeSegment)

	_, found, err = cache.Get(map[string]string{"ir": "INVALID"})
	require.NoError(t, err)
	assert.False(t, found)
}
