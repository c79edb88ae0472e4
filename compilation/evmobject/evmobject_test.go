package evmobject

import (
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModule_EncodeDecode(t *testing.T) {
	t.Parallel()

	module := &Module{
		Identifier: "A",
		Segment:    "deploy",
		Code:       make([]byte, 10),
		Relocations: []Relocation{
			{Kind: RelocationDataOffset, Symbol: "A_deployed", Offset: 1},
			{Kind: RelocationDataSize, Symbol: "A_deployed", Offset: 6},
		},
	}
	encoded, err := module.Encode()
	require.NoError(t, err)
	assert.True(t, IsModule(encoded))

	decoded, err := DecodeModule(encoded)
	require.NoError(t, err)
	assert.Equal(t, module.Identifier, decoded.Identifier)
	assert.Equal(t, module.Relocations, decoded.Relocations)
	assert.Equal(t, []string{"A_deployed"}, decoded.Dependencies().Inner)
}

func TestDecodeModule_Malformed(t *testing.T) {
	t.Parallel()

	_, err := DecodeModule([]byte{0x60, 0x00})
	assert.ErrorIs(t, err, ErrMalformedBytecode)

	_, err = DecodeModule([]byte{0xef, 0x52, 0xff, 0xff})
	assert.ErrorIs(t, err, ErrMalformedBytecode)

	// A relocation past the end of the code is rejected.
	module := &Module{Identifier: "A", Code: []byte{0x00}, Relocations: []Relocation{{Kind: RelocationDataSize, Symbol: "B", Offset: 0}}}
	encoded, err := module.Encode()
	require.NoError(t, err)
	_, err = DecodeModule(encoded)
	assert.ErrorIs(t, err, ErrMalformedBytecode)
}

func TestAssemble_EmbedsDependencies(t *testing.T) {
	t.Parallel()

	// PUSH4 <offset> PUSH4 <size> STOP
	module := &Module{
		Identifier: "A",
		Code:       []byte{0x63, 0, 0, 0, 0, 0x63, 0, 0, 0, 0, 0x00},
		Relocations: []Relocation{
			{Kind: RelocationDataOffset, Symbol: "A_deployed", Offset: 1},
			{Kind: RelocationDataSize, Symbol: "A_deployed", Offset: 6},
		},
	}
	runtime := Fragment{
		Identifier: "A_deployed",
		Code:       append([]byte{0x73}, make([]byte, 20)...),
		Unlinked:   map[string][]uint64{"lib.sol:Lib": {1}},
	}

	fragment, err := Assemble(module, []Fragment{runtime}, nil)
	require.NoError(t, err)

	// The dependency follows the parent code and a separator.
	assert.Len(t, fragment.Code, 11+EmbeddingOverhead+21)
	assert.Equal(t, byte(0xfe), fragment.Code[11])
	assert.Equal(t, []byte{0, 0, 0, 12}, fragment.Code[1:5])
	assert.Equal(t, []byte{0, 0, 0, 21}, fragment.Code[6:10])

	// Library references of the dependency are shifted into the parent.
	assert.Equal(t, map[string][]uint64{"lib.sol:Lib": {13}}, fragment.Unlinked)
}

func TestAssemble_AppendsMetadataBeforeDependencies(t *testing.T) {
	t.Parallel()

	module := &Module{Identifier: "A_deployed", Code: []byte{0x00}}
	fragment, err := Assemble(module, nil, []byte{0xaa, 0xbb})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xaa, 0xbb}, fragment.Code)
	assert.Nil(t, fragment.Unlinked)
}

func TestAssemble_MissingDependency(t *testing.T) {
	t.Parallel()

	module := &Module{
		Identifier:  "A",
		Code:        []byte{0x63, 0, 0, 0, 0},
		Relocations: []Relocation{{Kind: RelocationDataOffset, Symbol: "B", Offset: 1}},
	}
	_, err := Assemble(module, nil, nil)
	assert.True(t, errors.Is(err, ErrMalformedBytecode))
}

func TestLink(t *testing.T) {
	t.Parallel()

	code := append([]byte{0x73}, make([]byte, 20)...)
	unlinked := map[string][]uint64{"lib.sol:Lib": {1}}
	address := common.HexToAddress("0x1234567890123456789012345678901234567890")

	// An empty table leaves everything unlinked.
	linked, remaining, err := Link(code, unlinked, types.LinkerSymbols{})
	require.NoError(t, err)
	assert.Equal(t, code, linked)
	assert.Equal(t, unlinked, remaining)

	linked, remaining, err = Link(code, unlinked, types.LinkerSymbols{"lib.sol:Lib": address})
	require.NoError(t, err)
	assert.Nil(t, remaining)
	assert.Equal(t, address.Bytes(), linked[1:])

	// Linking again is a no-op.
	relinked, remaining, err := Link(linked, remaining, types.LinkerSymbols{"lib.sol:Lib": address})
	require.NoError(t, err)
	assert.Nil(t, remaining)
	assert.Equal(t, linked, relinked)
}

func TestBuildMetadata(t *testing.T) {
	t.Parallel()

	data, err := BuildMetadata(types.MetadataHashIPFS, `{"version":1}`, true, "0.1.0")
	require.NoError(t, err)

	metadata := ExtractMetadata(append([]byte{0x60, 0x00}, data...))
	require.NotNil(t, metadata)
	assert.Len(t, metadata.IPFS, 34)
	assert.Equal(t, []byte{0x12, 0x20}, metadata.IPFS[:2])
	assert.Equal(t, "0.1.0", metadata.Solbuild)

	data, err = BuildMetadata(types.MetadataHashKeccak256, `{"version":1}`, true, "0.1.0")
	require.NoError(t, err)
	metadata = ExtractMetadata(data)
	require.NotNil(t, metadata)
	assert.Len(t, metadata.Keccak256, 32)
	assert.Nil(t, metadata.IPFS)

	data, err = BuildMetadata(types.MetadataHashIPFS, `{}`, false, "0.1.0")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestIPFSHash(t *testing.T) {
	t.Parallel()

	first, err := IPFSHash([]byte("hello"))
	require.NoError(t, err)
	second, err := IPFSHash([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = IPFSHash(make([]byte, ipfsChunkSize+1))
	assert.Error(t, err)
}
