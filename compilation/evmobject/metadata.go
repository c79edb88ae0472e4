package evmobject

import (
	"encoding/binary"

	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/fxamacker/cbor"
	"github.com/pkg/errors"
)

// Metadata describes the CBOR map appended to runtime code.
type Metadata struct {
	// IPFS describes the IPFS multihash of the metadata document.
	IPFS []byte `cbor:"ipfs,omitempty"`

	// Keccak256 describes the keccak256 hash of the metadata document.
	Keccak256 []byte `cbor:"keccak256,omitempty"`

	// Solbuild describes the version of the compiler which produced the code.
	Solbuild string `cbor:"solbuild,omitempty"`
}

// BuildMetadata returns the bytes appended to runtime code for a metadata document: the CBOR encoded Metadata
// followed by its length as a 2-byte big-endian integer. Nothing is appended if appendCBOR is false.
func BuildMetadata(hashType types.MetadataHashType, metadataJSON string, appendCBOR bool, version string) ([]byte, error) {
	if !appendCBOR {
		return nil, nil
	}

	metadata := Metadata{Solbuild: version}
	switch hashType {
	case types.MetadataHashNone, "":
	case types.MetadataHashIPFS:
		hash, err := IPFSHash([]byte(metadataJSON))
		if err != nil {
			return nil, err
		}
		metadata.IPFS = hash
	case types.MetadataHashKeccak256:
		metadata.Keccak256 = crypto.Keccak256([]byte(metadataJSON))
	default:
		return nil, errors.Errorf("unsupported metadata hash type '%s'", hashType)
	}

	data, err := cbor.Marshal(metadata, cbor.EncOptions{})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(data) > 0xffff {
		return nil, errors.Errorf("metadata of %d bytes does not fit its length suffix", len(data))
	}
	return binary.BigEndian.AppendUint16(data, uint16(len(data))), nil
}

// ExtractMetadata decodes the metadata appended to the end of runtime code. It returns nil if the code does not end
// with a decodable metadata map.
func ExtractMetadata(code []byte) *Metadata {
	if len(code) < 2 {
		return nil
	}
	length := int(binary.BigEndian.Uint16(code[len(code)-2:]))
	start := len(code) - 2 - length
	if length == 0 || start < 0 {
		return nil
	}

	var metadata Metadata
	if err := cbor.Unmarshal(code[start:len(code)-2], &metadata); err != nil {
		return nil
	}
	return &metadata
}
