package evmobject

import (
	"crypto/sha256"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// ipfsChunkSize is the largest file which is stored as a single unixfs leaf node.
const ipfsChunkSize = 256 * 1024

// unixfsTypeFile is the unixfs data type of a plain file.
const unixfsTypeFile = 2

// IPFSHash computes the CIDv0 multihash of data as stored by an IPFS node: a sha2-256 digest over the dag-pb node
// wrapping a unixfs file. Only single-chunk files are supported.
func IPFSHash(data []byte) ([]byte, error) {
	if len(data) > ipfsChunkSize {
		return nil, errors.Errorf("cannot compute the IPFS hash of %d bytes, files above %d bytes are unsupported", len(data), ipfsChunkSize)
	}

	// unixfs Data message: Type, Data, filesize.
	var unixfs []byte
	unixfs = protowire.AppendTag(unixfs, 1, protowire.VarintType)
	unixfs = protowire.AppendVarint(unixfs, unixfsTypeFile)
	unixfs = protowire.AppendTag(unixfs, 2, protowire.BytesType)
	unixfs = protowire.AppendBytes(unixfs, data)
	unixfs = protowire.AppendTag(unixfs, 3, protowire.VarintType)
	unixfs = protowire.AppendVarint(unixfs, uint64(len(data)))

	// dag-pb PBNode with no links.
	var node []byte
	node = protowire.AppendTag(node, 1, protowire.BytesType)
	node = protowire.AppendBytes(node, unixfs)

	digest := sha256.Sum256(node)
	return append([]byte{0x12, 0x20}, digest[:]...), nil
}
