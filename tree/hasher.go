package tree

import (
	"crypto/sha256"

	"github.com/0xPolygon/cdk-merkle/tree/types"
)

const (
	LeafPrefix byte = 0x00
	NodePrefix byte = 0x01
)

// Empty is the root of a tree without leaves, sha256 of the empty string
var Empty = Hash()

// Hash returns the sha256 digest of the concatenation of data
func Hash(data ...[]byte) types.Digest {
	hasher := sha256.New()
	for _, d := range data {
		hasher.Write(d)
	}
	var digest types.Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}

// LeafDigest returns the digest of a leaf holding data
func LeafDigest(data []byte) types.Digest {
	return Hash([]byte{LeafPrefix}, data)
}

// NodeDigest returns the digest of an internal node
func NodeDigest(left, right types.Digest) types.Digest {
	return Hash([]byte{NodePrefix}, left[:], right[:])
}
