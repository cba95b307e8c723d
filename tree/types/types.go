package types

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// DigestLength is the size in bytes of every digest produced by the trees
	DigestLength = common.HashLength
	// MaxHeight is the depth of the sparse tree (one level per key bit)
	MaxHeight = DigestLength * 8
)

var (
	ErrIndexOutOfRange          = errors.New("index out of range")
	ErrMalformedProof           = errors.New("malformed proof")
	ErrProofMismatch            = errors.New("proof does not match root")
	ErrInconsistentSubtreeState = errors.New("inconsistent subtree state")
	ErrNumericOverflow          = errors.New("numeric overflow")
	ErrMismatchedLength         = errors.New("mismatched length")
	ErrNotFound                 = errors.New("not found")
)

// Digest is the 32 byte output of the hash primitive
type Digest = common.Hash

// ZeroDigest is the placeholder for absent sparse subtrees
var ZeroDigest = Digest{}

type Leaf struct {
	Index uint64
	Data  []byte
}

// Proof is an ordered list of sibling digests, from the leaf to the root
type Proof []Digest

// MerkleBranch is an inclusion proof for a single leaf of a binary tree
type MerkleBranch struct {
	Proof Proof
	Key   uint64
	Value []byte
}
