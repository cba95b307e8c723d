package tree

import (
	"fmt"
	"math/bits"

	"github.com/0xPolygon/cdk-merkle/tree/types"
)

// AppendOnlyTree is a tree where leaves are added sequentially (by index).
// Only the roots of the complete subtrees (peaks) are kept, one per set bit of
// the leaf count.
type AppendOnlyTree struct {
	lastLeftCache [64]types.Digest
	numLeaves     uint64
}

// NewAppendOnlyTree creates an empty AppendOnlyTree
func NewAppendOnlyTree() *AppendOnlyTree {
	return &AppendOnlyTree{}
}

// AddLeaves adds a list leaves into the tree. The indexes of the leaves must be consecutive,
// starting by the index of the last leaf added +1
// It returns a function that restores the state the tree had before the call
func (t *AppendOnlyTree) AddLeaves(leaves []types.Leaf) (func(), error) {
	// Sanity check
	if len(leaves) == 0 {
		return func() {}, nil
	}

	backupNumLeaves := t.numLeaves
	backupCache := t.lastLeftCache
	rollback := func() {
		t.numLeaves = backupNumLeaves
		t.lastLeftCache = backupCache
	}

	for _, leaf := range leaves {
		if err := t.addLeaf(leaf); err != nil {
			return rollback, err
		}
	}

	return rollback, nil
}

func (t *AppendOnlyTree) addLeaf(leaf types.Leaf) error {
	if leaf.Index != t.numLeaves {
		return fmt.Errorf(
			"mismatched index. Expected: %d, actual: %d",
			t.numLeaves, leaf.Index,
		)
	}
	currentChildHash := LeafDigest(leaf.Data)
	h := 0
	// every set low bit is a peak of the same height that merges with the new node
	for ; t.numLeaves&(1<<h) != 0; h++ {
		currentChildHash = NodeDigest(t.lastLeftCache[h], currentChildHash)
	}
	t.lastLeftCache[h] = currentChildHash
	t.numLeaves++
	return nil
}

// LeafCount returns the number of leaves added so far
func (t *AppendOnlyTree) LeafCount() uint64 {
	return t.numLeaves
}

// Frontier returns the proof of the next leaf to be appended: the peaks of the
// tree from the lowest to the highest. All of them are left siblings.
func (t *AppendOnlyTree) Frontier() types.Proof {
	proof := make(types.Proof, 0, bits.OnesCount64(t.numLeaves))
	for h := 0; h < 64; h++ {
		if t.numLeaves&(1<<h) != 0 {
			proof = append(proof, t.lastLeftCache[h])
		}
	}
	return proof
}

// Root returns the root of the tree, Empty when no leaves were added
func (t *AppendOnlyTree) Root() types.Digest {
	return recomposeRoot(t.Frontier())
}

// Append returns the root of the tree with numLeaves leaves after adding data
// as a new leaf. proof is the proof of the new leaf in the grown tree, as
// returned by Frontier.
func Append(numLeaves uint64, data []byte, proof types.Proof) (types.Digest, error) {
	if expected := PathLength(numLeaves, numLeaves+1); uint64(len(proof)) != expected {
		return types.Digest{}, fmt.Errorf("%w: append proof has %d siblings, expected %d",
			types.ErrMalformedProof, len(proof), expected)
	}
	digest := LeafDigest(data)
	for _, sibling := range proof {
		digest = NodeDigest(sibling, digest)
	}
	return digest, nil
}

// AppendToRoot works like Append but first checks that the siblings of proof
// compose root
func AppendToRoot(root types.Digest, numLeaves uint64, data []byte, proof types.Proof) (types.Digest, error) {
	newRoot, err := Append(numLeaves, data, proof)
	if err != nil {
		return types.Digest{}, err
	}
	if oldRoot := recomposeRoot(proof); oldRoot != root {
		return types.Digest{}, fmt.Errorf("%w: append proof composes %s, expected %s",
			types.ErrProofMismatch, oldRoot.Hex(), root.Hex())
	}
	return newRoot, nil
}

func recomposeRoot(peaks types.Proof) types.Digest {
	if len(peaks) == 0 {
		return Empty
	}
	root := peaks[0]
	for _, peak := range peaks[1:] {
		root = NodeDigest(peak, root)
	}
	return root
}
