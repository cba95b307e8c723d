package tree

import (
	"fmt"

	"github.com/0xPolygon/cdk-merkle/log"
	"github.com/0xPolygon/cdk-merkle/tree/types"
)

// span identifies a node of a binary tree by the leaves it covers
type span struct {
	start uint64
	size  uint64
}

// children splits s the same way ConstructTree does: the left child holds the
// largest power of two strictly smaller than s.size
func (s span) children() (span, span) {
	split := uint64(1) << (ceilLog2(s.size) - 1)
	return span{start: s.start, size: split}, span{start: s.start + split, size: s.size - split}
}

// PartialTree is a binary tree that only knows the nodes revealed by the
// branches added to it. It is enough to update any of those leaves and
// recompute the root of the full tree.
type PartialTree struct {
	root      types.Digest
	numLeaves uint64
	nodes     map[span]types.Digest
	leaves    map[uint64]struct{}
	logger    *log.Logger
}

// NewPartialTree creates a PartialTree for a tree with the given root and number of leaves
func NewPartialTree(root types.Digest, numLeaves uint64) *PartialTree {
	return &PartialTree{
		root:      root,
		numLeaves: numLeaves,
		nodes:     map[span]types.Digest{{start: 0, size: numLeaves}: root},
		leaves:    map[uint64]struct{}{},
		logger:    log.WithFields("module", "partialtree"),
	}
}

// Root returns the current root
func (t *PartialTree) Root() types.Digest {
	return t.root
}

// AddBranch verifies branch against the current root and stores the nodes it reveals
func (t *PartialTree) AddBranch(branch types.MerkleBranch) error {
	if !Verify(t.root, branch.Value, branch.Proof, branch.Key, t.numLeaves) {
		t.logger.Debugf("rejected branch for key %d against root %s", branch.Key, t.root.Hex())
		return fmt.Errorf("%w: branch for key %d does not verify against root %s",
			types.ErrInconsistentSubtreeState, branch.Key, t.root.Hex())
	}

	path := t.path(branch.Key)
	// path[0] is the root and the proof is ordered from the leaf up
	for depth := 0; depth+1 < len(path); depth++ {
		left, right := path[depth].children()
		sibling := right
		if path[depth+1] == right {
			sibling = left
		}
		t.nodes[sibling] = branch.Proof[len(branch.Proof)-1-depth]
	}
	t.nodes[span{start: branch.Key, size: 1}] = LeafDigest(branch.Value)
	t.leaves[branch.Key] = struct{}{}
	return nil
}

// Update replaces the data of the leaf at key and returns the new root. The
// branch of key must have been added before.
func (t *PartialTree) Update(key uint64, data []byte) (types.Digest, error) {
	if _, ok := t.leaves[key]; !ok {
		return types.Digest{}, fmt.Errorf("%w: no branch added for key %d", types.ErrNotFound, key)
	}

	path := t.path(key)
	current := LeafDigest(data)
	t.nodes[path[len(path)-1]] = current
	for depth := len(path) - 2; depth >= 0; depth-- { //nolint:mnd
		left, right := path[depth].children()
		leftDigest, okLeft := t.nodes[left]
		rightDigest, okRight := t.nodes[right]
		if !okLeft || !okRight {
			return types.Digest{}, fmt.Errorf("%w: missing child of span [%d, %d)",
				types.ErrInconsistentSubtreeState, path[depth].start, path[depth].start+path[depth].size)
		}
		current = NodeDigest(leftDigest, rightDigest)
		t.nodes[path[depth]] = current
	}
	t.logger.Debugf("updated key %d, root %s -> %s", key, t.root.Hex(), current.Hex())
	t.root = current
	return current, nil
}

// path returns the spans from the root down to the leaf at key
func (t *PartialTree) path(key uint64) []span {
	current := span{start: 0, size: t.numLeaves}
	path := []span{current}
	for current.size > 1 {
		left, right := current.children()
		if key < right.start {
			current = left
		} else {
			current = right
		}
		path = append(path, current)
	}
	return path
}

// AddBranchesAndUpdate rebuilds the part of the tree revealed by branches,
// replaces the data of the leaf at key and returns the new root
func AddBranchesAndUpdate(
	branches []types.MerkleBranch, root types.Digest, key uint64, data []byte, numLeaves uint64,
) (types.Digest, error) {
	switch numLeaves {
	case 0:
		return LeafDigest(data), nil
	case 1:
		if key != 0 {
			return types.Digest{}, fmt.Errorf("%w: key %d in a tree with one leaf", types.ErrIndexOutOfRange, key)
		}
		return LeafDigest(data), nil
	}
	if key >= numLeaves {
		return types.Digest{}, fmt.Errorf("%w: key %d, tree has %d leaves", types.ErrIndexOutOfRange, key, numLeaves)
	}

	partial := NewPartialTree(root, numLeaves)
	for _, branch := range branches {
		if err := partial.AddBranch(branch); err != nil {
			return types.Digest{}, err
		}
	}
	return partial.Update(key, data)
}
