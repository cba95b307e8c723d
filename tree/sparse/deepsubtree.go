package sparse

import (
	"fmt"

	"github.com/0xPolygon/cdk-merkle/tree/types"
)

// DeepSubTree is a sparse tree that only knows the branches added to it.
// Updates and deletes of the keys of those branches produce the same root as
// the full tree would. An operation that needs a node the subtree never learnt
// fails with types.ErrInconsistentSubtreeState.
type DeepSubTree struct {
	*SparseMerkleTree
}

// NewDeepSubTree creates a subtree of the tree with the given root
func NewDeepSubTree(root types.Digest) *DeepSubTree {
	return &DeepSubTree{SparseMerkleTree: newWithRoot(root, "deepsubtree")}
}

// AddBranch verifies proof for key and value against the current root and
// stores the nodes of its path. An empty value adds a non membership proof.
func (t *DeepSubTree) AddBranch(proof Proof, key types.Digest, value []byte) error {
	ok, updates := verifyProofWithUpdates(proof, t.root, key, value)
	if !ok {
		t.logger.Debugf("rejected branch for key %s against root %s", key.Hex(), t.root.Hex())
		return fmt.Errorf("%w: branch for key %s does not verify against root %s",
			types.ErrInconsistentSubtreeState, key.Hex(), t.root.Hex())
	}

	if len(value) > 0 {
		t.values[key] = value
	}
	for _, update := range updates {
		t.nodes[update.digest] = update.data
	}
	if proof.SiblingData != nil && len(proof.SideNodes) > 0 {
		t.nodes[proof.SideNodes[0]] = proof.SiblingData
	}
	return nil
}

// AddBranchCompact decompacts proof and adds it as AddBranch does
func (t *DeepSubTree) AddBranchCompact(proof CompactProof, key types.Digest, value []byte) error {
	decompacted, err := proof.Decompact()
	if err != nil {
		return err
	}
	return t.AddBranch(decompacted, key, value)
}
