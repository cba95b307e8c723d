package tree_test

import (
	"encoding/binary"
	"testing"

	"github.com/0xPolygon/cdk-merkle/tree"
	"github.com/0xPolygon/cdk-merkle/tree/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func word(i uint64) []byte {
	var w common.Hash
	binary.BigEndian.PutUint64(w[24:], i)
	return w.Bytes()
}

func branchesForTest(t *testing.T, data [][]byte, keys []uint64) []types.MerkleBranch {
	t.Helper()
	nodes := tree.ConstructTree(data)
	branches := make([]types.MerkleBranch, 0, len(keys))
	for _, key := range keys {
		proof, err := tree.GetProof(nodes, key)
		require.NoError(t, err)
		branches = append(branches, types.MerkleBranch{Proof: proof, Key: key, Value: data[key]})
	}
	return branches
}

func TestAddBranchesAndUpdate(t *testing.T) {
	data := make([][]byte, 100)
	for i := range data {
		data[i] = word(uint64(i))
	}
	root := tree.CalcRoot(data)
	branches := branchesForTest(t, data, []uint64{4, 8, 15, 16, 23, 42})

	newRoot, err := tree.AddBranchesAndUpdate(branches, root, 23, word(9999), 100)
	require.NoError(t, err)
	require.Equal(t, common.HexToHash("0xe1b0999d7b3813fff510e2d3777aa1f5ae9058390050747ae675ba2dfde45c91"), newRoot)

	updated := append([][]byte{}, data...)
	updated[23] = word(9999)
	require.Equal(t, tree.CalcRoot(updated), newRoot)
}

func TestPartialTreeSequentialUpdates(t *testing.T) {
	for _, n := range []int{2, 3, 7, 10, 33} {
		data := make([][]byte, n)
		for i := range data {
			data[i] = word(uint64(i))
		}
		keys := []uint64{0, uint64(n / 2), uint64(n - 1)}
		partial := tree.NewPartialTree(tree.CalcRoot(data), uint64(n))
		for _, branch := range branchesForTest(t, data, keys) {
			require.NoError(t, partial.AddBranch(branch))
		}

		for _, key := range keys {
			data[key] = []byte("updated")
			root, err := partial.Update(key, data[key])
			require.NoError(t, err)
			require.Equal(t, tree.CalcRoot(data), root, "leaves: %d key: %d", n, key)
			require.Equal(t, root, partial.Root())
		}

		// branches against the updated root are still accepted
		last := uint64(n - 1)
		for _, branch := range branchesForTest(t, data, []uint64{last}) {
			require.NoError(t, partial.AddBranch(branch))
		}
	}
}

func TestPartialTreeErrors(t *testing.T) {
	data := make([][]byte, 10)
	for i := range data {
		data[i] = word(uint64(i))
	}
	root := tree.CalcRoot(data)
	branches := branchesForTest(t, data, []uint64{3})

	partial := tree.NewPartialTree(root, 10)
	require.NoError(t, partial.AddBranch(branches[0]))

	_, err := partial.Update(4, []byte("x"))
	require.ErrorIs(t, err, types.ErrNotFound)

	bad := branches[0]
	bad.Value = []byte("bad")
	require.ErrorIs(t, partial.AddBranch(bad), types.ErrInconsistentSubtreeState)

	_, err = tree.AddBranchesAndUpdate(branches, common.Hash{}, 3, []byte("x"), 10)
	require.ErrorIs(t, err, types.ErrInconsistentSubtreeState)

	_, err = tree.AddBranchesAndUpdate(branches, root, 10, []byte("x"), 10)
	require.ErrorIs(t, err, types.ErrIndexOutOfRange)
}

func TestAddBranchesAndUpdateTrivialTrees(t *testing.T) {
	newRoot, err := tree.AddBranchesAndUpdate(nil, tree.Empty, 0, []byte("x"), 0)
	require.NoError(t, err)
	require.Equal(t, tree.LeafDigest([]byte("x")), newRoot)

	newRoot, err = tree.AddBranchesAndUpdate(nil, tree.LeafDigest([]byte("old")), 0, []byte("x"), 1)
	require.NoError(t, err)
	require.Equal(t, tree.LeafDigest([]byte("x")), newRoot)

	_, err = tree.AddBranchesAndUpdate(nil, tree.LeafDigest([]byte("old")), 1, []byte("x"), 1)
	require.ErrorIs(t, err, types.ErrIndexOutOfRange)
}
