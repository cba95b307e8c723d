package sum

import (
	"encoding/binary"
	"testing"

	"github.com/0xPolygon/cdk-merkle/tree"
	"github.com/0xPolygon/cdk-merkle/tree/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func bytes32(i uint64) []byte {
	var w common.Hash
	binary.BigEndian.PutUint64(w[24:], i)
	return w.Bytes()
}

func leavesForTest(n int) ([]*uint256.Int, [][]byte) {
	values := make([]*uint256.Int, n)
	data := make([][]byte, n)
	for i := 0; i < n; i++ {
		values[i] = uint256.NewInt(uint64(i))
		data[i] = bytes32(uint64(i))
	}
	return values, data
}

func TestCalcRoot(t *testing.T) {
	values, data := leavesForTest(100)
	root, sum, err := CalcRoot(values, data)
	require.NoError(t, err)
	require.Equal(t, uint64(4950), sum.Uint64())
	require.Equal(t, common.HexToHash("0x219f1fb52040fef8d2d4362dde7503db3524fcfb1a46d9f81e774a3732f5a548"), root)
}

func TestCalcRootSameLeaf(t *testing.T) {
	values := make([]*uint256.Int, 100)
	data := make([][]byte, 100)
	leaf := tree.Hash(common.FromHex("0xabde"))
	for i := range data {
		values[i] = uint256.NewInt(1)
		data[i] = leaf.Bytes()
	}
	root, sum, err := CalcRoot(values, data)
	require.NoError(t, err)
	require.Equal(t, uint64(100), sum.Uint64())
	require.Equal(t, common.HexToHash("0xd5d73365ff2263e26f1f27723ed099d6c7ce434900b850f430239d82705adc2a"), root)
}

func TestCalcRootTrivial(t *testing.T) {
	root, sum, err := CalcRoot(nil, nil)
	require.NoError(t, err)
	require.Equal(t, tree.Empty, root)
	require.True(t, sum.IsZero())

	root, sum, err = CalcRoot([]*uint256.Int{uint256.NewInt(5)}, [][]byte{[]byte("a")})
	require.NoError(t, err)
	require.Equal(t, LeafDigest(uint256.NewInt(5), []byte("a")), root)
	require.Equal(t, uint64(5), sum.Uint64())

	_, _, err = CalcRoot([]*uint256.Int{uint256.NewInt(5)}, nil)
	require.ErrorIs(t, err, types.ErrMismatchedLength)
}

func TestOverflow(t *testing.T) {
	maxValue := new(uint256.Int).SetAllOne()
	_, _, err := CalcRoot(
		[]*uint256.Int{maxValue, uint256.NewInt(1)},
		[][]byte{[]byte("a"), []byte("b")},
	)
	require.ErrorIs(t, err, types.ErrNumericOverflow)
}

func TestVerify(t *testing.T) {
	tests := []struct {
		numLeaves int
		key       uint64
	}{
		{100, 99},
		{100, 98},
		{99, 41},
		{1, 0},
		{7, 6},
		{10, 4},
	}
	for _, tt := range tests {
		values, data := leavesForTest(tt.numLeaves)
		nodes, err := ConstructTree(values, data)
		require.NoError(t, err)
		root := nodes[len(nodes)-1]
		proof, err := GetProof(nodes, tt.key)
		require.NoError(t, err)
		n := uint64(tt.numLeaves)

		require.True(t, Verify(root.Hash, &root.Sum, data[tt.key], values[tt.key], proof, tt.key, n))
		// tampered data
		require.False(t, Verify(root.Hash, &root.Sum, []byte("badData"), values[tt.key], proof, tt.key, n))
		// tampered leaf sum
		require.False(t, Verify(root.Hash, &root.Sum, data[tt.key], uint256.NewInt(42), proof, tt.key, n))
		// tampered root sum
		wrongSum := new(uint256.Int).AddUint64(&root.Sum, 1)
		require.False(t, Verify(root.Hash, wrongSum, data[tt.key], values[tt.key], proof, tt.key, n))
		// out of range
		require.False(t, Verify(root.Hash, &root.Sum, data[tt.key], values[tt.key], proof, n, n))

		if len(proof.Sums) > 0 {
			tampered := Proof{
				Sums:     append([]*uint256.Int{}, proof.Sums...),
				Siblings: proof.Siblings,
			}
			tampered.Sums[0] = new(uint256.Int).AddUint64(proof.Sums[0], 1)
			require.False(t, Verify(root.Hash, &root.Sum, data[tt.key], values[tt.key], tampered, tt.key, n))

			short := Proof{Sums: proof.Sums[1:], Siblings: proof.Siblings[1:]}
			require.False(t, Verify(root.Hash, &root.Sum, data[tt.key], values[tt.key], short, tt.key, n))
		}
	}
}

func TestAllProofs(t *testing.T) {
	for n := 1; n <= 40; n++ {
		values, data := leavesForTest(n)
		nodes, err := ConstructTree(values, data)
		require.NoError(t, err)
		root := nodes[len(nodes)-1]
		require.Equal(t, uint64(n*(n-1)/2), root.Sum.Uint64())
		for key := uint64(0); key < uint64(n); key++ {
			proof, err := GetProof(nodes, key)
			require.NoError(t, err)
			require.True(t, Verify(root.Hash, &root.Sum, data[key], values[key], proof, key, uint64(n)),
				"leaves: %d key: %d", n, key)
		}
	}
	_, err := GetProof(nil, 0)
	require.ErrorIs(t, err, types.ErrIndexOutOfRange)
}
