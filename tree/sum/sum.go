// Package sum implements a binary Merkle tree where every node commits to the
// sum of the values of the leaves below it.
package sum

import (
	"fmt"

	"github.com/0xPolygon/cdk-merkle/tree"
	"github.com/0xPolygon/cdk-merkle/tree/types"
	"github.com/holiman/uint256"
)

const noNode = -1

// Node is an element of the arena built by ConstructTree
type Node struct {
	Hash   types.Digest
	Sum    uint256.Int
	Data   []byte
	Left   int
	Right  int
	Parent int
	Index  int
}

// Proof holds, for every level from the leaf up, the sibling digest and its sum
type Proof struct {
	Sums     []*uint256.Int
	Siblings []types.Digest
}

// LeafDigest returns the digest of a leaf with value sum holding data
func LeafDigest(sum *uint256.Int, data []byte) types.Digest {
	s := sum.Bytes32()
	return tree.Hash([]byte{tree.LeafPrefix}, s[:], data)
}

// NodeDigest returns the digest of an internal node
func NodeDigest(leftSum *uint256.Int, left types.Digest, rightSum *uint256.Int, right types.Digest) types.Digest {
	ls, rs := leftSum.Bytes32(), rightSum.Bytes32()
	return tree.Hash([]byte{tree.NodePrefix}, ls[:], left[:], rs[:], right[:])
}

func add(a, b *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("%w: %s + %s", types.ErrNumericOverflow, a.Dec(), b.Dec())
	}
	return sum, nil
}

// ConstructTree builds the tree the same way tree.ConstructTree does, with
// values[i] as the value of the leaf holding data[i]
func ConstructTree(values []*uint256.Int, data [][]byte) ([]Node, error) {
	if len(values) != len(data) {
		return nil, fmt.Errorf("%w: %d values for %d leaves", types.ErrMismatchedLength, len(values), len(data))
	}
	if len(data) == 0 {
		return nil, nil
	}
	nodes := make([]Node, 0, 2*len(data)-1) //nolint:mnd
	level := make([]int, len(data))
	for i, d := range data {
		nodes = append(nodes, Node{
			Hash:   LeafDigest(values[i], d),
			Sum:    *values[i],
			Data:   d,
			Left:   noNode,
			Right:  noNode,
			Parent: noNode,
			Index:  i,
		})
		level[i] = i
	}

	for len(level) > 1 {
		next := make([]int, 0, (len(level)+1)/2) //nolint:mnd
		for j := 0; j+1 < len(level); j += 2 {
			left, right := &nodes[level[j]], &nodes[level[j+1]]
			sum, err := add(&left.Sum, &right.Sum)
			if err != nil {
				return nil, err
			}
			parent := Node{
				Hash:   NodeDigest(&left.Sum, left.Hash, &right.Sum, right.Hash),
				Sum:    *sum,
				Left:   left.Index,
				Right:  right.Index,
				Parent: noNode,
				Index:  len(nodes),
			}
			left.Parent = parent.Index
			right.Parent = parent.Index
			nodes = append(nodes, parent)
			next = append(next, parent.Index)
		}
		if len(level)%2 == 1 {
			next = append(next, level[len(level)-1])
		}
		level = next
	}
	return nodes, nil
}

// CalcRoot returns the root digest and the total sum. An empty tree has root
// tree.Empty and sum zero.
func CalcRoot(values []*uint256.Int, data [][]byte) (types.Digest, *uint256.Int, error) {
	nodes, err := ConstructTree(values, data)
	if err != nil {
		return types.Digest{}, nil, err
	}
	if len(nodes) == 0 {
		return tree.Empty, uint256.NewInt(0), nil
	}
	root := nodes[len(nodes)-1]
	return root.Hash, &root.Sum, nil
}

// GetProof returns the siblings and sibling sums of the leaf at index, from the leaf to the root
func GetProof(nodes []Node, index uint64) (Proof, error) {
	numLeaves := uint64(len(nodes)+1) / 2 //nolint:mnd
	if index >= numLeaves {
		return Proof{}, fmt.Errorf("%w: leaf %d, tree has %d leaves", types.ErrIndexOutOfRange, index, numLeaves)
	}
	proof := Proof{Sums: []*uint256.Int{}, Siblings: []types.Digest{}}
	prev := int(index)
	for cur := nodes[prev].Parent; cur != noNode; prev, cur = cur, nodes[cur].Parent {
		sibling := nodes[cur].Left
		if sibling == prev {
			sibling = nodes[cur].Right
		}
		proof.Sums = append(proof.Sums, new(uint256.Int).Set(&nodes[sibling].Sum))
		proof.Siblings = append(proof.Siblings, nodes[sibling].Hash)
	}
	return proof, nil
}

// Verify checks both the digest chain and the sum chain of proof for the leaf
// at key holding data with value sum. Any inconsistency returns false.
func Verify(
	root types.Digest, rootSum *uint256.Int, data []byte, sum *uint256.Int, proof Proof, key, numLeaves uint64,
) bool {
	if key >= numLeaves || sum == nil || len(proof.Sums) != len(proof.Siblings) {
		return false
	}
	if uint64(len(proof.Siblings)) != tree.PathLength(key, numLeaves) {
		return false
	}
	digest := LeafDigest(sum, data)
	total := new(uint256.Int).Set(sum)

	combine := func(i int, siblingIsLeft bool) bool {
		if i >= len(proof.Siblings) {
			return false
		}
		sibling, siblingSum := proof.Siblings[i], proof.Sums[i]
		if siblingSum == nil {
			return false
		}
		if siblingIsLeft {
			digest = NodeDigest(siblingSum, sibling, total, digest)
		} else {
			digest = NodeDigest(total, digest, siblingSum, sibling)
		}
		next, err := add(total, siblingSum)
		if err != nil {
			return false
		}
		total = next
		return true
	}

	if len(proof.Siblings) > 0 {
		height := uint64(1)
		stableEnd := key
		for height < 64 {
			subTreeStart := (key >> height) << height
			subTreeEnd := subTreeStart + (uint64(1) << height) - 1
			if subTreeEnd >= numLeaves {
				break
			}
			stableEnd = subTreeEnd
			if !combine(int(height-1), key-subTreeStart >= uint64(1)<<(height-1)) {
				return false
			}
			height++
		}
		if stableEnd != numLeaves-1 {
			if !combine(int(height-1), false) {
				return false
			}
			height++
		}
		for height-1 < uint64(len(proof.Siblings)) {
			if !combine(int(height-1), true) {
				return false
			}
			height++
		}
	}
	return digest == root && rootSum != nil && total.Eq(rootSum)
}
