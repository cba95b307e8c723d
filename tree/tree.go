package tree

import (
	"fmt"
	"math/bits"
	"runtime"

	"github.com/0xPolygon/cdk-merkle/tree/types"
	"golang.org/x/sync/errgroup"
)

const noNode = -1

// ParallelLeafThreshold is the number of leaves from which leaf digests are
// computed concurrently. Zero disables it.
var ParallelLeafThreshold = 1024

// Node is an element of the arena built by ConstructTree. Children and parent
// are referenced by their position in the arena, noNode when absent.
type Node struct {
	Hash   types.Digest
	Data   []byte
	Left   int
	Right  int
	Parent int
	Index  int
}

// IsLeaf returns true for nodes without children
func (n *Node) IsLeaf() bool {
	return n.Left == noNode && n.Right == noNode
}

// ConstructTree builds every level of the tree. The leaves occupy the first
// len(data) positions of the arena and the root is the last element.
// At each level nodes are paired left to right and a trailing odd node is
// promoted unchanged.
func ConstructTree(data [][]byte) []Node {
	if len(data) == 0 {
		return nil
	}
	digests := hashLeaves(data)
	nodes := make([]Node, 0, 2*len(data)-1) //nolint:mnd
	level := make([]int, len(data))
	for i, d := range data {
		nodes = append(nodes, Node{
			Hash:   digests[i],
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
			left, right := level[j], level[j+1]
			idx := len(nodes)
			nodes = append(nodes, Node{
				Hash:   NodeDigest(nodes[left].Hash, nodes[right].Hash),
				Left:   left,
				Right:  right,
				Parent: noNode,
				Index:  idx,
			})
			nodes[left].Parent = idx
			nodes[right].Parent = idx
			next = append(next, idx)
		}
		if len(level)%2 == 1 {
			next = append(next, level[len(level)-1])
		}
		level = next
	}
	return nodes
}

// CalcRoot returns the root of the tree built from data without keeping the arena
func CalcRoot(data [][]byte) types.Digest {
	if len(data) == 0 {
		return Empty
	}
	level := hashLeaves(data)
	size := len(level)
	for size > 1 {
		half := size / 2 //nolint:mnd
		for i := 0; i < half; i++ {
			level[i] = NodeDigest(level[2*i], level[2*i+1])
		}
		if size%2 == 1 {
			level[half] = level[size-1]
			half++
		}
		size = half
	}
	return level[0]
}

// RootOf returns the root of an arena built by ConstructTree
func RootOf(nodes []Node) types.Digest {
	if len(nodes) == 0 {
		return Empty
	}
	return nodes[len(nodes)-1].Hash
}

// LeafCount returns the number of leaves of an arena built by ConstructTree
func LeafCount(nodes []Node) uint64 {
	return uint64(len(nodes)+1) / 2 //nolint:mnd
}

// GetProof returns the siblings of the leaf at index, from the leaf to the root
func GetProof(nodes []Node, index uint64) (types.Proof, error) {
	numLeaves := LeafCount(nodes)
	if index >= numLeaves {
		return nil, fmt.Errorf("%w: leaf %d, tree has %d leaves", types.ErrIndexOutOfRange, index, numLeaves)
	}
	proof := types.Proof{}
	prev := int(index)
	for cur := nodes[prev].Parent; cur != noNode; prev, cur = cur, nodes[cur].Parent {
		if nodes[cur].Left == prev {
			proof = append(proof, nodes[nodes[cur].Right].Hash)
		} else {
			proof = append(proof, nodes[nodes[cur].Left].Hash)
		}
	}
	return proof, nil
}

// PathLength returns the number of siblings between the leaf at key and the
// root of a tree with numLeaves leaves
func PathLength(key, numLeaves uint64) uint64 {
	if numLeaves <= 1 {
		return 0
	}
	height := ceilLog2(numLeaves)
	split := uint64(1) << (height - 1)
	if key < split {
		return height
	}
	return 1 + PathLength(key-split, numLeaves-split)
}

// Verify checks that data is the leaf at key of the tree with the given root
// and numLeaves leaves. Any inconsistency, including a proof of the wrong
// length, returns false.
func Verify(root types.Digest, data []byte, proof types.Proof, key, numLeaves uint64) bool {
	if key >= numLeaves {
		return false
	}
	if uint64(len(proof)) != PathLength(key, numLeaves) {
		return false
	}
	digest := LeafDigest(data)
	if len(proof) == 0 {
		return digest == root
	}

	height := uint64(1)
	stableEnd := key
	// While the subtree of the current height is complete, the position of the
	// next sibling follows from the key bits.
	for height < 64 {
		subTreeStart := (key >> height) << height
		subTreeEnd := subTreeStart + (uint64(1) << height) - 1
		if subTreeEnd >= numLeaves {
			break
		}
		stableEnd = subTreeEnd
		if uint64(len(proof)) <= height-1 {
			return false
		}
		if key-subTreeStart < uint64(1)<<(height-1) {
			digest = NodeDigest(digest, proof[height-1])
		} else {
			digest = NodeDigest(proof[height-1], digest)
		}
		height++
	}

	// The next sibling belongs to a promoted node on the right
	if stableEnd != numLeaves-1 {
		if uint64(len(proof)) <= height-1 {
			return false
		}
		digest = NodeDigest(digest, proof[height-1])
		height++
	}

	// Remaining siblings are all on the left
	for height-1 < uint64(len(proof)) {
		digest = NodeDigest(proof[height-1], digest)
		height++
	}
	return digest == root
}

func hashLeaves(data [][]byte) []types.Digest {
	digests := make([]types.Digest, len(data))
	if ParallelLeafThreshold <= 0 || len(data) < ParallelLeafThreshold {
		for i, d := range data {
			digests[i] = LeafDigest(d)
		}
		return digests
	}

	workers := runtime.NumCPU()
	chunk := (len(data) + workers - 1) / workers
	var g errgroup.Group
	for start := 0; start < len(data); start += chunk {
		start, end := start, min(start+chunk, len(data))
		g.Go(func() error {
			for i := start; i < end; i++ {
				digests[i] = LeafDigest(data[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return digests
}

// ceilLog2 for x >= 1
func ceilLog2(x uint64) uint64 {
	return uint64(bits.Len64(x - 1))
}
