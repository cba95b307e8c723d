// Package sparse implements a sparse Merkle tree over 256 bit keys. Subtrees
// holding a single leaf are shortened to that leaf and empty subtrees are
// represented by types.ZeroDigest.
package sparse

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/0xPolygon/cdk-merkle/log"
	"github.com/0xPolygon/cdk-merkle/tree"
	"github.com/0xPolygon/cdk-merkle/tree/types"
)

const (
	// LeafDataLength is the size of the preimage of a leaf: prefix, key and value digest
	LeafDataLength = 1 + 2*types.DigestLength
	// NodeDataLength is the size of the preimage of an internal node: prefix and children
	NodeDataLength = 1 + 2*types.DigestLength
)

// errKeyAlreadyEmpty is returned internally when deleting an absent key
var errKeyAlreadyEmpty = errors.New("key already empty")

// SparseMerkleTree keeps every non placeholder node indexed by its digest
type SparseMerkleTree struct {
	root   types.Digest
	nodes  map[types.Digest][]byte
	values map[types.Digest][]byte
	logger *log.Logger
}

// New returns an empty tree
func New() *SparseMerkleTree {
	return newWithRoot(types.ZeroDigest, "sparsetree")
}

func newWithRoot(root types.Digest, module string) *SparseMerkleTree {
	return &SparseMerkleTree{
		root:   root,
		nodes:  map[types.Digest][]byte{},
		values: map[types.Digest][]byte{},
		logger: log.WithFields("module", module),
	}
}

// Root returns the current root, types.ZeroDigest for an empty tree
func (t *SparseMerkleTree) Root() types.Digest {
	return t.root
}

// Get returns the value stored at key, types.ErrNotFound if there is none
func (t *SparseMerkleTree) Get(key types.Digest) ([]byte, error) {
	value, ok := t.values[key]
	if !ok {
		return nil, fmt.Errorf("%w: key %s", types.ErrNotFound, key.Hex())
	}
	return value, nil
}

// Has returns true if a value is stored at key
func (t *SparseMerkleTree) Has(key types.Digest) bool {
	_, ok := t.values[key]
	return ok
}

// Update sets the value of key and returns the new root. An empty value
// removes the key.
func (t *SparseMerkleTree) Update(key types.Digest, value []byte) (types.Digest, error) {
	sideNodes, pathNodes, oldLeafData, _, err := t.sideNodesForRoot(key, t.root, false)
	if err != nil {
		return types.Digest{}, err
	}

	var newRoot types.Digest
	if len(value) == 0 {
		newRoot, err = t.deleteWithSideNodes(key, sideNodes, pathNodes, oldLeafData)
		if errors.Is(err, errKeyAlreadyEmpty) {
			return t.root, nil
		}
		if err != nil {
			return types.Digest{}, err
		}
		delete(t.values, key)
	} else {
		newRoot = t.updateWithSideNodes(key, value, sideNodes, pathNodes, oldLeafData)
	}
	t.root = newRoot
	return newRoot, nil
}

// Delete removes key and returns the new root. Deleting an absent key keeps the root.
func (t *SparseMerkleTree) Delete(key types.Digest) (types.Digest, error) {
	return t.Update(key, nil)
}

func (t *SparseMerkleTree) getNode(digest types.Digest) ([]byte, error) {
	data, ok := t.nodes[digest]
	if !ok {
		return nil, fmt.Errorf("%w: unknown node %s", types.ErrInconsistentSubtreeState, digest.Hex())
	}
	if len(data) != NodeDataLength {
		return nil, fmt.Errorf("%w: node %s has %d bytes", types.ErrInconsistentSubtreeState, digest.Hex(), len(data))
	}
	return data, nil
}

func (t *SparseMerkleTree) storeNode(data []byte) types.Digest {
	digest := tree.Hash(data)
	t.nodes[digest] = data
	return digest
}

// sideNodesForRoot walks from root towards the leaf of path. Side nodes and
// path nodes are returned from the deepest level up; the first path node is
// the leaf found, or the placeholder where the walk ended.
func (t *SparseMerkleTree) sideNodesForRoot(path, root types.Digest, withSiblingData bool) (
	sideNodes, pathNodes []types.Digest, leafData, siblingData []byte, err error,
) {
	sideNodes = []types.Digest{}
	pathNodes = []types.Digest{root}
	if root == types.ZeroDigest {
		return sideNodes, pathNodes, nil, nil, nil
	}
	currentData, err := t.getNode(root)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if isLeaf(currentData) {
		return sideNodes, pathNodes, currentData, nil, nil
	}

	var sideNode types.Digest
	for i := 0; i < types.MaxHeight; i++ {
		left, right := parseNode(currentData)
		var nodeHash types.Digest
		if getBitAtFromMSB(path[:], i) == 1 {
			sideNode, nodeHash = left, right
		} else {
			sideNode, nodeHash = right, left
		}
		sideNodes = append(sideNodes, sideNode)
		pathNodes = append(pathNodes, nodeHash)

		if nodeHash == types.ZeroDigest {
			currentData = nil
			break
		}
		currentData, err = t.getNode(nodeHash)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		if isLeaf(currentData) {
			break
		}
	}

	if withSiblingData && len(sideNodes) > 0 && sideNode != types.ZeroDigest {
		siblingData, err = t.getNode(sideNode)
		if err != nil {
			return nil, nil, nil, nil, err
		}
	}
	reverse(sideNodes)
	reverse(pathNodes)
	return sideNodes, pathNodes, currentData, siblingData, nil
}

func (t *SparseMerkleTree) updateWithSideNodes(
	path types.Digest, value []byte, sideNodes, pathNodes []types.Digest, oldLeafData []byte,
) types.Digest {
	valueHash := tree.Hash(value)
	currentHash := t.storeNode(leafData(path, valueHash))

	commonPrefixCount := types.MaxHeight
	var oldValueHash []byte
	if pathNodes[0] != types.ZeroDigest {
		actualPath, oldHash := parseLeaf(oldLeafData)
		oldValueHash = oldHash[:]
		commonPrefixCount = countCommonPrefix(path[:], actualPath[:])
	}
	if commonPrefixCount != types.MaxHeight {
		// the old leaf moves down next to the new one
		if getBitAtFromMSB(path[:], commonPrefixCount) == 1 {
			currentHash = t.storeNode(nodeData(pathNodes[0], currentHash))
		} else {
			currentHash = t.storeNode(nodeData(currentHash, pathNodes[0]))
		}
	} else if oldValueHash != nil {
		if bytes.Equal(oldValueHash, valueHash[:]) {
			return t.root
		}
		delete(t.nodes, pathNodes[0])
		delete(t.values, path)
	}
	for _, node := range pathNodes[1:] {
		delete(t.nodes, node)
	}

	offsetOfSideNodes := types.MaxHeight - len(sideNodes)
	for i := 0; i < types.MaxHeight; i++ {
		var sideNode types.Digest
		if i-offsetOfSideNodes < 0 {
			if commonPrefixCount != types.MaxHeight && commonPrefixCount > types.MaxHeight-1-i {
				sideNode = types.ZeroDigest
			} else {
				continue
			}
		} else {
			sideNode = sideNodes[i-offsetOfSideNodes]
		}
		if getBitAtFromMSB(path[:], types.MaxHeight-1-i) == 1 {
			currentHash = t.storeNode(nodeData(sideNode, currentHash))
		} else {
			currentHash = t.storeNode(nodeData(currentHash, sideNode))
		}
	}
	t.values[path] = value
	return currentHash
}

func (t *SparseMerkleTree) deleteWithSideNodes(
	path types.Digest, sideNodes, pathNodes []types.Digest, oldLeafData []byte,
) (types.Digest, error) {
	if pathNodes[0] == types.ZeroDigest {
		return types.Digest{}, errKeyAlreadyEmpty
	}
	if actualPath, _ := parseLeaf(oldLeafData); actualPath != path {
		return types.Digest{}, errKeyAlreadyEmpty
	}
	var (
		currentHash           types.Digest
		started               bool
		nonPlaceholderReached bool
	)
	for i, sideNode := range sideNodes {
		if !started {
			started = true
			if sideNode != types.ZeroDigest {
				sideNodeData, err := t.getNode(sideNode)
				if err != nil {
					return types.Digest{}, err
				}
				if isLeaf(sideNodeData) {
					// a leaf sibling bubbles up until the first non placeholder sibling
					currentHash = sideNode
					continue
				}
			}
			// the sibling is a subtree, the deleted leaf becomes a placeholder
			currentHash = types.ZeroDigest
			nonPlaceholderReached = true
		}
		if !nonPlaceholderReached && sideNode == types.ZeroDigest {
			continue
		}
		nonPlaceholderReached = true

		if getBitAtFromMSB(path[:], len(sideNodes)-1-i) == 1 {
			currentHash = t.storeNode(nodeData(sideNode, currentHash))
		} else {
			currentHash = t.storeNode(nodeData(currentHash, sideNode))
		}
	}
	for _, node := range pathNodes {
		delete(t.nodes, node)
	}
	if !started {
		return types.ZeroDigest, nil
	}
	return currentHash, nil
}

// Prove returns the proof of membership or non membership of key
func (t *SparseMerkleTree) Prove(key types.Digest) (Proof, error) {
	sideNodes, pathNodes, leaf, siblingData, err := t.sideNodesForRoot(key, t.root, true)
	if err != nil {
		return Proof{}, err
	}
	var nonMembershipLeafData []byte
	if pathNodes[0] != types.ZeroDigest {
		if actualPath, _ := parseLeaf(leaf); actualPath != key {
			nonMembershipLeafData = leaf
		}
	}
	return Proof{
		SideNodes:             sideNodes,
		NonMembershipLeafData: nonMembershipLeafData,
		SiblingData:           siblingData,
	}, nil
}

// ProveCompact returns the compacted proof of membership or non membership of key
func (t *SparseMerkleTree) ProveCompact(key types.Digest) (CompactProof, error) {
	proof, err := t.Prove(key)
	if err != nil {
		return CompactProof{}, err
	}
	return proof.Compact(), nil
}

func leafData(path, valueHash types.Digest) []byte {
	data := make([]byte, 0, LeafDataLength)
	data = append(data, tree.LeafPrefix)
	data = append(data, path[:]...)
	return append(data, valueHash[:]...)
}

func nodeData(left, right types.Digest) []byte {
	data := make([]byte, 0, NodeDataLength)
	data = append(data, tree.NodePrefix)
	data = append(data, left[:]...)
	return append(data, right[:]...)
}

func isLeaf(data []byte) bool {
	return len(data) > 0 && data[0] == tree.LeafPrefix
}

func parseLeaf(data []byte) (path, valueHash types.Digest) {
	copy(path[:], data[1:1+types.DigestLength])
	copy(valueHash[:], data[1+types.DigestLength:])
	return path, valueHash
}

func parseNode(data []byte) (left, right types.Digest) {
	copy(left[:], data[1:1+types.DigestLength])
	copy(right[:], data[1+types.DigestLength:])
	return left, right
}

// getBitAtFromMSB returns the bit at position i counting from the most significant bit of data
func getBitAtFromMSB(data []byte, i int) int {
	if data[i/8]&(1<<(7-uint(i%8))) > 0 { //nolint:mnd
		return 1
	}
	return 0
}

func setBitAtFromMSB(data []byte, i int) {
	data[i/8] |= 1 << (7 - uint(i%8)) //nolint:mnd
}

func countCommonPrefix(a, b []byte) int {
	count := 0
	for i := 0; i < len(a)*8; i++ {
		if getBitAtFromMSB(a, i) != getBitAtFromMSB(b, i) {
			break
		}
		count++
	}
	return count
}

func reverse(digests []types.Digest) {
	for i, j := 0, len(digests)-1; i < j; i, j = i+1, j-1 {
		digests[i], digests[j] = digests[j], digests[i]
	}
}
