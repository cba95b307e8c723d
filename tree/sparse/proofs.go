package sparse

import (
	"fmt"

	"github.com/0xPolygon/cdk-merkle/tree"
	"github.com/0xPolygon/cdk-merkle/tree/types"
)

// Proof is a proof of membership or non membership of a key. SideNodes are
// ordered from the deepest level up.
type Proof struct {
	SideNodes []types.Digest
	// NonMembershipLeafData is the preimage of the leaf found on the path of
	// an absent key, nil when the path ends in a placeholder
	NonMembershipLeafData []byte
	// SiblingData is the preimage of SideNodes[0], used to rebuild the tree
	// when the proven leaf is deleted
	SiblingData []byte
}

// CompactProof is a Proof without the placeholder side nodes. Bit i of
// BitMask, counting from the most significant bit of the first byte, is set
// when side node i is a placeholder.
type CompactProof struct {
	SideNodes             []types.Digest
	NonMembershipLeafData []byte
	BitMask               []byte
	NumSideNodes          int
	SiblingData           []byte
}

type nodeUpdate struct {
	digest types.Digest
	data   []byte
}

func (p *Proof) sanityCheck() bool {
	if len(p.SideNodes) > types.MaxHeight {
		return false
	}
	if p.NonMembershipLeafData != nil && (len(p.NonMembershipLeafData) != LeafDataLength || !isLeaf(p.NonMembershipLeafData)) {
		return false
	}
	if p.SiblingData != nil && len(p.SideNodes) > 0 && tree.Hash(p.SiblingData) != p.SideNodes[0] {
		return false
	}
	return true
}

// Compact removes the placeholder side nodes of the proof
func (p Proof) Compact() CompactProof {
	bitMask := make([]byte, (len(p.SideNodes)+7)/8) //nolint:mnd
	sideNodes := make([]types.Digest, 0, len(p.SideNodes))
	for i, sideNode := range p.SideNodes {
		if sideNode == types.ZeroDigest {
			setBitAtFromMSB(bitMask, i)
		} else {
			sideNodes = append(sideNodes, sideNode)
		}
	}
	return CompactProof{
		SideNodes:             sideNodes,
		NonMembershipLeafData: p.NonMembershipLeafData,
		BitMask:               bitMask,
		NumSideNodes:          len(p.SideNodes),
		SiblingData:           p.SiblingData,
	}
}

// Decompact restores the placeholder side nodes of the proof
func (p CompactProof) Decompact() (Proof, error) {
	if p.NumSideNodes < 0 || p.NumSideNodes > types.MaxHeight {
		return Proof{}, fmt.Errorf("%w: %d side nodes", types.ErrMalformedProof, p.NumSideNodes)
	}
	if expected := (p.NumSideNodes + 7) / 8; len(p.BitMask) != expected { //nolint:mnd
		return Proof{}, fmt.Errorf("%w: bit mask of %d bytes, expected %d",
			types.ErrMalformedProof, len(p.BitMask), expected)
	}
	placeholders := 0
	for i := 0; i < p.NumSideNodes; i++ {
		placeholders += getBitAtFromMSB(p.BitMask, i)
	}
	if p.NumSideNodes-placeholders != len(p.SideNodes) {
		return Proof{}, fmt.Errorf("%w: %d side nodes for %d non placeholder positions",
			types.ErrMalformedProof, len(p.SideNodes), p.NumSideNodes-placeholders)
	}

	sideNodes := make([]types.Digest, 0, p.NumSideNodes)
	position := 0
	for i := 0; i < p.NumSideNodes; i++ {
		if getBitAtFromMSB(p.BitMask, i) == 1 {
			sideNodes = append(sideNodes, types.ZeroDigest)
		} else {
			sideNodes = append(sideNodes, p.SideNodes[position])
			position++
		}
	}
	return Proof{
		SideNodes:             sideNodes,
		NonMembershipLeafData: p.NonMembershipLeafData,
		SiblingData:           p.SiblingData,
	}, nil
}

// VerifyProof checks that key has value under root. An empty value proves
// that key is absent.
func VerifyProof(proof Proof, root, key types.Digest, value []byte) bool {
	ok, _ := verifyProofWithUpdates(proof, root, key, value)
	return ok
}

// VerifyCompactProof decompacts proof and verifies it, a malformed proof does not verify
func VerifyCompactProof(proof CompactProof, root, key types.Digest, value []byte) bool {
	decompacted, err := proof.Decompact()
	if err != nil {
		return false
	}
	return VerifyProof(decompacted, root, key, value)
}

// verifyProofWithUpdates also returns the nodes of the path, from the leaf up
func verifyProofWithUpdates(proof Proof, root, key types.Digest, value []byte) (bool, []nodeUpdate) {
	if !proof.sanityCheck() {
		return false, nil
	}

	updates := []nodeUpdate{}
	var currentHash types.Digest
	if len(value) == 0 {
		if proof.NonMembershipLeafData == nil {
			currentHash = types.ZeroDigest
		} else {
			actualPath, _ := parseLeaf(proof.NonMembershipLeafData)
			if actualPath == key {
				// the leaf belongs to key, so key is not absent
				return false, nil
			}
			currentHash = tree.Hash(proof.NonMembershipLeafData)
			updates = append(updates, nodeUpdate{digest: currentHash, data: proof.NonMembershipLeafData})
		}
	} else {
		data := leafData(key, tree.Hash(value))
		currentHash = tree.Hash(data)
		updates = append(updates, nodeUpdate{digest: currentHash, data: data})
	}

	for i, sideNode := range proof.SideNodes {
		var data []byte
		if getBitAtFromMSB(key[:], len(proof.SideNodes)-1-i) == 1 {
			data = nodeData(sideNode, currentHash)
		} else {
			data = nodeData(currentHash, sideNode)
		}
		currentHash = tree.Hash(data)
		updates = append(updates, nodeUpdate{digest: currentHash, data: data})
	}
	return currentHash == root, updates
}
