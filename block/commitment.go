package block

import (
	"fmt"

	"github.com/0xPolygon/cdk-merkle/tree"
	"github.com/0xPolygon/cdk-merkle/tree/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Validator is a member of the validator set with its stake
type Validator struct {
	Address common.Address `json:"address"`
	Stake   uint256.Int    `json:"stake"`
}

// ValidatorSetHash hashes the addresses, each left padded to 32 bytes,
// followed by the stakes
func ValidatorSetHash(addresses []common.Address, stakes []*uint256.Int) (types.Digest, error) {
	if len(addresses) != len(stakes) {
		return types.Digest{}, fmt.Errorf("%w: %d validators with %d stakes",
			types.ErrMismatchedLength, len(addresses), len(stakes))
	}
	data := make([][]byte, 0, len(addresses)+len(stakes))
	for _, address := range addresses {
		data = append(data, common.LeftPadBytes(address[:], types.DigestLength))
	}
	for _, stake := range stakes {
		s := stake.Bytes32()
		data = append(data, s[:])
	}
	return tree.Hash(data...), nil
}

// HashValidators is ValidatorSetHash over a slice of validators
func HashValidators(validators []Validator) types.Digest {
	addresses := make([]common.Address, len(validators))
	stakes := make([]*uint256.Int, len(validators))
	for i := range validators {
		addresses[i] = validators[i].Address
		stakes[i] = &validators[i].Stake
	}
	// lengths match by construction
	digest, _ := ValidatorSetHash(addresses, stakes)
	return digest
}

// TotalStake returns the sum of the stakes of validators
func TotalStake(validators []Validator) (*uint256.Int, error) {
	total := new(uint256.Int)
	for i := range validators {
		var overflow bool
		total, overflow = new(uint256.Int).AddOverflow(total, &validators[i].Stake)
		if overflow {
			return nil, fmt.Errorf("%w: total stake", types.ErrNumericOverflow)
		}
	}
	return total, nil
}

// DigestCommitmentHash hashes the concatenation of digests
func DigestCommitmentHash(digests []types.Digest) types.Digest {
	data := make([][]byte, len(digests))
	for i := range digests {
		data[i] = digests[i][:]
	}
	return tree.Hash(data...)
}

// TransactionsHash hashes the concatenation of the serialized transactions
func TransactionsHash(transactions [][]byte) types.Digest {
	return tree.Hash(transactions...)
}

// TransactionsLength returns the total size of the serialized transactions
func TransactionsLength(transactions [][]byte) uint64 {
	var length uint64
	for _, tx := range transactions {
		length += uint64(len(tx))
	}
	return length
}
