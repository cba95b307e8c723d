package block

import (
	"github.com/0xPolygon/cdk-merkle/tree"
	"github.com/0xPolygon/cdk-merkle/tree/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Withdrawal of Amount * 10^Precision units of Token to Owner
type Withdrawal struct {
	Owner     common.Address `json:"owner"`
	Token     common.Address `json:"token"`
	Precision uint8          `json:"precision"`
	Amount    uint256.Int    `json:"amount"`
	Nonce     uint256.Int    `json:"nonce"`
}

// ID returns the hash of the packed withdrawal
func (w *Withdrawal) ID() types.Digest {
	amount := w.Amount.Bytes32()
	nonce := w.Nonce.Bytes32()
	return tree.Hash(w.Owner[:], w.Token[:], []byte{w.Precision}, amount[:], nonce[:])
}

// WithdrawalsRoot returns the root of the binary tree over the withdrawal ids
func WithdrawalsRoot(withdrawals []Withdrawal) types.Digest {
	ids := make([][]byte, len(withdrawals))
	for i := range withdrawals {
		id := withdrawals[i].ID()
		ids[i] = id.Bytes()
	}
	return tree.CalcRoot(ids)
}
