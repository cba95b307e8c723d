package block

import (
	"errors"
	"fmt"

	cdkcommon "github.com/0xPolygon/cdk-merkle/common"
	"github.com/0xPolygon/cdk-merkle/tree"
	"github.com/0xPolygon/cdk-merkle/tree/sum"
	"github.com/0xPolygon/cdk-merkle/tree/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	// TransactionSizeMin is the minimum size in bytes of a transaction
	TransactionSizeMin = 44
	// TransactionSizeMax is the maximum size in bytes of a transaction
	TransactionSizeMax = 21000
)

var ErrInvalidTransactionSize = errors.New("invalid transaction size")

// Transaction is a serialized transaction with the fee it pays
type Transaction struct {
	Fee  uint256.Int `json:"fee"`
	Data []byte      `json:"data"`
}

// Builder composes a header from the contents of a block. Empty contents
// leave their header fields zeroed, except the withdrawals root which is
// always the root of the withdrawal ids.
type Builder struct {
	producer          common.Address
	previousBlockRoot types.Digest
	height            uint32
	blockNumber       uint32
	digests           []types.Digest
	transactions      []Transaction
	withdrawals       []Withdrawal
	validators        []Validator
	requiredStake     *uint256.Int
}

// NewBuilder returns a builder of the block at height on top of the chain
// with root previousBlockRoot
func NewBuilder(producer common.Address, previousBlockRoot types.Digest, height uint32) *Builder {
	return &Builder{
		producer:          producer,
		previousBlockRoot: previousBlockRoot,
		height:            height,
	}
}

// WithBlockNumber sets the L1 block number the block refers to
func (b *Builder) WithBlockNumber(blockNumber uint32) *Builder {
	b.blockNumber = blockNumber
	return b
}

func (b *Builder) WithDigests(digests []types.Digest) *Builder {
	b.digests = digests
	return b
}

func (b *Builder) WithTransactions(transactions []Transaction) *Builder {
	b.transactions = transactions
	return b
}

func (b *Builder) WithWithdrawals(withdrawals []Withdrawal) *Builder {
	b.withdrawals = withdrawals
	return b
}

// WithValidators sets the validator set. Unless WithRequiredStake is used the
// required stake is half the total stake.
func (b *Builder) WithValidators(validators []Validator) *Builder {
	b.validators = validators
	return b
}

func (b *Builder) WithRequiredStake(stake *uint256.Int) *Builder {
	b.requiredStake = stake
	return b
}

// Build returns the header of the block
func (b *Builder) Build() (*Header, error) {
	h := &Header{
		Producer:          b.producer,
		PreviousBlockRoot: b.previousBlockRoot,
		Height:            b.height,
		BlockNumber:       b.blockNumber,
		WithdrawalsRoot:   WithdrawalsRoot(b.withdrawals),
	}

	if err := b.setDigests(h); err != nil {
		return nil, err
	}
	if err := b.setTransactions(h); err != nil {
		return nil, err
	}
	if err := b.setValidators(h); err != nil {
		return nil, err
	}
	return h, nil
}

func (b *Builder) setDigests(h *Header) error {
	if len(b.digests) == 0 {
		return nil
	}
	length, err := cdkcommon.SafeUint16(len(b.digests))
	if err != nil {
		return fmt.Errorf("%w: digest length: %w", types.ErrNumericOverflow, err)
	}
	leaves := make([][]byte, len(b.digests))
	for i := range b.digests {
		leaves[i] = b.digests[i].Bytes()
	}
	h.DigestRoot = tree.CalcRoot(leaves)
	h.DigestHash = DigestCommitmentHash(b.digests)
	h.DigestLength = length
	return nil
}

func (b *Builder) setTransactions(h *Header) error {
	if len(b.transactions) == 0 {
		return nil
	}
	numTransactions, err := cdkcommon.SafeUint32(len(b.transactions))
	if err != nil {
		return fmt.Errorf("%w: number of transactions: %w", types.ErrNumericOverflow, err)
	}

	fees := make([]*uint256.Int, len(b.transactions))
	data := make([][]byte, len(b.transactions))
	for i := range b.transactions {
		size := len(b.transactions[i].Data)
		if size < TransactionSizeMin || size > TransactionSizeMax {
			return fmt.Errorf("%w: transaction %d has %d bytes", ErrInvalidTransactionSize, i, size)
		}
		fees[i] = &b.transactions[i].Fee
		data[i] = b.transactions[i].Data
	}

	root, total, err := sum.CalcRoot(fees, data)
	if err != nil {
		return err
	}
	dataLength := TransactionsLength(data)
	if dataLength > uint64(^uint32(0)) {
		return fmt.Errorf("%w: transactions data length %d", types.ErrNumericOverflow, dataLength)
	}

	h.TransactionRoot = root
	h.TransactionSum = *total
	h.TransactionHash = TransactionsHash(data)
	h.NumTransactions = numTransactions
	h.TransactionsDataLength = uint32(dataLength)
	return nil
}

func (b *Builder) setValidators(h *Header) error {
	if b.requiredStake != nil {
		h.RequiredStake = *b.requiredStake
	}
	if len(b.validators) == 0 {
		return nil
	}
	h.ValidatorSetHash = HashValidators(b.validators)
	if b.requiredStake == nil {
		total, err := TotalStake(b.validators)
		if err != nil {
			return err
		}
		h.RequiredStake.Rsh(total, 1)
	}
	return nil
}
