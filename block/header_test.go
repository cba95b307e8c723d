package block

import (
	"bytes"
	"testing"

	"github.com/0xPolygon/cdk-merkle/tree"
	"github.com/0xPolygon/cdk-merkle/tree/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func headerForTest() *Header {
	h := &Header{
		Producer:               common.BytesToAddress(bytes.Repeat([]byte{0x11}, 20)),
		PreviousBlockRoot:      common.BytesToHash(bytes.Repeat([]byte{0x22}, 32)),
		Height:                 7,
		BlockNumber:            1234,
		DigestRoot:             common.BytesToHash(bytes.Repeat([]byte{0x33}, 32)),
		DigestHash:             common.BytesToHash(bytes.Repeat([]byte{0x44}, 32)),
		DigestLength:           3,
		TransactionRoot:        common.BytesToHash(bytes.Repeat([]byte{0x55}, 32)),
		TransactionHash:        common.BytesToHash(bytes.Repeat([]byte{0x66}, 32)),
		NumTransactions:        100,
		TransactionsDataLength: 44000,
		ValidatorSetHash:       common.BytesToHash(bytes.Repeat([]byte{0x77}, 32)),
		WithdrawalsRoot:        common.BytesToHash(bytes.Repeat([]byte{0x88}, 32)),
	}
	h.TransactionSum.SetUint64(4950)
	h.RequiredStake.SetUint64(1_000_000_000_000_000_000)
	return h
}

func TestHeaderSerialize(t *testing.T) {
	h := headerForTest()
	data := h.Serialize()
	require.Len(t, data, HeaderLength)
	require.Equal(t, 326, HeaderLength)

	require.Equal(t, bytes.Repeat([]byte{0x11}, 20), data[:20])
	require.Equal(t, []byte{0, 0, 0, 7}, data[52:56])
	require.Equal(t, []byte{0, 0, 0x04, 0xd2}, data[56:60])
	require.Equal(t, []byte{0, 3}, data[124:126])

	require.Equal(t,
		common.HexToHash("0x08391aea4746b6f832e3a2681e2bab57ba93bc5b2b5ffea9e247a6931f4548f7"),
		h.ComputeBlockID())
	require.Equal(t, tree.Hash(data), h.ComputeBlockID())
}

func TestHeaderDeserialize(t *testing.T) {
	h := headerForTest()
	decoded, err := Deserialize(h.Serialize())
	require.NoError(t, err)
	require.Equal(t, h, decoded)
	require.Equal(t, h.ComputeBlockID(), decoded.ComputeBlockID())

	_, err = Deserialize(h.Serialize()[1:])
	require.ErrorIs(t, err, ErrInvalidHeaderLength)
	_, err = Deserialize(append(h.Serialize(), 0))
	require.ErrorIs(t, err, ErrInvalidHeaderLength)
	_, err = Deserialize(nil)
	require.ErrorIs(t, err, ErrInvalidHeaderLength)
}

func TestHeaderFieldsChangeID(t *testing.T) {
	base := headerForTest().ComputeBlockID()

	h := headerForTest()
	h.Height++
	require.NotEqual(t, base, h.ComputeBlockID())

	h = headerForTest()
	h.RequiredStake.AddUint64(&h.RequiredStake, 1)
	require.NotEqual(t, base, h.ComputeBlockID())

	h = headerForTest()
	h.WithdrawalsRoot = types.ZeroDigest
	require.NotEqual(t, base, h.ComputeBlockID())
}

func TestWithdrawalID(t *testing.T) {
	w := Withdrawal{
		Owner:     common.BytesToAddress(bytes.Repeat([]byte{0xaa}, 20)),
		Token:     common.BytesToAddress(bytes.Repeat([]byte{0xbb}, 20)),
		Precision: 6,
	}
	w.Amount.SetUint64(1000)
	w.Nonce.SetUint64(5)
	require.Equal(t,
		common.HexToHash("0x2693f9c721aa8566b4cc992781a1296ac7dc1b513aae39146f98b160b04f2dbb"),
		w.ID())

	id := w.ID()
	require.Equal(t, tree.CalcRoot([][]byte{id.Bytes()}), WithdrawalsRoot([]Withdrawal{w}))
	require.Equal(t, tree.Empty, WithdrawalsRoot(nil))
}

func TestValidatorSetHash(t *testing.T) {
	addresses := []common.Address{
		common.BytesToAddress(bytes.Repeat([]byte{0x01}, 20)),
		common.BytesToAddress(bytes.Repeat([]byte{0x02}, 20)),
	}
	stakes := []*uint256.Int{uint256.NewInt(100), uint256.NewInt(200)}
	expected := common.HexToHash("0xb82307a11f114f58605f2f897863598ec05337a66afcb5fc582b298810972942")

	hash, err := ValidatorSetHash(addresses, stakes)
	require.NoError(t, err)
	require.Equal(t, expected, hash)

	validators := []Validator{
		{Address: addresses[0], Stake: *uint256.NewInt(100)},
		{Address: addresses[1], Stake: *uint256.NewInt(200)},
	}
	require.Equal(t, expected, HashValidators(validators))

	_, err = ValidatorSetHash(addresses, stakes[:1])
	require.ErrorIs(t, err, types.ErrMismatchedLength)

	total, err := TotalStake(validators)
	require.NoError(t, err)
	require.Equal(t, uint64(300), total.Uint64())

	maxStake := new(uint256.Int).SetAllOne()
	_, err = TotalStake([]Validator{{Stake: *maxStake}, {Stake: *uint256.NewInt(1)}})
	require.ErrorIs(t, err, types.ErrNumericOverflow)
}

func TestCommitmentHashes(t *testing.T) {
	a := common.HexToHash("0x01")
	b := common.HexToHash("0x02")
	require.Equal(t, tree.Hash(a[:], b[:]), DigestCommitmentHash([]types.Digest{a, b}))
	require.Equal(t, tree.Empty, DigestCommitmentHash(nil))

	txs := [][]byte{{1, 2, 3}, {4, 5}}
	require.Equal(t, tree.Hash([]byte{1, 2, 3, 4, 5}), TransactionsHash(txs))
	require.Equal(t, uint64(5), TransactionsLength(txs))
}
