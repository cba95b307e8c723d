package block

import (
	"errors"
	"fmt"

	cdkcommon "github.com/0xPolygon/cdk-merkle/common"
	"github.com/0xPolygon/cdk-merkle/tree"
	"github.com/0xPolygon/cdk-merkle/tree/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// HeaderLength is the size of a serialized header
const HeaderLength = common.AddressLength + 7*types.DigestLength + 4*4 + 2 + 2*32 //nolint:mnd

var (
	ErrInvalidHeaderLength = errors.New("invalid header length")

	// EmptyBlockID is the id of the parent of the genesis block
	EmptyBlockID = types.ZeroDigest
)

// Header is a block header. Fields are serialized in declaration order, each
// with its fixed width and without padding.
type Header struct {
	Producer               common.Address `json:"producer"`
	PreviousBlockRoot      types.Digest   `json:"previousBlockRoot"`
	Height                 uint32         `json:"height"`
	BlockNumber            uint32         `json:"blockNumber"`
	DigestRoot             types.Digest   `json:"digestRoot"`
	DigestHash             types.Digest   `json:"digestHash"`
	DigestLength           uint16         `json:"digestLength"`
	TransactionRoot        types.Digest   `json:"transactionRoot"`
	TransactionSum         uint256.Int    `json:"transactionSum"`
	TransactionHash        types.Digest   `json:"transactionHash"`
	NumTransactions        uint32         `json:"numTransactions"`
	TransactionsDataLength uint32         `json:"transactionsDataLength"`
	ValidatorSetHash       types.Digest   `json:"validatorSetHash"`
	RequiredStake          uint256.Int    `json:"requiredStake"`
	WithdrawalsRoot        types.Digest   `json:"withdrawalsRoot"`
}

// Serialize returns the packed encoding of the header
func (h *Header) Serialize() []byte {
	transactionSum := h.TransactionSum.Bytes32()
	requiredStake := h.RequiredStake.Bytes32()

	buf := make([]byte, 0, HeaderLength)
	buf = append(buf, h.Producer[:]...)
	buf = append(buf, h.PreviousBlockRoot[:]...)
	buf = append(buf, cdkcommon.Uint32ToBytes(h.Height)...)
	buf = append(buf, cdkcommon.Uint32ToBytes(h.BlockNumber)...)
	buf = append(buf, h.DigestRoot[:]...)
	buf = append(buf, h.DigestHash[:]...)
	buf = append(buf, cdkcommon.Uint16ToBytes(h.DigestLength)...)
	buf = append(buf, h.TransactionRoot[:]...)
	buf = append(buf, transactionSum[:]...)
	buf = append(buf, h.TransactionHash[:]...)
	buf = append(buf, cdkcommon.Uint32ToBytes(h.NumTransactions)...)
	buf = append(buf, cdkcommon.Uint32ToBytes(h.TransactionsDataLength)...)
	buf = append(buf, h.ValidatorSetHash[:]...)
	buf = append(buf, requiredStake[:]...)
	buf = append(buf, h.WithdrawalsRoot[:]...)
	return buf
}

// Deserialize decodes a header produced by Serialize
func Deserialize(data []byte) (*Header, error) {
	if len(data) != HeaderLength {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrInvalidHeaderLength, len(data), HeaderLength)
	}

	r := reader{data: data}
	h := &Header{}
	h.Producer = common.BytesToAddress(r.next(common.AddressLength))
	h.PreviousBlockRoot = r.digest()
	h.Height = cdkcommon.BytesToUint32(r.next(4))      //nolint:mnd
	h.BlockNumber = cdkcommon.BytesToUint32(r.next(4)) //nolint:mnd
	h.DigestRoot = r.digest()
	h.DigestHash = r.digest()
	h.DigestLength = cdkcommon.BytesToUint16(r.next(2)) //nolint:mnd
	h.TransactionRoot = r.digest()
	h.TransactionSum.SetBytes32(r.next(32)) //nolint:mnd
	h.TransactionHash = r.digest()
	h.NumTransactions = cdkcommon.BytesToUint32(r.next(4))        //nolint:mnd
	h.TransactionsDataLength = cdkcommon.BytesToUint32(r.next(4)) //nolint:mnd
	h.ValidatorSetHash = r.digest()
	h.RequiredStake.SetBytes32(r.next(32)) //nolint:mnd
	h.WithdrawalsRoot = r.digest()
	return h, nil
}

// ComputeBlockID returns the hash of the serialized header
func (h *Header) ComputeBlockID() types.Digest {
	return tree.Hash(h.Serialize())
}

type reader struct {
	data   []byte
	offset int
}

func (r *reader) next(n int) []byte {
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b
}

func (r *reader) digest() types.Digest {
	return common.BytesToHash(r.next(types.DigestLength))
}
