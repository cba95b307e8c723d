package block

import (
	"errors"
	"fmt"

	"github.com/0xPolygon/cdk-merkle/log"
	"github.com/0xPolygon/cdk-merkle/tree"
	"github.com/0xPolygon/cdk-merkle/tree/types"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidHeight            = errors.New("invalid block height")
	ErrInvalidPreviousBlockRoot = errors.New("invalid previous block root")
)

// Chain keeps the ids of the committed blocks in an append only tree. Every
// block commits to the root of the ids of all the blocks before it.
type Chain struct {
	ids    *tree.AppendOnlyTree
	tip    Header
	tipID  types.Digest
	logger *log.Logger
}

// Genesis returns the header of the first block of a chain
func Genesis() *Header {
	return &Header{
		Producer:          common.Address{},
		PreviousBlockRoot: EmptyBlockID,
		WithdrawalsRoot:   WithdrawalsRoot(nil),
	}
}

// NewChain starts a chain from genesis, which must be at height 0
func NewChain(genesis *Header) (*Chain, error) {
	if genesis.Height != 0 {
		return nil, fmt.Errorf("%w: genesis at height %d", ErrInvalidHeight, genesis.Height)
	}
	c := &Chain{
		ids:    tree.NewAppendOnlyTree(),
		logger: log.WithFields("module", "chain"),
	}
	if err := c.append(genesis); err != nil {
		return nil, err
	}
	return c, nil
}

// Root returns the root of the ids of the committed blocks, the previous
// block root of the next block
func (c *Chain) Root() types.Digest {
	return c.ids.Root()
}

// Tip returns the last committed header and its id
func (c *Chain) Tip() (Header, types.Digest) {
	return c.tip, c.tipID
}

// Len returns the number of committed blocks
func (c *Chain) Len() uint64 {
	return c.ids.LeafCount()
}

// Commit appends h to the chain and returns the new root
func (c *Chain) Commit(h *Header) (types.Digest, error) {
	if h.Height != c.tip.Height+1 {
		return types.Digest{}, fmt.Errorf("%w: got %d, expected %d", ErrInvalidHeight, h.Height, c.tip.Height+1)
	}
	if root := c.Root(); h.PreviousBlockRoot != root {
		return types.Digest{}, fmt.Errorf("%w: got %s, expected %s",
			ErrInvalidPreviousBlockRoot, h.PreviousBlockRoot.Hex(), root.Hex())
	}
	if err := c.append(h); err != nil {
		return types.Digest{}, err
	}
	c.logger.Debugf("committed block %d with id %s", h.Height, c.tipID.Hex())
	return c.Root(), nil
}

func (c *Chain) append(h *Header) error {
	id := h.ComputeBlockID()
	if _, err := c.ids.AddLeaves([]types.Leaf{{Index: c.ids.LeafCount(), Data: id.Bytes()}}); err != nil {
		return err
	}
	c.tip = *h
	c.tipID = id
	return nil
}
