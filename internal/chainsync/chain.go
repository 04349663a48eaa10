package chainsync

import (
	"errors"
	"fmt"
	"sync"

	"github.com/NemProject/nem-sub016/types"
)

// Chain is the local block chain as seen by the synchronizer.
type Chain interface {
	Height() int64
	LastBlock() *types.Block
	// HashesFrom returns up to max hashes of the blocks starting at height.
	HashesFrom(height int64, max int) types.HashChain
	// Apply drops the blocks after commonHeight and appends blocks.
	Apply(commonHeight int64, blocks []*types.Block) error
}

// MemoryChain is a Chain kept in memory. Block persistence is left to the
// embedding application.
type MemoryChain struct {
	mtx    sync.RWMutex
	blocks []*types.Block // blocks[i] has height i+1
}

var _ Chain = (*MemoryChain)(nil)

// NewMemoryChain creates a chain starting at genesis, which must have height 1.
func NewMemoryChain(genesis *types.Block) (*MemoryChain, error) {
	if genesis == nil || genesis.Height != 1 {
		return nil, errors.New("genesis block must have height 1")
	}
	return &MemoryChain{blocks: []*types.Block{genesis}}, nil
}

func (c *MemoryChain) Height() int64 {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return int64(len(c.blocks))
}

func (c *MemoryChain) LastBlock() *types.Block {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.blocks[len(c.blocks)-1]
}

// BlockAt returns the block at height, or nil.
func (c *MemoryChain) BlockAt(height int64) *types.Block {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	if height < 1 || height > int64(len(c.blocks)) {
		return nil
	}
	return c.blocks[height-1]
}

// BlocksAfter returns up to max blocks following height.
func (c *MemoryChain) BlocksAfter(height int64, max int) []*types.Block {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	if height < 0 || height >= int64(len(c.blocks)) {
		return nil
	}
	end := height + int64(max)
	if end > int64(len(c.blocks)) {
		end = int64(len(c.blocks))
	}
	return append([]*types.Block(nil), c.blocks[height:end]...)
}

func (c *MemoryChain) HashesFrom(height int64, max int) types.HashChain {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	hashes := types.HashChain{}
	for h := height; h >= 1 && h <= int64(len(c.blocks)) && len(hashes) < max; h++ {
		hashes = append(hashes, c.blocks[h-1].Hash())
	}
	return hashes
}

func (c *MemoryChain) Apply(commonHeight int64, blocks []*types.Block) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if commonHeight < 1 || commonHeight > int64(len(c.blocks)) {
		return fmt.Errorf("common height %d is outside of the chain (height %d)", commonHeight, len(c.blocks))
	}
	for i, block := range blocks {
		if expected := commonHeight + int64(i) + 1; block.Height != expected {
			return fmt.Errorf("block at position %d has height %d, expected %d", i, block.Height, expected)
		}
	}

	c.blocks = append(c.blocks[:commonHeight:commonHeight], blocks...)
	return nil
}
