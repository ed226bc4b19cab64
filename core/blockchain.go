package core

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrBlockIntegrity is returned for a block whose hash or tx root does
	// not match its contents.
	ErrBlockIntegrity = errors.New("block integrity")
	// ErrBlockLink is returned for a block that does not extend the tip.
	ErrBlockLink = errors.New("block does not extend tip")
)

// BlockStore persists committed blocks. Implementations live in the storage
// package.
type BlockStore interface {
	GetBlock(hash string) (*Block, error)
	GetBlockByHeight(height uint64) (*Block, error)
	// GetTip returns the current tip hash, or ("", nil) for a fresh chain.
	GetTip() (string, error)
	// CommitBlock writes the block, its height index and the tip pointer in
	// one batch.
	CommitBlock(block *Block) error
}

// Blockchain is the canonical sequence of committed blocks. It checks that
// each block is self-consistent and extends the tip; signatures, seeds and
// state roots are checked by consensus and the executor before a block gets
// here.
type Blockchain struct {
	mu    sync.RWMutex
	store BlockStore
	tip   *Block
}

// NewBlockchain returns a Blockchain over store. Call Init to resume from a
// persisted tip.
func NewBlockchain(store BlockStore) *Blockchain {
	return &Blockchain{store: store}
}

func (bc *Blockchain) Init() error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	tipHash, err := bc.store.GetTip()
	if err != nil {
		return fmt.Errorf("get tip: %w", err)
	}
	if tipHash == "" {
		return nil
	}
	tip, err := bc.store.GetBlock(tipHash)
	if err != nil {
		return fmt.Errorf("load tip %s: %w", tipHash, err)
	}
	bc.tip = tip
	return nil
}

// AddBlock appends block. The first block of a fresh chain may sit at any
// height; every later block must follow the tip by one, name it as parent
// and not precede it in time.
func (bc *Blockchain) AddBlock(block *Block) error {
	h := &block.Header
	if block.Hash != block.ComputeHash() {
		return fmt.Errorf("%w: hash mismatch at height %d", ErrBlockIntegrity, h.Height)
	}
	// block #0 carries no transactions; its TxRoot binds the chain id
	if root := ComputeTxRoot(block.Transactions); h.Height > 0 && h.TxRoot != root {
		return fmt.Errorf("%w: tx root %s, transactions give %s", ErrBlockIntegrity, h.TxRoot, root)
	}

	bc.mu.Lock()
	defer bc.mu.Unlock()
	if tip := bc.tip; tip != nil {
		switch {
		case h.Height != tip.Header.Height+1:
			return fmt.Errorf("%w: height %d after tip %d", ErrBlockLink, h.Height, tip.Header.Height)
		case h.PrevHash != tip.Hash:
			return fmt.Errorf("%w: parent %s, tip is %s", ErrBlockLink, h.PrevHash, tip.Hash)
		case h.Timestamp < tip.Header.Timestamp:
			return fmt.Errorf("%w: timestamp %d precedes tip %d", ErrBlockLink, h.Timestamp, tip.Header.Timestamp)
		}
	}
	if err := bc.store.CommitBlock(block); err != nil {
		return fmt.Errorf("commit block %d: %w", h.Height, err)
	}
	bc.tip = block
	return nil
}

func (bc *Blockchain) GetBlockByHeight(height uint64) (*Block, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.store.GetBlockByHeight(height)
}

// Tip returns the last committed block, or nil for a fresh chain.
func (bc *Blockchain) Tip() *Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.tip
}

// Height returns the tip height, 0 for a fresh chain.
func (bc *Blockchain) Height() uint64 {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	if bc.tip == nil {
		return 0
	}
	return bc.tip.Header.Height
}
