package consensus

import (
	"context"
	"errors"
	"fmt"

	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/log"
	"github.com/tolelom/casinochain/vm"
)

// BlockSource reads committed blocks by height.
type BlockSource interface {
	GetBlockByHeight(height uint64) (*core.Block, error)
}

// Follower accepts blocks proposed elsewhere: each one is validated
// against the local tip, executed, root-checked, stored and committed.
type Follower struct {
	validators []string
	bc         *core.Blockchain
	exec       *vm.Executor
	log        *log.Logger
}

// NewFollower creates a Follower that appends to bc.
func NewFollower(validators []string, bc *core.Blockchain, exec *vm.Executor) *Follower {
	return &Follower{validators: validators, bc: bc, exec: exec, log: log.Module("catchup")}
}

// Accept applies blocks in order and returns how many were appended. It
// stops at the first block that fails validation or execution; the ledger
// and chain are left at the last good block.
func (f *Follower) Accept(ctx context.Context, blocks []*core.Block) (int, error) {
	for i, b := range blocks {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := ValidateBlock(f.validators, f.bc.Tip(), b); err != nil {
			return i, fmt.Errorf("block %d: %w", b.Header.Height, err)
		}
		if b.Header.StateRoot == "" || b.Header.EventsRoot == "" {
			return i, fmt.Errorf("block %d: header carries no roots", b.Header.Height)
		}
		res, err := f.exec.ApplyBlock(ctx, b)
		if err != nil {
			return i, fmt.Errorf("block %d: %w", b.Header.Height, err)
		}
		if res.StateRoot != b.Header.StateRoot || res.EventsRoot != b.Header.EventsRoot {
			f.exec.Discard()
			f.log.Warn("root mismatch", "height", b.Header.Height, "computed", res.StateRoot, "header", b.Header.StateRoot)
			return i, fmt.Errorf("%w at height %d", vm.ErrRootMismatch, b.Header.Height)
		}
		if err := f.bc.AddBlock(b); err != nil {
			f.exec.Discard()
			return i, fmt.Errorf("add block %d: %w", b.Header.Height, err)
		}
		if err := f.exec.Commit(res); err != nil {
			return i, fmt.Errorf("commit block %d: %w", b.Header.Height, err)
		}
	}
	return len(blocks), nil
}

// Replay re-executes stored blocks from the ledger's next height through
// to, checking every header root. It is used to rebuild a ledger from
// genesis and to recover a node whose last block was stored but never
// committed to state. Blocks the ledger already holds are skipped.
func Replay(ctx context.Context, src BlockSource, exec *vm.Executor, to uint64) (uint64, error) {
	meta, err := exec.State().GetMeta()
	if err != nil {
		return 0, err
	}
	var applied uint64
	for h := meta.Height + 1; h <= to; h++ {
		b, err := src.GetBlockByHeight(h)
		if err != nil {
			return applied, fmt.Errorf("load block %d: %w", h, err)
		}
		if _, err := exec.Process(ctx, b); err != nil {
			if errors.Is(err, vm.ErrStaleHeight) {
				continue
			}
			return applied, fmt.Errorf("replay block %d: %w", h, err)
		}
		applied++
	}
	return applied, nil
}
