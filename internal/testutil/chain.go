package testutil

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tolelom/casinochain/config"
	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/events"
	"github.com/tolelom/casinochain/log"
	"github.com/tolelom/casinochain/rng"
	"github.com/tolelom/casinochain/storage"
	"github.com/tolelom/casinochain/vm"
	"github.com/tolelom/casinochain/vm/modules"
	"github.com/tolelom/casinochain/wallet"
)

// GenesisTime is the consensus timestamp of test genesis states.
const GenesisTime = 1_700_000_000

// BlockTime is the default timestamp step between test blocks.
const BlockTime = 5

// Genesis returns a genesis with the admin and every player funded with
// 100k chips and 100k stable, players registered, and a 1M/1M pool.
func Genesis(admin *wallet.Wallet, players ...*wallet.Wallet) config.Genesis {
	g := config.Genesis{
		ChainID:   "casinochain-test",
		Timestamp: GenesisTime,
		Admin:     admin.PubKey(),
		Alloc:     map[string]config.Allocation{},
		Pool:      config.PoolSeed{Chips: 1_000_000, Stable: 1_000_000, Stability: 100_000},
	}
	for _, w := range append([]*wallet.Wallet{admin}, players...) {
		g.Alloc[w.PubKey()] = config.Allocation{Name: "p" + w.Address()[:8], Chips: 100_000, Stable: 100_000}
	}
	return g
}

// Chain drives an executor over an in-memory ledger one block at a time.
type Chain struct {
	t       testing.TB
	State   *storage.StateDB
	Exec    *vm.Executor
	Emitter *events.Emitter
	Height  uint64
	Time    uint64
}

// NewChain applies g to a fresh ledger and wires every module.
func NewChain(t testing.TB, g config.Genesis, opts ...vm.Option) *Chain {
	t.Helper()
	return NewChainOn(t, NewStateDB(), g, opts...)
}

// NewChainOn is NewChain over a caller-supplied ledger.
func NewChainOn(t testing.TB, state *storage.StateDB, g config.Genesis, opts ...vm.Option) *Chain {
	t.Helper()
	_, err := g.Apply(state)
	require.NoError(t, err)
	require.NoError(t, state.Commit())
	em := events.NewEmitter()
	opts = append([]vm.Option{vm.WithLogger(log.Discard())}, opts...)
	return &Chain{
		t:       t,
		State:   state,
		Exec:    vm.NewExecutor(state, modules.NewRegistry(), em, opts...),
		Emitter: em,
		Time:    g.Timestamp,
	}
}

// SeedAt is the default seed of the block at height.
func SeedAt(height uint64) rng.Seed {
	var s rng.Seed
	for i := range s {
		s[i] = 0xa5
	}
	binary.BigEndian.PutUint64(s[:8], height)
	return s
}

// Block builds the next block without applying it.
func (c *Chain) Block(seed rng.Seed, advance uint64, txs ...core.RawTx) *core.Block {
	return core.NewBlock(c.Height+1, "", "", c.Time+advance, seed, txs)
}

// Apply applies and commits the next block with the default seed and step.
func (c *Chain) Apply(txs ...core.RawTx) *vm.Result {
	return c.ApplyWith(SeedAt(c.Height+1), BlockTime, txs...)
}

// ApplyWith applies and commits the next block with an explicit seed and
// timestamp step.
func (c *Chain) ApplyWith(seed rng.Seed, advance uint64, txs ...core.RawTx) *vm.Result {
	c.t.Helper()
	b := c.Block(seed, advance, txs...)
	res, err := c.Exec.ApplyBlock(context.Background(), b)
	require.NoError(c.t, err)
	require.NoError(c.t, c.Exec.Commit(res))
	c.Height, c.Time = b.Header.Height, b.Header.Timestamp
	return res
}

// Player loads the account of w.
func (c *Chain) Player(w *wallet.Wallet) *core.Player {
	c.t.Helper()
	p, err := c.State.GetPlayer(w.Key())
	require.NoError(c.t, err)
	return p
}

// House loads the house ledger.
func (c *Chain) House() *core.House {
	c.t.Helper()
	h, err := c.State.GetHouse()
	require.NoError(c.t, err)
	return h
}

// Pool loads the pool.
func (c *Chain) Pool() *core.Pool {
	c.t.Helper()
	p, err := c.State.GetPool()
	require.NoError(c.t, err)
	return p
}

// Policy loads the policy.
func (c *Chain) Policy() *core.Policy {
	c.t.Helper()
	p, err := c.State.GetPolicy()
	require.NoError(c.t, err)
	return p
}

// EventsOf returns the events of type T in log order.
func EventsOf[T events.Event](recs []events.Record) []T {
	var out []T
	for _, r := range recs {
		if ev, ok := r.Event.(T); ok {
			out = append(out, ev)
		}
	}
	return out
}

// Failures returns the codes of every InstructionFailed and TxRejected
// record in order.
func Failures(recs []events.Record) []core.Code {
	var out []core.Code
	for _, r := range recs {
		switch ev := r.Event.(type) {
		case events.InstructionFailed:
			out = append(out, ev.Code)
		case events.TxRejected:
			out = append(out, ev.Code)
		}
	}
	return out
}
