package consensus_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tolelom/casinochain/config"
	"github.com/tolelom/casinochain/consensus"
	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/internal/testutil"
	"github.com/tolelom/casinochain/vm"
	"github.com/tolelom/casinochain/wallet"
)

type node struct {
	chain   *testutil.Chain
	bc      *core.Blockchain
	mempool *core.Mempool
	seq     *consensus.Sequencer
}

// ticking returns a clock that advances five seconds per call.
func ticking() func() time.Time {
	now := time.Unix(testutil.GenesisTime, 0)
	return func() time.Time {
		now = now.Add(5 * time.Second)
		return now
	}
}

func newNode(t *testing.T, key *wallet.Wallet, g config.Genesis, validators ...string) *node {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Genesis = g
	cfg.Validators = validators
	n := &node{
		chain:   testutil.NewChain(t, g),
		bc:      core.NewBlockchain(testutil.NewMemBlockStore()),
		mempool: core.NewMempool(),
	}
	require.NoError(t, n.bc.Init())
	n.seq = consensus.New(cfg, n.bc, n.mempool, n.chain.Exec, key.PrivKey(), consensus.WithClock(ticking()))
	return n
}

func TestProduceBlockDrainsMempool(t *testing.T) {
	admin, alice, bob := wallet.FromSeed(1), wallet.FromSeed(2), wallet.FromSeed(3)
	n := newNode(t, admin, testutil.Genesis(admin, alice, bob), admin.PubKey())
	ctx := context.Background()

	_, err := n.mempool.Add(alice.Transfer(bob.Key(), 5))
	require.NoError(t, err)
	require.True(t, n.seq.IsProposer())

	b, err := n.seq.ProduceBlock(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, b.Header.Height)
	require.True(t, config.IsGenesisHash(b.Header.PrevHash))
	require.EqualValues(t, testutil.GenesisTime+5, b.Header.Timestamp)
	require.Equal(t, n.chain.State.ComputeRoot(), b.Header.StateRoot)
	require.NotEmpty(t, b.Header.EventsRoot)
	require.Len(t, b.Transactions, 1)
	require.Zero(t, n.mempool.Size())
	require.EqualValues(t, 1, n.bc.Height())
	p, err := n.chain.State.GetPlayer(bob.Key())
	require.NoError(t, err)
	require.EqualValues(t, 100_005, p.Chips)
	require.NoError(t, consensus.ValidateBlock([]string{admin.PubKey()}, nil, b))

	next, err := n.seq.ProduceBlock(ctx)
	require.NoError(t, err)
	require.Equal(t, b.Hash, next.Header.PrevHash)
	require.NotEqual(t, b.Header.Seed, next.Header.Seed)
	require.NoError(t, n.seq.ValidateBlock(next))
}

func TestClockNeverRunsBackwards(t *testing.T) {
	admin := wallet.FromSeed(1)
	g := testutil.Genesis(admin)
	cfg := config.DefaultConfig()
	cfg.Genesis, cfg.Validators = g, []string{admin.PubKey()}
	c := testutil.NewChain(t, g)
	bc := core.NewBlockchain(testutil.NewMemBlockStore())
	seq := consensus.New(cfg, bc, core.NewMempool(), c.Exec, admin.PrivKey(),
		consensus.WithClock(func() time.Time { return time.Unix(1_000, 0) }))

	b, err := seq.ProduceBlock(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, testutil.GenesisTime, b.Header.Timestamp)
}

func TestNotProposer(t *testing.T) {
	admin, other := wallet.FromSeed(1), wallet.FromSeed(7)
	n := newNode(t, admin, testutil.Genesis(admin), admin.PubKey(), other.PubKey())
	// height 1 belongs to the second validator
	require.False(t, n.seq.IsProposer())
	_, err := n.seq.ProduceBlock(context.Background())
	require.ErrorIs(t, err, consensus.ErrNotProposer)
	require.Zero(t, n.bc.Height())
}

func TestValidateBlockRejectsTampering(t *testing.T) {
	admin, alice, mallory := wallet.FromSeed(1), wallet.FromSeed(2), wallet.FromSeed(6)
	n := newNode(t, admin, testutil.Genesis(admin, alice), admin.PubKey())
	b, err := n.seq.ProduceBlock(context.Background())
	require.NoError(t, err)
	validators := []string{admin.PubKey()}

	reseeded := *b
	reseeded.Header.Seed[0] ^= 1
	reseeded.Sign(admin.PrivKey())
	require.ErrorContains(t, consensus.ValidateBlock(validators, nil, &reseeded), "seed does not match")

	forged := *b
	forged.Header.Proposer = mallory.PubKey()
	forged.Sign(mallory.PrivKey())
	require.ErrorContains(t, consensus.ValidateBlock(validators, nil, &forged), "wrong proposer")

	unsigned := *b
	unsigned.Header.Timestamp++
	require.ErrorContains(t, consensus.ValidateBlock(validators, nil, &unsigned), "signature")

	orphan := *b
	orphan.Header.PrevHash = b.Hash
	orphan.Sign(admin.PrivKey())
	require.ErrorContains(t, consensus.ValidateBlock(validators, nil, &orphan), "genesis")
}

func TestFollowerAndReplayReachLeaderState(t *testing.T) {
	admin, alice, bob := wallet.FromSeed(1), wallet.FromSeed(2), wallet.FromSeed(3)
	g := testutil.Genesis(admin, alice, bob)
	validators := []string{admin.PubKey()}
	leader := newNode(t, admin, g, validators...)
	ctx := context.Background()

	var blocks []*core.Block
	for i := range 3 {
		_, err := leader.mempool.Add(alice.Transfer(bob.Key(), uint64(10+i)))
		require.NoError(t, err)
		_, err = leader.mempool.Add(bob.Swap(true, 500, 0))
		require.NoError(t, err)
		b, err := leader.seq.ProduceBlock(ctx)
		require.NoError(t, err)
		blocks = append(blocks, b)
	}
	want := leader.chain.State.ComputeRoot()

	follower := testutil.NewChain(t, g)
	fbc := core.NewBlockchain(testutil.NewMemBlockStore())
	f := consensus.NewFollower(validators, fbc, follower.Exec)

	// a header claiming another state root is refused before anything moves
	bad := *blocks[0]
	bad.Header.StateRoot = want
	bad.Sign(admin.PrivKey())
	n, err := f.Accept(ctx, []*core.Block{&bad})
	require.ErrorIs(t, err, vm.ErrRootMismatch)
	require.Zero(t, n)
	require.Zero(t, fbc.Height())

	n, err = f.Accept(ctx, blocks)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, want, follower.State.ComputeRoot())
	require.EqualValues(t, 3, fbc.Height())

	fresh := testutil.NewChain(t, g)
	applied, err := consensus.Replay(ctx, leader.bc, fresh.Exec, 3)
	require.NoError(t, err)
	require.EqualValues(t, 3, applied)
	require.Equal(t, want, fresh.State.ComputeRoot())

	applied, err = consensus.Replay(ctx, leader.bc, fresh.Exec, 3)
	require.NoError(t, err)
	require.Zero(t, applied)
}
