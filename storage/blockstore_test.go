package storage_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/internal/testutil"
	"github.com/tolelom/casinochain/rng"
	"github.com/tolelom/casinochain/storage"
)

func TestLevelBlockStoreCommit(t *testing.T) {
	db, err := storage.NewLevelDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	bs := storage.NewLevelBlockStore(db)
	tip, err := bs.GetTip()
	require.NoError(t, err)
	require.Empty(t, tip)

	b := core.NewBlock(1, "", "p", 100, rng.Seed{1}, nil)
	b.Hash = b.ComputeHash()
	require.NoError(t, bs.CommitBlock(b))

	tip, err = bs.GetTip()
	require.NoError(t, err)
	require.Equal(t, b.Hash, tip)
	got, err := bs.GetBlockByHeight(1)
	require.NoError(t, err)
	require.Equal(t, b.Header, got.Header)

	_, err = bs.GetBlockByHeight(2)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestBlockchainLinkage(t *testing.T) {
	bc := core.NewBlockchain(testutil.NewMemBlockStore())
	require.NoError(t, bc.Init())

	b1 := core.NewBlock(1, "", "p", 1, rng.Seed{}, nil)
	b1.Hash = b1.ComputeHash()
	require.NoError(t, bc.AddBlock(b1))

	bad := core.NewBlock(2, "nope", "p", 2, rng.Seed{}, nil)
	bad.Hash = bad.ComputeHash()
	require.Error(t, bc.AddBlock(bad))

	b2 := core.NewBlock(2, b1.Hash, "p", 2, rng.Seed{}, nil)
	b2.Hash = b2.ComputeHash()
	require.NoError(t, bc.AddBlock(b2))
	require.Equal(t, uint64(2), bc.Height())
}

func TestLevelStateDB(t *testing.T) {
	db, err := storage.NewLevelDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	s := storage.NewStateDB(db)
	require.NoError(t, s.SetPool(&core.Pool{ReserveChips: 10, ReserveStable: 20, TotalShares: 5}))
	root := s.ComputeRoot()
	require.NoError(t, s.Commit())
	require.Equal(t, root, s.ComputeRoot())

	p, err := storage.NewStateDB(db).GetPool()
	require.NoError(t, err)
	require.Equal(t, uint64(20), p.ReserveStable)
}

func TestMemLevelDB(t *testing.T) {
	db, err := storage.NewMemLevelDB()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Set([]byte("k"), []byte("v")))
	v, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)
	_, err = db.Get([]byte("missing"))
	require.ErrorIs(t, err, core.ErrNotFound)
}
