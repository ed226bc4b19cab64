package core_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/internal/testutil"
	"github.com/tolelom/casinochain/rng"
	"github.com/tolelom/casinochain/wallet"
)

func TestBlockSignVerify(t *testing.T) {
	w, other := wallet.FromSeed(1), wallet.FromSeed(2)
	b := core.NewBlock(1, "0000", w.PubKey(), 100, rng.Seed{7}, []core.RawTx{w.Transfer(other.Key(), 1)})
	b.Sign(w.PrivKey())
	require.Equal(t, b.ComputeHash(), b.Hash)
	require.NoError(t, b.Verify(w.Key()))
	require.Error(t, b.Verify(other.Key()))

	b.Header.Seed[0] ^= 1
	require.Error(t, b.Verify(w.Key()))
}

func TestTxRootOrderSensitive(t *testing.T) {
	w, other := wallet.FromSeed(1), wallet.FromSeed(2)
	a, b := w.Transfer(other.Key(), 1), w.Transfer(other.Key(), 2)
	require.NotEqual(t, core.ComputeTxRoot([]core.RawTx{a, b}), core.ComputeTxRoot([]core.RawTx{b, a}))
	require.Equal(t, core.ComputeTxRoot(nil), core.ComputeTxRoot([]core.RawTx{}))
}

func TestMempool(t *testing.T) {
	mp := core.NewMempool()
	w, other := wallet.FromSeed(1), wallet.FromSeed(2)

	tx := w.Transfer(other.Key(), 1)
	id, err := mp.Add(tx)
	require.NoError(t, err)
	require.Equal(t, tx.Hash(), id)
	require.Equal(t, 1, mp.Size())

	_, err = mp.Add(tx)
	require.Error(t, err)

	forged := append(core.RawTx(nil), w.Transfer(other.Key(), 2)...)
	forged[len(forged)-1] ^= 0xff
	_, err = mp.Add(forged)
	require.Error(t, err)

	second := w.Transfer(other.Key(), 3)
	_, err = mp.Add(second)
	require.NoError(t, err)
	require.Equal(t, []core.RawTx{tx, second}, mp.Pending(10))
	require.Len(t, mp.Pending(1), 1)

	mp.Remove([]string{id})
	require.Equal(t, []core.RawTx{second}, mp.Pending(10))
	got, ok := mp.Get(second.Hash())
	require.True(t, ok)
	require.Equal(t, second, got)
}

func TestBlockchainLinkage(t *testing.T) {
	w := wallet.FromSeed(1)
	store := testutil.NewMemBlockStore()
	bc := core.NewBlockchain(store)
	require.NoError(t, bc.Init())
	require.Nil(t, bc.Tip())

	b1 := core.NewBlock(1, "", w.PubKey(), 10, rng.Seed{1}, nil)
	b1.Sign(w.PrivKey())
	require.NoError(t, bc.AddBlock(b1))

	gap := core.NewBlock(3, b1.Hash, w.PubKey(), 20, rng.Seed{3}, nil)
	gap.Sign(w.PrivKey())
	require.ErrorIs(t, bc.AddBlock(gap), core.ErrBlockLink)

	unlinked := core.NewBlock(2, "beef", w.PubKey(), 20, rng.Seed{2}, nil)
	unlinked.Sign(w.PrivKey())
	require.ErrorIs(t, bc.AddBlock(unlinked), core.ErrBlockLink)

	early := core.NewBlock(2, b1.Hash, w.PubKey(), 9, rng.Seed{2}, nil)
	early.Sign(w.PrivKey())
	require.ErrorIs(t, bc.AddBlock(early), core.ErrBlockLink)

	stuffed := core.NewBlock(2, b1.Hash, w.PubKey(), 20, rng.Seed{2}, nil)
	stuffed.Sign(w.PrivKey())
	stuffed.Transactions = []core.RawTx{w.Transfer(wallet.FromSeed(2).Key(), 1)}
	require.ErrorIs(t, bc.AddBlock(stuffed), core.ErrBlockIntegrity)

	edited := core.NewBlock(2, b1.Hash, w.PubKey(), 20, rng.Seed{2}, nil)
	edited.Sign(w.PrivKey())
	edited.Header.Seed[0] ^= 1
	require.ErrorIs(t, bc.AddBlock(edited), core.ErrBlockIntegrity)
	require.EqualValues(t, 1, bc.Height())

	b2 := core.NewBlock(2, b1.Hash, w.PubKey(), 20, rng.Seed{2}, nil)
	b2.Sign(w.PrivKey())
	require.NoError(t, bc.AddBlock(b2))
	require.EqualValues(t, 2, bc.Height())

	// a reopened chain resumes from the stored tip
	again := core.NewBlockchain(store)
	require.NoError(t, again.Init())
	require.Equal(t, b2.Hash, again.Tip().Hash)
	got, err := again.GetBlockByHeight(1)
	require.NoError(t, err)
	require.Equal(t, b1.Hash, got.Hash)
}
