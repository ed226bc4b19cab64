package wallet

import (
	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/crypto"
	"github.com/tolelom/casinochain/games"
)

// Wallet holds a key pair and a local nonce cursor, and builds signed
// transactions.
type Wallet struct {
	priv  crypto.PrivateKey
	pub   crypto.PublicKey
	nonce uint64
}

// New creates a Wallet from an existing private key.
func New(priv crypto.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.Public()}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate() (*Wallet, error) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}

// FromSeed creates a deterministic Wallet; test fixtures use it.
func FromSeed(seed byte) *Wallet {
	b := make([]byte, 32)
	for i := range b {
		b[i] = seed
	}
	priv, err := crypto.PrivKeyFromSeed(b)
	if err != nil {
		panic(err)
	}
	return New(priv)
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() crypto.PrivateKey { return w.priv }

// Key returns the public key.
func (w *Wallet) Key() crypto.PublicKey { return w.pub }

// PubKey returns the hex-encoded public key.
func (w *Wallet) PubKey() string { return w.pub.Hex() }

// Address returns the short human-readable address.
func (w *Wallet) Address() string { return w.pub.Address() }

// Nonce is the nonce the next Next call will use.
func (w *Wallet) Nonce() uint64 { return w.nonce }

// SetNonce resets the local cursor, e.g. from the executor's view.
func (w *Wallet) SetNonce(n uint64) { w.nonce = n }

// Sign builds a signed transaction for ins at an explicit nonce.
func (w *Wallet) Sign(nonce uint64, ins core.Instruction) core.RawTx {
	return core.NewTransaction(w.priv, nonce, ins).Encode()
}

// Next signs ins at the local nonce and advances the cursor.
func (w *Wallet) Next(ins core.Instruction) core.RawTx {
	raw := w.Sign(w.nonce, ins)
	w.nonce++
	return raw
}

// Transfer sends chips to another account.
func (w *Wallet) Transfer(to crypto.PublicKey, amount uint64) core.RawTx {
	return w.Next(&core.Transfer{To: to, Amount: amount})
}

// Play opens a session of g with the main bet and variant parameters.
func (w *Wallet) Play(g games.GameType, bet uint64, params []byte) core.RawTx {
	return w.Next(&core.StartGame{Game: g, Bet: bet, Params: params})
}

// Move sends one action to an open session.
func (w *Wallet) Move(g games.GameType, session uint64, move ...byte) core.RawTx {
	return w.Next(&core.GameMove{SessionID: session, Game: g, Move: move})
}

// Bet places a bet list on the current round of a shared table.
func (w *Wallet) Bet(g games.GameType, round uint64, bets ...games.Bet) core.RawTx {
	return w.Next(&core.TablePlaceBets{Game: g, RoundID: round, Bets: bets})
}

// Swap trades against the pool.
func (w *Wallet) Swap(chipsIn bool, amount, minOut uint64) core.RawTx {
	return w.Next(&core.Swap{ChipsIn: chipsIn, AmountIn: amount, MinOut: minOut})
}
