package core

import (
	"encoding/json"

	"github.com/tolelom/casinochain/crypto"
	"github.com/tolelom/casinochain/rng"
)

// BlockHeader contains the block metadata that is hashed and signed.
type BlockHeader struct {
	Height     uint64   `json:"height"`
	PrevHash   string   `json:"prev_hash"`
	StateRoot  string   `json:"state_root"`  // state after executing this block
	EventsRoot string   `json:"events_root"` // root of the block's event log
	TxRoot     string   `json:"tx_root"`
	Timestamp  uint64   `json:"timestamp"` // consensus seconds
	Seed       rng.Seed `json:"seed"`
	Proposer   string   `json:"proposer"` // proposer's pubkey hex
}

// Block is an ordered batch of raw transactions with a signed header.
type Block struct {
	Header       BlockHeader `json:"header"`
	Transactions []RawTx     `json:"transactions"`
	Hash         string      `json:"hash"`
	Signature    string      `json:"signature"`
	SeedProof    string      `json:"seed_proof,omitempty"` // proposer's signature the seed is derived from
}

// ComputeHash returns the SHA-256 hash of the serialised header.
// Returns an empty string if marshalling fails (which cannot happen in practice).
func (b *Block) ComputeHash() string {
	data, err := json.Marshal(b.Header)
	if err != nil {
		return ""
	}
	return crypto.Hash(data)
}

// Sign sets Hash and signs the block with the proposer's private key.
func (b *Block) Sign(priv crypto.PrivateKey) {
	b.Hash = b.ComputeHash()
	b.Signature = crypto.Sign(priv, []byte(b.Hash)).Hex()
}

// Verify checks the block hash and signature against pub.
func (b *Block) Verify(pub crypto.PublicKey) error {
	if b.Hash != b.ComputeHash() {
		return NewError(CodeMalformed, "block hash mismatch at height %d", b.Header.Height)
	}
	sig, err := crypto.SignatureFromHex(b.Signature)
	if err != nil {
		return WrapError(CodeBadSignature, err, "block signature")
	}
	return crypto.Verify(pub, []byte(b.Hash), sig)
}

// ComputeTxRoot builds a deterministic root hash from the raw transactions.
func ComputeTxRoot(txs []RawTx) string {
	if len(txs) == 0 {
		return crypto.Hash([]byte("empty"))
	}
	parts := make([][]byte, len(txs))
	for i, tx := range txs {
		h := crypto.HashBytes(tx)
		parts[i] = h[:]
	}
	root := crypto.HashParts(parts...)
	return crypto.Hash(root[:])
}

// NewBlock creates an unsigned block. The timestamp and seed come from
// consensus; the engine never reads a clock.
func NewBlock(height uint64, prevHash, proposer string, timestamp uint64, seed rng.Seed, txs []RawTx) *Block {
	return &Block{
		Header: BlockHeader{
			Height:    height,
			PrevHash:  prevHash,
			TxRoot:    ComputeTxRoot(txs),
			Timestamp: timestamp,
			Seed:      seed,
			Proposer:  proposer,
		},
		Transactions: txs,
	}
}
