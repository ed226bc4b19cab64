// Package consensus is the engine's view of the consensus layer: a
// development sequencer that proposes seeded blocks in round-robin order,
// validation of blocks proposed by others, and catch-up replay from a block
// store.
package consensus

import (
	"context"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/tolelom/casinochain/config"
	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/crypto"
	"github.com/tolelom/casinochain/log"
	"github.com/tolelom/casinochain/rng"
	"github.com/tolelom/casinochain/vm"
)

// ErrNotProposer is returned by ProduceBlock when another validator owns
// the next height.
var ErrNotProposer = errors.New("not the proposer for this height")

// Sequencer produces blocks for the local validator.
type Sequencer struct {
	cfg     *config.Config
	bc      *core.Blockchain
	mempool *core.Mempool
	exec    *vm.Executor
	privKey crypto.PrivateKey
	pubKey  crypto.PublicKey
	now     func() time.Time
	log     *log.Logger
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithClock replaces the wall clock used to stamp blocks.
func WithClock(now func() time.Time) Option {
	return func(s *Sequencer) { s.now = now }
}

// New creates a sequencer for the validator identified by privKey.
func New(cfg *config.Config, bc *core.Blockchain, mempool *core.Mempool, exec *vm.Executor, privKey crypto.PrivateKey, opts ...Option) *Sequencer {
	s := &Sequencer{
		cfg:     cfg,
		bc:      bc,
		mempool: mempool,
		exec:    exec,
		privKey: privKey,
		pubKey:  privKey.Public(),
		now:     time.Now,
		log:     log.Module("consensus"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ProposerFor returns the validator expected to propose height.
func ProposerFor(validators []string, height uint64) (string, error) {
	if len(validators) == 0 {
		return "", errors.New("no validators configured")
	}
	return validators[height%uint64(len(validators))], nil
}

// IsProposer reports whether this node should propose the next block.
func (s *Sequencer) IsProposer() bool {
	want, err := ProposerFor(s.cfg.Validators, s.bc.Height()+1)
	return err == nil && want == s.pubKey.Hex()
}

func heightMessage(height uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], height)
	return b[:]
}

// SeedFromProof derives a block seed from the proposer's signature over the
// height. Ed25519 signatures are deterministic, so the proposer cannot
// grind the seed.
func SeedFromProof(proof crypto.Signature) rng.Seed {
	sum := sha512.Sum512(proof[:])
	var seed rng.Seed
	copy(seed[:], sum[:rng.SeedSize])
	return seed
}

// seedFor signs height and returns the seed with its proof.
func (s *Sequencer) seedFor(height uint64) (rng.Seed, crypto.Signature) {
	proof := crypto.Sign(s.privKey, heightMessage(height))
	return SeedFromProof(proof), proof
}

// ProduceBlock drains the mempool into the next block, applies it, signs
// the header with the resulting roots, stores it and commits the state.
func (s *Sequencer) ProduceBlock(ctx context.Context) (*core.Block, error) {
	if !s.IsProposer() {
		return nil, ErrNotProposer
	}
	limit := s.cfg.MaxBlockTxs
	if limit <= 0 {
		limit = 500
	}
	txs := s.mempool.Pending(limit)

	prevHash, height, parentTime := config.GenesisHash, uint64(1), s.cfg.Genesis.Timestamp
	if tip := s.bc.Tip(); tip != nil {
		prevHash, height, parentTime = tip.Hash, tip.Header.Height+1, tip.Header.Timestamp
	}
	ts := uint64(s.now().Unix())
	if ts < parentTime {
		ts = parentTime
	}
	seed, proof := s.seedFor(height)

	block := core.NewBlock(height, prevHash, s.pubKey.Hex(), ts, seed, txs)
	res, err := s.exec.ApplyBlock(ctx, block)
	if err != nil {
		return nil, fmt.Errorf("apply block %d: %w", height, err)
	}
	block.Header.StateRoot, block.Header.EventsRoot = res.StateRoot, res.EventsRoot
	block.SeedProof = proof.Hex()
	block.Sign(s.privKey)

	if err := s.bc.AddBlock(block); err != nil {
		s.exec.Discard()
		return nil, fmt.Errorf("add block: %w", err)
	}
	// The block is stored; a failed state flush leaves the node unable to
	// continue without a replay.
	if err := s.exec.Commit(res); err != nil {
		s.log.Error("block stored but state commit failed", "height", height, "err", err)
		return nil, fmt.Errorf("commit block %d: %w", height, err)
	}

	ids := make([]string, len(txs))
	for i, tx := range txs {
		ids[i] = tx.Hash()
	}
	s.mempool.Remove(ids)
	s.log.Info("block produced", "height", height, "hash", block.Hash, "txs", len(txs))
	return block, nil
}

// ValidateBlock checks proposer rotation, the header signature, the seed
// proof and linkage to the local tip. It does not execute the block.
func (s *Sequencer) ValidateBlock(block *core.Block) error {
	return ValidateBlock(s.cfg.Validators, s.bc.Tip(), block)
}

// ValidateBlock checks block against the validator set and its parent.
// tip is nil for the first block.
func ValidateBlock(validators []string, tip *core.Block, block *core.Block) error {
	h := block.Header
	expected, err := ProposerFor(validators, h.Height)
	if err != nil {
		return err
	}
	if h.Proposer != expected {
		return fmt.Errorf("wrong proposer: got %s want %s", h.Proposer, expected)
	}
	pub, err := crypto.PubKeyFromHex(h.Proposer)
	if err != nil {
		return fmt.Errorf("invalid proposer pubkey: %w", err)
	}
	if err := block.Verify(pub); err != nil {
		return fmt.Errorf("block signature invalid: %w", err)
	}
	if h.TxRoot != core.ComputeTxRoot(block.Transactions) {
		return fmt.Errorf("tx root mismatch at height %d", h.Height)
	}

	proof, err := crypto.SignatureFromHex(block.SeedProof)
	if err != nil {
		return fmt.Errorf("seed proof: %w", err)
	}
	if err := crypto.Verify(pub, heightMessage(h.Height), proof); err != nil {
		return fmt.Errorf("seed proof invalid: %w", err)
	}
	if SeedFromProof(proof) != h.Seed {
		return fmt.Errorf("seed does not match proof at height %d", h.Height)
	}

	if tip == nil {
		if h.Height != 1 {
			return fmt.Errorf("first block must have height 1, got %d", h.Height)
		}
		if !config.IsGenesisHash(h.PrevHash) {
			return errors.New("first block must reference genesis prev-hash")
		}
		return nil
	}
	if h.PrevHash != tip.Hash {
		return fmt.Errorf("prev_hash mismatch: got %s want %s", h.PrevHash, tip.Hash)
	}
	if h.Height != tip.Header.Height+1 {
		return fmt.Errorf("height mismatch: got %d want %d", h.Height, tip.Header.Height+1)
	}
	if h.Timestamp < tip.Header.Timestamp {
		return fmt.Errorf("timestamp %d precedes parent %d", h.Timestamp, tip.Header.Timestamp)
	}
	return nil
}

// Run produces a block on every tick while this node is the proposer. It
// returns when ctx is cancelled or a storage fault stops the chain.
func (s *Sequencer) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !s.IsProposer() {
				continue
			}
			if _, err := s.ProduceBlock(ctx); err != nil {
				if core.IsFault(err) {
					return err
				}
				s.log.Warn("produce block failed", "err", err)
			}
		}
	}
}
