package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/crypto"
	"github.com/tolelom/casinochain/economy"
	"github.com/tolelom/casinochain/rng"
)

// GenesisHash is a canonical all-zeros previous hash for the genesis block.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Allocation is the opening balance of one account.
type Allocation struct {
	Name     string `json:"name,omitempty"` // registers the account when set
	Chips    uint64 `json:"chips"`
	Stable   uint64 `json:"stable,omitempty"`
	Freeroll uint64 `json:"freeroll,omitempty"`
}

// PoolSeed is the opening liquidity of the chips/stable pool. The shares go
// to the admin. Stability pre-funds the liquidation backstop.
type PoolSeed struct {
	Chips     uint64 `json:"chips"`
	Stable    uint64 `json:"stable"`
	Stability uint64 `json:"stability,omitempty"`
}

// Genesis describes the chain's initial state.
type Genesis struct {
	ChainID   string                `json:"chain_id"`
	Timestamp uint64                `json:"timestamp"`
	Admin     string                `json:"admin"`  // pubkey hex; empty → genesis proposer
	Alloc     map[string]Allocation `json:"alloc"`  // pubkey hex → balances
	Pool      PoolSeed              `json:"pool"`
	Policy    *core.Policy          `json:"policy"` // nil → DefaultPolicy
}

// Apply writes the genesis state and returns its root without committing.
func (g *Genesis) Apply(state core.State) (string, error) {
	admin, err := crypto.PubKeyFromHex(g.Admin)
	if err != nil {
		return "", fmt.Errorf("genesis admin: %w", err)
	}
	policy := core.DefaultPolicy(admin)
	if g.Policy != nil {
		cp := *g.Policy
		policy = &cp
		policy.Admin = admin
	}
	if err := policy.Validate(); err != nil {
		return "", fmt.Errorf("genesis policy: %w", err)
	}
	if err := state.SetPolicy(policy); err != nil {
		return "", err
	}

	house := core.NewHouse()
	keys := make([]string, 0, len(g.Alloc))
	for k := range g.Alloc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		a := g.Alloc[k]
		pub, err := crypto.PubKeyFromHex(k)
		if err != nil {
			return "", fmt.Errorf("genesis alloc %q: %w", k, err)
		}
		p, err := state.GetPlayer(pub)
		if err != nil {
			return "", err
		}
		p.Chips, p.Stable, p.Freeroll = a.Chips, a.Stable, a.Freeroll
		if a.Name != "" {
			p.Name, p.Registered = a.Name, true
		}
		if house.TotalIssued, err = economy.AddU64(house.TotalIssued, a.Chips); err != nil {
			return "", fmt.Errorf("genesis alloc %q: %w", k, err)
		}
		if err := state.SetPlayer(p); err != nil {
			return "", err
		}
	}

	if g.Pool.Chips > 0 || g.Pool.Stable > 0 {
		q, err := economy.QuoteAddLiquidity(0, 0, 0, g.Pool.Chips, g.Pool.Stable)
		if err != nil {
			return "", fmt.Errorf("genesis pool: %w", err)
		}
		if err := state.SetPool(&core.Pool{ReserveChips: q.UsedA, ReserveStable: q.UsedB, TotalShares: q.Minted()}); err != nil {
			return "", err
		}
		p, err := state.GetPlayer(admin)
		if err != nil {
			return "", err
		}
		p.LPShares = q.Shares
		if err := state.SetPlayer(p); err != nil {
			return "", err
		}
		if house.TotalIssued, err = economy.AddU64(house.TotalIssued, q.UsedA); err != nil {
			return "", fmt.Errorf("genesis pool: %w", err)
		}
	}
	house.StabilityStable = g.Pool.Stability
	if err := state.SetHouse(house); err != nil {
		return "", err
	}
	if err := state.SetMeta(&core.ChainMeta{Height: 0, Timestamp: g.Timestamp}); err != nil {
		return "", err
	}
	return state.ComputeRoot(), nil
}

// CreateGenesisBlock applies the genesis state, commits it and returns the
// signed block #0. The chain id is bound into the block through TxRoot.
func CreateGenesisBlock(cfg *Config, state core.State, proposerPriv crypto.PrivateKey) (*core.Block, error) {
	proposerPub := proposerPriv.Public()
	g := cfg.Genesis
	if g.Admin == "" {
		g.Admin = proposerPub.Hex()
	}
	if g.ChainID == "" {
		return nil, errors.New("genesis chain_id required")
	}

	stateRoot, err := g.Apply(state)
	if err != nil {
		state.Discard()
		return nil, err
	}
	if err := state.Commit(); err != nil {
		return nil, err
	}

	block := core.NewBlock(0, GenesisHash, proposerPub.Hex(), g.Timestamp, rng.Seed{}, nil)
	block.Header.StateRoot = stateRoot
	block.Header.TxRoot = crypto.Hash([]byte(g.ChainID))
	block.Sign(proposerPriv)
	return block, nil
}

// IsGenesisHash returns true if the hash is the canonical genesis prev-hash.
func IsGenesisHash(h string) bool {
	return strings.Count(h, "0") == len(h) && len(h) == 64
}
