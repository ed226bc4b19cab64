package vm

import (
	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/crypto"
	"github.com/tolelom/casinochain/events"
	"github.com/tolelom/casinochain/games"
	"github.com/tolelom/casinochain/rng"
)

// Context is passed to every Handler and system step. It exposes the ledger,
// the block being applied and the triggering transaction (nil for system
// steps), and collects the events the step produces. Events reach the block
// log only if the step succeeds.
type Context struct {
	State  core.State
	Block  *core.Block
	Tx     *core.Transaction
	Policy *core.Policy

	events []events.Event
}

// Signer returns the transaction signer, or the zero key for system steps.
func (c *Context) Signer() crypto.PublicKey {
	if c.Tx == nil {
		return crypto.PublicKey{}
	}
	return c.Tx.Signer
}

// Height is the height of the block being applied.
func (c *Context) Height() uint64 { return c.Block.Header.Height }

// Timestamp is the consensus time of the block in seconds.
func (c *Context) Timestamp() uint64 { return c.Block.Header.Timestamp }

// Seed is the committed random seed of the block.
func (c *Context) Seed() rng.Seed { return c.Block.Header.Seed }

// GameEnv is the environment game steps run under.
func (c *Context) GameEnv() games.Env {
	return games.Env{Seed: c.Seed(), Rules: c.Policy.Rules()}
}

// Emit appends ev to the step's pending events.
func (c *Context) Emit(ev events.Event) { c.events = append(c.events, ev) }

// Events returns the pending events in emission order.
func (c *Context) Events() []events.Event { return c.events }

// Mark returns the number of events emitted so far.
func (c *Context) Mark() int { return len(c.events) }

// Truncate drops the events emitted after mark.
func (c *Context) Truncate(mark int) { c.events = c.events[:mark] }

// IsAdmin reports whether the signer holds the admin key.
func (c *Context) IsAdmin() bool {
	return c.Tx != nil && c.Tx.Signer == c.Policy.Admin
}

// RequireAdmin fails with CodeUnauthorized unless the signer is the admin.
func (c *Context) RequireAdmin() error {
	if !c.IsAdmin() {
		return core.NewError(core.CodeUnauthorized, "%s is not the admin key", c.Signer().Address())
	}
	return nil
}
