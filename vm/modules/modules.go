// Package modules assembles the instruction handlers and system steps into
// a registry.
package modules

import (
	"github.com/tolelom/casinochain/vm"
	"github.com/tolelom/casinochain/vm/modules/admin"
	"github.com/tolelom/casinochain/vm/modules/bridge"
	"github.com/tolelom/casinochain/vm/modules/casino"
	"github.com/tolelom/casinochain/vm/modules/liquidity"
	"github.com/tolelom/casinochain/vm/modules/staking"
)

// Register installs every family handler and the begin-block steps. Begin
// steps run in order: the staking epoch closes on the previous block's
// profit, tables resolve, then vaults are accrued and swept.
func Register(r *vm.Registry) {
	casino.Register(r)
	liquidity.Register(r)
	staking.Register(r)
	bridge.Register(r)
	admin.Register(r)

	r.OnBeginBlock("staking-epoch", staking.Epoch)
	r.OnBeginBlock("tables", casino.TickTables)
	r.OnBeginBlock("vault-sweep", liquidity.Sweep)
}

// NewRegistry returns a registry with every module installed.
func NewRegistry() *vm.Registry {
	r := vm.NewRegistry()
	Register(r)
	return r
}
