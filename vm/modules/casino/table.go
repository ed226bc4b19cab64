package casino

import (
	"bytes"
	"sort"

	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/events"
	"github.com/tolelom/casinochain/games"
	"github.com/tolelom/casinochain/log"
	"github.com/tolelom/casinochain/vm"
)

var logger = log.Module("casino")

func placeBets(ctx *vm.Context, ins *core.TablePlaceBets) error {
	p, err := loadRegistered(ctx)
	if err != nil {
		return err
	}
	t, err := ctx.State.GetTable(ins.Game)
	if err != nil {
		return err
	}
	if t.Clock.Phase != games.PhaseBetting {
		return core.NewError(core.CodeTableClosed, "%s table is %s", ins.Game, t.Clock.Phase)
	}
	if t.Clock.RoundID != ins.RoundID {
		return core.NewError(core.CodeRoundMismatch, "%s table is on round %d, not %d", ins.Game, t.Clock.RoundID, ins.RoundID)
	}

	total := games.SumBets(ins.Bets)
	i := sort.Search(len(t.Entries), func(i int) bool {
		return bytes.Compare(t.Entries[i].Player[:], p.Key[:]) >= 0
	})
	exists := i < len(t.Entries) && t.Entries[i].Player == p.Key
	var prior uint64
	if exists {
		prior = t.Entries[i].Total
		if len(t.Entries[i].Bets)+len(ins.Bets) > ins.Game.MaxBets() {
			return core.NewError(core.CodeBetLimit, "at most %d bets per round", ins.Game.MaxBets())
		}
	} else if len(t.Entries) >= core.MaxTableEntries {
		return core.NewError(core.CodeTableFull, "%s round %d is full", ins.Game, ins.RoundID)
	}
	combined, err := vm.Add(prior, total)
	if err != nil {
		return err
	}
	if total < ctx.Policy.MinBet || combined > ctx.Policy.MaxBet {
		return core.NewError(core.CodeBetLimit, "round total %d outside [%d, %d]", combined, ctx.Policy.MinBet, ctx.Policy.MaxBet)
	}
	if err := vm.Debit(&p.Chips, total, "chips"); err != nil {
		return err
	}
	if err := vm.Credit(&p.TotalWagered, total); err != nil {
		return err
	}

	if exists {
		e := &t.Entries[i]
		e.Bets = append(e.Bets, ins.Bets...)
		e.Total = combined
	} else {
		t.Entries = append(t.Entries, core.TableEntry{})
		copy(t.Entries[i+1:], t.Entries[i:])
		t.Entries[i] = core.TableEntry{Player: p.Key, Bets: ins.Bets, Total: total}
		p.GamesPlayed++
	}
	if err := ctx.State.SetTable(t); err != nil {
		return err
	}
	if err := ctx.State.SetPlayer(p); err != nil {
		return err
	}
	ctx.Emit(events.TableBetPlaced{Player: p.Key, Game: ins.Game, RoundID: ins.RoundID, Bets: ins.Bets, Total: total})
	return nil
}

// TickTables advances every table clock by one block and resolves the rounds
// whose lock has passed, using this block's seed. Each table runs under its
// own snapshot; a round that fails to settle is voided and refunded so the
// table keeps moving.
func TickTables(ctx *vm.Context) error {
	for _, g := range games.All {
		if !g.HasTable() {
			continue
		}
		snap, err := ctx.State.Snapshot()
		if err != nil {
			return core.Fault(err)
		}
		mark := ctx.Mark()
		err = tickTable(ctx, g)
		if core.IsFault(err) {
			return err
		}
		if err != nil {
			if rerr := ctx.State.RevertToSnapshot(snap); rerr != nil {
				return core.Fault(rerr)
			}
			ctx.Truncate(mark)
			logger.Warn("table round voided", "game", g.String(), "height", ctx.Height(), "err", err)
			if err := voidRound(ctx, g, err); err != nil {
				return err
			}
		}
	}
	return nil
}

func tickTable(ctx *vm.Context, g games.GameType) error {
	t, err := ctx.State.GetTable(g)
	if err != nil {
		return err
	}
	if t.Clock.Tick(ctx.Height(), ctx.Policy.Timing()) {
		if err := resolveRound(ctx, t); err != nil {
			return err
		}
	}
	return ctx.State.SetTable(t)
}

// voidRound advances the clock of a table whose round failed to settle and
// returns every entry's stake. A refund that cannot be credited is skipped.
func voidRound(ctx *vm.Context, g games.GameType, cause error) error {
	t, err := ctx.State.GetTable(g)
	if err != nil {
		return err
	}
	t.Clock.Tick(ctx.Height(), ctx.Policy.Timing())
	var refunded uint64
	for _, e := range t.Entries {
		p, err := ctx.State.GetPlayer(e.Player)
		if err != nil {
			return err
		}
		if err := vm.Credit(&p.Chips, e.Total); err != nil {
			logger.Warn("table refund skipped", "game", g.String(), "player", e.Player.Address(), "err", err)
			continue
		}
		if err := ctx.State.SetPlayer(p); err != nil {
			return err
		}
		if next, err := vm.Add(refunded, e.Total); err == nil {
			refunded = next
		}
	}
	ctx.Emit(events.TableRoundVoided{
		Game:     g,
		RoundID:  t.Clock.RoundID,
		Bettors:  len(t.Entries),
		Refunded: refunded,
		Reason:   string(core.CodeOf(cause)),
	})
	t.Entries = nil
	return ctx.State.SetTable(t)
}

// resolveRound settles every entry of the table's current round. Rounds
// without bettors are drawn silently.
func resolveRound(ctx *vm.Context, t *core.Table) error {
	if len(t.Entries) == 0 {
		return nil
	}
	round, err := games.DrawRound(ctx.GameEnv(), t.Game, t.Clock.RoundID)
	if err != nil {
		return core.WrapError(core.CodeInvariant, err, "draw %s round %d", t.Game, t.Clock.RoundID)
	}
	rules := ctx.Policy.Rules()
	payouts := make([]events.TablePayout, 0, len(t.Entries))
	var wagered, paid uint64
	for _, e := range t.Entries {
		amount, detail := round.Settle(rules, e.Bets)
		p, err := ctx.State.GetPlayer(e.Player)
		if err != nil {
			return err
		}
		if err := vm.Credit(&p.Chips, amount); err != nil {
			return err
		}
		if err := vm.Credit(&p.TotalWon, amount); err != nil {
			return err
		}
		if err := ctx.State.SetPlayer(p); err != nil {
			return err
		}
		if wagered, err = vm.Add(wagered, e.Total); err != nil {
			return err
		}
		if paid, err = vm.Add(paid, amount); err != nil {
			return err
		}
		payouts = append(payouts, events.TablePayout{
			Player:  e.Player,
			Game:    t.Game,
			RoundID: t.Clock.RoundID,
			Wagered: e.Total,
			Paid:    amount,
			Detail:  detail,
		})
	}

	house, err := ctx.State.GetHouse()
	if err != nil {
		return err
	}
	delta, err := vm.Settle(house, wagered, paid)
	if err != nil {
		return err
	}
	if err := ctx.State.SetHouse(house); err != nil {
		return err
	}
	ctx.Emit(events.TableRoundResolved{
		Game:         t.Game,
		RoundID:      t.Clock.RoundID,
		Bettors:      len(t.Entries),
		TotalWagered: wagered,
		TotalPaid:    paid,
		HouseDelta:   delta,
		Result:       round.Summary(),
	})
	for _, ev := range payouts {
		ctx.Emit(ev)
	}
	t.Entries = nil
	return nil
}
