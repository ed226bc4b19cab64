package casino

import (
	"errors"

	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/economy"
	"github.com/tolelom/casinochain/events"
	"github.com/tolelom/casinochain/games"
	"github.com/tolelom/casinochain/vm"
)

func startGame(ctx *vm.Context, ins *core.StartGame) error {
	p, err := loadRegistered(ctx)
	if err != nil {
		return err
	}
	if p.ActiveSession != 0 {
		return core.NewError(core.CodeSessionActive, "session %d still open", p.ActiveSession)
	}
	if ins.Bet < ctx.Policy.MinBet || ins.Bet > ctx.Policy.MaxBet {
		return core.NewError(core.CodeBetLimit, "bet %d outside [%d, %d]", ins.Bet, ctx.Policy.MinBet, ctx.Policy.MaxBet)
	}
	house, err := ctx.State.GetHouse()
	if err != nil {
		return err
	}

	sess := &core.GameSession{
		Session:   games.Session{ID: house.NextSessionID, Game: ins.Game},
		Player:    p.Key,
		StartedAt: ctx.Height(),
	}
	house.NextSessionID++
	if p.ShieldArmed && p.Shields > 0 {
		p.Shields--
		sess.Shield = true
	}
	if p.DoubleArmed && p.Doubles > 0 {
		p.Doubles--
		sess.Double = true
	}
	p.ShieldArmed, p.DoubleArmed = false, false

	res, err := games.AcceptBet(ctx.GameEnv(), &sess.Session, ins.Bet, ins.Params)
	if err != nil {
		return gameErr(err, "start "+ins.Game.String())
	}
	stake := res.Wager
	if ins.UseFreeroll {
		sess.FreerollStake = min(p.Freeroll, stake)
		p.Freeroll -= sess.FreerollStake
		stake -= sess.FreerollStake
	}
	if err := vm.Debit(&p.Chips, stake, "chips"); err != nil {
		return err
	}
	if err := vm.Credit(&p.TotalWagered, res.Wager); err != nil {
		return err
	}
	p.GamesPlayed++
	ctx.Emit(events.SessionStarted{
		Player:        p.Key,
		SessionID:     sess.ID,
		Game:          sess.Game,
		Bet:           ins.Bet,
		FreerollStake: sess.FreerollStake,
		Shield:        sess.Shield,
		Double:        sess.Double,
		Detail:        res.Detail,
	})

	if res.Complete {
		if err := settle(ctx, p, house, sess, res); err != nil {
			return err
		}
	} else {
		p.ActiveSession = sess.ID
		if err := ctx.State.SetSession(sess); err != nil {
			return err
		}
	}
	if err := ctx.State.SetHouse(house); err != nil {
		return err
	}
	return ctx.State.SetPlayer(p)
}

func gameMove(ctx *vm.Context, ins *core.GameMove) error {
	p, err := ctx.State.GetPlayer(ctx.Signer())
	if err != nil {
		return err
	}
	if p.ActiveSession == 0 || p.ActiveSession != ins.SessionID {
		return core.NewError(core.CodeNoSession, "session %d is not open for %s", ins.SessionID, p.Key.Address())
	}
	sess, err := ctx.State.GetSession(ins.SessionID)
	if errors.Is(err, core.ErrNotFound) {
		return core.WrapError(core.CodeInvariant, err, "active session %d has no record", ins.SessionID)
	}
	if err != nil {
		return err
	}
	if sess.Player != p.Key {
		return core.NewError(core.CodeUnauthorized, "session %d belongs to %s", sess.ID, sess.Player.Address())
	}
	if sess.Game != ins.Game {
		return core.NewError(core.CodeGameRule, "session %d plays %s, not %s", sess.ID, sess.Game, ins.Game)
	}

	res, err := games.AcceptMove(ctx.GameEnv(), &sess.Session, ins.Move)
	if err != nil {
		return gameErr(err, "move "+sess.Game.String())
	}
	if res.Placed != 0 && (res.Placed < ctx.Policy.MinBet || res.Placed > ctx.Policy.MaxBet) {
		return core.NewError(core.CodeBetLimit, "bet %d outside [%d, %d]", res.Placed, ctx.Policy.MinBet, ctx.Policy.MaxBet)
	}
	if err := vm.Debit(&p.Chips, res.Wager, "chips"); err != nil {
		return err
	}
	if err := vm.Credit(&p.TotalWagered, res.Wager); err != nil {
		return err
	}

	if !res.Complete {
		ctx.Emit(events.SessionMoved{
			Player:    p.Key,
			SessionID: sess.ID,
			Game:      sess.Game,
			Move:      sess.Move,
			Wager:     res.Wager,
			Detail:    res.Detail,
		})
		if err := ctx.State.SetSession(sess); err != nil {
			return err
		}
		return ctx.State.SetPlayer(p)
	}

	house, err := ctx.State.GetHouse()
	if err != nil {
		return err
	}
	if err := settle(ctx, p, house, sess, res); err != nil {
		return err
	}
	p.ActiveSession = 0
	if err := ctx.State.DeleteSession(sess.ID); err != nil {
		return err
	}
	if err := ctx.State.SetHouse(house); err != nil {
		return err
	}
	return ctx.State.SetPlayer(p)
}

// settle pays out a completed session. The escrowed chips are the wagered
// total less the freeroll stake. A shield lifts a losing payout back to the
// wager; a double doubles the net win. The freeroll stake itself is never
// returned. The jackpot cut of the escrow feeds the variant's pool, and the
// rest settles against the house.
func settle(ctx *vm.Context, p *core.Player, house *core.House, sess *core.GameSession, res games.Result) error {
	wagered, free := sess.Wagered, sess.FreerollStake
	payout := res.Payout
	var shieldUsed, doubleUsed bool
	switch {
	case sess.Shield && payout < wagered:
		payout, shieldUsed = wagered, true
	case sess.Double && payout > wagered:
		boosted, err := vm.Add(payout, payout-wagered)
		if err != nil {
			return err
		}
		payout, doubleUsed = boosted, true
	}
	paid := payout - min(payout, free)

	escrow := wagered - free
	var fed, won uint64
	if sess.Game.HasJackpot() {
		fed = min(economy.Bps(sess.Bet, games.JackpotContributionBps), escrow)
		pool, err := vm.Add(house.Jackpots[sess.Game], fed)
		if err != nil {
			return err
		}
		if res.Jackpot {
			won, pool = pool, 0
		}
		house.Jackpots[sess.Game] = pool
	}
	delta, err := vm.Settle(house, escrow-fed, paid)
	if err != nil {
		return err
	}

	credit, err := vm.Add(paid, won)
	if err != nil {
		return err
	}
	if err := vm.Credit(&p.Chips, credit); err != nil {
		return err
	}
	if err := vm.Credit(&p.TotalWon, credit); err != nil {
		return err
	}
	ctx.Emit(events.SessionCompleted{
		Player:        p.Key,
		SessionID:     sess.ID,
		Game:          sess.Game,
		Moves:         sess.Move,
		Wagered:       wagered,
		FreerollStake: free,
		Payout:        res.Payout,
		Paid:          credit,
		ShieldUsed:    shieldUsed,
		DoubleUsed:    doubleUsed,
		JackpotFed:    fed,
		JackpotWon:    won,
		HouseDelta:    delta,
		Detail:        res.Detail,
	})
	return nil
}
