package games

import "fmt"

// TablePhase is the stage of a shared table round.
type TablePhase uint8

const (
	PhaseBetting TablePhase = iota + 1
	PhaseLocked
	PhaseCooldown
)

func (p TablePhase) String() string {
	switch p {
	case PhaseBetting:
		return "betting"
	case PhaseLocked:
		return "locked"
	case PhaseCooldown:
		return "cooldown"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// TableTiming is the per-phase block budget.
type TableTiming struct {
	BettingBlocks  uint64 `json:"betting_blocks"`
	CooldownBlocks uint64 `json:"cooldown_blocks"`
}

// TableClock tracks a table's round and phase. It advances only through
// Tick, once per block, so every replica walks the same schedule.
type TableClock struct {
	RoundID    uint64     `json:"round_id"`
	Phase      TablePhase `json:"phase"`
	PhaseStart uint64     `json:"phase_start"`
}

// Tick advances the clock for the block at height and reports whether the
// current round must be resolved in this block with this block's seed.
// A round locks once its betting window has elapsed and resolves in the
// first block after the lock, so no bettor could have seen that seed.
func (c *TableClock) Tick(height uint64, t TableTiming) (resolve bool) {
	switch c.Phase {
	case PhaseBetting:
		if height >= c.PhaseStart+t.BettingBlocks {
			c.Phase, c.PhaseStart = PhaseLocked, height
		}
	case PhaseLocked:
		if height > c.PhaseStart {
			c.Phase, c.PhaseStart = PhaseCooldown, height
			return true
		}
	case PhaseCooldown:
		if height >= c.PhaseStart+t.CooldownBlocks {
			c.RoundID++
			c.Phase, c.PhaseStart = PhaseBetting, height
		}
	default:
		c.RoundID, c.Phase, c.PhaseStart = 1, PhaseBetting, height
	}
	return false
}

// TableSessionID keys a table round's RNG stream. The high bit keeps it
// disjoint from player session ids.
func TableSessionID(g GameType, round uint64) uint64 {
	return 1<<63 | uint64(g)<<48 | round&(1<<48-1)
}

// TableRound is the drawn result of one round, shared by every bettor.
type TableRound struct {
	Game   GameType
	number uint8
	dice   [3]uint8
	coup   baccaratCoup
}

// DrawRound draws a round outcome for a table variant.
func DrawRound(env Env, g GameType, round uint64) (*TableRound, error) {
	s := &Session{ID: TableSessionID(g, round), Game: g}
	src := newSource(s.stream(env))
	r := &TableRound{Game: g}
	switch g {
	case Roulette:
		r.number = spinRoulette(src)
	case SicBo:
		r.dice = rollSicBo(src)
	case Baccarat:
		r.coup = dealBaccarat(src)
	default:
		return nil, fmt.Errorf("%w: %s has no table", ErrUnknownGame, g)
	}
	return r, nil
}

// Settle pays one bettor's list against the round.
func (r *TableRound) Settle(rules Rules, bets []Bet) (uint64, Detail) {
	switch r.Game {
	case Roulette:
		return settleRoulette(rules, r.number, bets)
	case SicBo:
		return settleSicBo(r.dice, bets)
	case Baccarat:
		return r.coup.settle(bets)
	}
	return 0, Detail{}
}

// Summary is the round result without any bets.
func (r *TableRound) Summary() Detail {
	_, d := r.Settle(Rules{}, nil)
	d.Bets = nil
	return d
}
