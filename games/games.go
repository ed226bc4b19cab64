// Package games implements the ten casino variants as deterministic state
// machines over compact binary blobs. Dispatch is a switch over GameType so
// adding a variant forces every switch to be revisited.
//
// A session moves through AcceptBet (the opening wager and deal) and any
// number of AcceptMove calls until Result.Complete is set. Every accepted
// step draws from rng.Derive(seed, session id, move counter) and then
// increments the move counter.
package games

import (
	"errors"
	"fmt"

	"github.com/tolelom/casinochain/rng"
)

// GameType identifies a variant.
type GameType uint8

const (
	Baccarat GameType = iota + 1
	Blackjack
	CasinoWar
	Craps
	HiLo
	Roulette
	SicBo
	ThreeCardPoker
	UltimateHoldem
	VideoPoker
)

// All lists every variant in tag order.
var All = []GameType{
	Baccarat, Blackjack, CasinoWar, Craps, HiLo,
	Roulette, SicBo, ThreeCardPoker, UltimateHoldem, VideoPoker,
}

// Errors returned by the state machines. Handlers map them onto domain
// errors; none of them indicates a fault.
var (
	ErrUnknownGame     = errors.New("unknown game type")
	ErrInvalidBet      = errors.New("invalid bet")
	ErrTooManyBets     = errors.New("too many bets")
	ErrInvalidMove     = errors.New("invalid move")
	ErrSessionComplete = errors.New("session already complete")
	ErrCorruptState    = errors.New("corrupt session state")
)

func (g GameType) String() string {
	switch g {
	case Baccarat:
		return "baccarat"
	case Blackjack:
		return "blackjack"
	case CasinoWar:
		return "casino_war"
	case Craps:
		return "craps"
	case HiLo:
		return "hilo"
	case Roulette:
		return "roulette"
	case SicBo:
		return "sic_bo"
	case ThreeCardPoker:
		return "three_card_poker"
	case UltimateHoldem:
		return "ultimate_holdem"
	case VideoPoker:
		return "video_poker"
	}
	return fmt.Sprintf("game(%d)", uint8(g))
}

// ParseGameType maps a variant name, as printed by String, back to its tag.
func ParseGameType(name string) (GameType, error) {
	for _, g := range All {
		if g.String() == name {
			return g, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownGame, name)
}

// Valid reports whether g names a known variant.
func (g GameType) Valid() bool {
	return g >= Baccarat && g <= VideoPoker
}

// MaxStateSize is the consensus-critical bound on a variant's state blob.
func (g GameType) MaxStateSize() int {
	switch g {
	case Baccarat, Roulette, SicBo:
		return 4
	case Blackjack:
		return 160
	case CasinoWar:
		return 24
	case Craps:
		return 2 + maxCrapsBets*betSize + 8
	case HiLo:
		return 16
	case ThreeCardPoker:
		return 24
	case UltimateHoldem:
		return 32
	case VideoPoker:
		return 8
	}
	return 0
}

// MaxBets is the per-round bet catalogue bound, zero for variants that do
// not take a bet list.
func (g GameType) MaxBets() int {
	switch g {
	case Baccarat:
		return maxBaccaratBets
	case Craps:
		return maxCrapsBets
	case Roulette:
		return maxRouletteBets
	case SicBo:
		return maxSicBoBets
	}
	return 0
}

// HasTable reports whether the variant also runs a shared multiplayer table.
func (g GameType) HasTable() bool {
	return g == Roulette || g == SicBo || g == Baccarat
}

// HasJackpot reports whether the variant feeds the progressive jackpot.
func (g GameType) HasJackpot() bool {
	return g == ThreeCardPoker || g == UltimateHoldem || g == VideoPoker
}

// JackpotContributionBps is the share of the main wager routed to the
// variant's progressive jackpot.
const JackpotContributionBps = 100

// Session is the game-facing part of an active session.
type Session struct {
	ID       uint64   `json:"id"`
	Game     GameType `json:"game"`
	Bet      uint64   `json:"bet"`
	Wagered  uint64   `json:"wagered"`
	State    []byte   `json:"state"`
	Move     uint64   `json:"move"`
	Complete bool     `json:"complete"`
}

// Rules are policy switches that alter payouts.
type Rules struct {
	LaPartage bool `json:"la_partage"`
}

// Env is the per-block context a step runs under.
type Env struct {
	Seed  rng.Seed
	Rules Rules
}

// Result reports what a step did. Wager is the amount to debit from the
// player for this step. Payout is the total credit due, set only when
// Complete.
type Result struct {
	Wager uint64
	// Placed is the amount of a new bet the player sized freely on this
	// move, held to the table limits like an opening bet.
	Placed   uint64
	Payout   uint64
	Complete bool
	Jackpot  bool
	Detail   Detail
}

func (s *Session) stream(env Env) *rng.Stream {
	return rng.Derive(env.Seed, s.ID, s.Move)
}

// AcceptBet opens a session with the main bet and variant parameters.
func AcceptBet(env Env, s *Session, bet uint64, params []byte) (Result, error) {
	if s.Complete || s.Move != 0 || len(s.State) != 0 {
		return Result{}, ErrInvalidMove
	}
	if bet == 0 {
		return Result{}, ErrInvalidBet
	}
	if err := ValidateStart(s.Game, bet, params); err != nil {
		return Result{}, err
	}
	stream := s.stream(env)
	var (
		res   Result
		state []byte
		err   error
	)
	switch s.Game {
	case Baccarat:
		res, state, err = startBaccarat(stream, bet, params)
	case Blackjack:
		res, state, err = startBlackjack(stream, bet)
	case CasinoWar:
		res, state, err = startCasinoWar(stream, bet, params)
	case Craps:
		res, state, err = startCraps(stream, bet, params)
	case HiLo:
		res, state, err = startHiLo(stream, bet)
	case Roulette:
		res, state, err = startRoulette(stream, env.Rules, bet, params)
	case SicBo:
		res, state, err = startSicBo(stream, bet, params)
	case ThreeCardPoker:
		res, state, err = startThreeCard(stream, bet, params)
	case UltimateHoldem:
		res, state, err = startHoldem(stream, bet, params)
	case VideoPoker:
		res, state, err = startVideoPoker(stream, bet)
	default:
		return Result{}, ErrUnknownGame
	}
	if err != nil {
		return Result{}, err
	}
	return s.advance(res, state, bet)
}

// AcceptMove applies one player action to an open session.
func AcceptMove(env Env, s *Session, move []byte) (Result, error) {
	if s.Complete {
		return Result{}, ErrSessionComplete
	}
	if err := ValidateMove(s.Game, move); err != nil {
		return Result{}, err
	}
	stream := s.stream(env)
	var (
		res   Result
		state []byte
		err   error
	)
	switch s.Game {
	case Blackjack:
		res, state, err = moveBlackjack(stream, s, move)
	case CasinoWar:
		res, state, err = moveCasinoWar(stream, s, move)
	case Craps:
		res, state, err = moveCraps(stream, s, move)
	case HiLo:
		res, state, err = moveHiLo(stream, s, move)
	case ThreeCardPoker:
		res, state, err = moveThreeCard(stream, s, move)
	case UltimateHoldem:
		res, state, err = moveHoldem(stream, s, move)
	case VideoPoker:
		res, state, err = moveVideoPoker(stream, s, move)
	case Baccarat, Roulette, SicBo:
		// single-round variants settle inside AcceptBet
		return Result{}, ErrSessionComplete
	default:
		return Result{}, ErrUnknownGame
	}
	if err != nil {
		return Result{}, err
	}
	return s.advance(res, state, 0)
}

func (s *Session) advance(res Result, state []byte, bet uint64) (Result, error) {
	if len(state) > s.Game.MaxStateSize() {
		return Result{}, fmt.Errorf("%w: %d byte blob exceeds %d", ErrCorruptState, len(state), s.Game.MaxStateSize())
	}
	if bet != 0 {
		s.Bet = bet
	}
	s.Wagered = addChecked(s.Wagered, res.Wager)
	s.State = state
	s.Move++
	s.Complete = res.Complete
	return res, nil
}

// ValidateStart checks the static shape of an opening wager. The codec runs
// it at decode time and AcceptBet runs it again.
func ValidateStart(g GameType, bet uint64, params []byte) error {
	switch g {
	case Baccarat:
		_, err := parseBetList(params, bet, maxBaccaratBets, validBaccaratBet)
		return err
	case Craps:
		_, err := parseBetList(params, bet, maxCrapsBets, validCrapsStartBet)
		return err
	case Roulette:
		_, err := parseBetList(params, bet, maxRouletteBets, validRouletteBet)
		return err
	case SicBo:
		_, err := parseBetList(params, bet, maxSicBoBets, validSicBoBet)
		return err
	case CasinoWar, ThreeCardPoker, UltimateHoldem:
		_, err := parseSideBet(params)
		return err
	case Blackjack, HiLo, VideoPoker:
		if len(params) != 0 {
			return fmt.Errorf("%w: %s takes no parameters", ErrInvalidBet, g)
		}
		return nil
	}
	return ErrUnknownGame
}

// ValidateMove checks the static shape of a move payload.
func ValidateMove(g GameType, move []byte) error {
	if len(move) == 0 {
		return fmt.Errorf("%w: empty move", ErrInvalidMove)
	}
	action := move[0]
	switch g {
	case Blackjack:
		return expectLen(move, 1, action <= bjSurrender)
	case CasinoWar:
		return expectLen(move, 1, action <= warGoToWar)
	case Craps:
		switch action {
		case crapsRoll:
			return expectLen(move, 1, true)
		case crapsAddBet:
			if len(move) != 1+betSize {
				return fmt.Errorf("%w: craps add-bet needs %d bytes", ErrInvalidMove, 1+betSize)
			}
			b := decodeBet(move[1:])
			if b.Amount == 0 || !validCrapsBet(b) {
				return fmt.Errorf("%w: craps bet %d/%d", ErrInvalidBet, b.Kind, b.Target)
			}
			return nil
		}
		return fmt.Errorf("%w: craps action %d", ErrInvalidMove, action)
	case HiLo:
		return expectLen(move, 1, action <= hiloCashout)
	case ThreeCardPoker:
		return expectLen(move, 1, action <= tcpFold)
	case UltimateHoldem:
		switch action {
		case uthCheck, uthFold:
			return expectLen(move, 1, true)
		case uthBet:
			return expectLen(move, 2, len(move) == 2 && move[1] >= 1 && move[1] <= 4)
		}
		return fmt.Errorf("%w: holdem action %d", ErrInvalidMove, action)
	case VideoPoker:
		return expectLen(move, 2, action == vpHold && len(move) == 2 && move[1] < 32)
	case Baccarat, Roulette, SicBo:
		return fmt.Errorf("%w: %s settles on deal", ErrInvalidMove, g)
	}
	return ErrUnknownGame
}

func expectLen(move []byte, n int, ok bool) error {
	if len(move) != n || !ok {
		return fmt.Errorf("%w: action %d", ErrInvalidMove, move[0])
	}
	return nil
}
