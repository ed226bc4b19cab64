package games

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlackjackDealerNaturalBeatsStandingTwenty(t *testing.T) {
	res, state, err := dealBlackjack(deal(t, "Ks", "Qh", "Ad"), 100)
	require.NoError(t, err)
	require.False(t, res.Complete)
	require.EqualValues(t, 100, res.Wager)

	st, err := decodeBlackjack(state)
	require.NoError(t, err)
	res, state, err = st.act(deal(t, "Tc"), bjStand)
	require.NoError(t, err)
	require.Nil(t, state)
	require.True(t, res.Complete)
	require.Zero(t, res.Payout)
	require.Equal(t, "blackjack", res.Detail.Dealer.Label)
	require.EqualValues(t, 20, res.Detail.Player[0].Value)
	require.Equal(t, Loss, res.Detail.Player[0].Outcome)
}

func TestBlackjackNaturals(t *testing.T) {
	res, _, err := dealBlackjack(deal(t, "As", "Kd", "9c", "7h"), 100)
	require.NoError(t, err)
	require.True(t, res.Complete)
	require.EqualValues(t, 250, res.Payout)

	res, _, err = dealBlackjack(deal(t, "As", "Kd", "Ah", "Qc"), 100)
	require.NoError(t, err)
	require.True(t, res.Complete)
	require.EqualValues(t, 100, res.Payout)
	require.Equal(t, Push, res.Detail.Player[0].Outcome)
}

func TestBlackjackSplitAceTenIsNotNatural(t *testing.T) {
	split := bjHand{cards: cardList(t, "As", "Tc"), bet: 100, fromSplit: true, splitAces: true}
	require.False(t, isNatural(split.cards, split.fromSplit))
	require.True(t, isNatural(split.cards, false))
	require.EqualValues(t, 200, settleBlackjackHand(split, cardList(t, "9h", "8h")))
	require.Zero(t, settleBlackjackHand(split, cardList(t, "Ah", "Kh")))
}

func TestBlackjackSplitDoubleAndDealerBust(t *testing.T) {
	_, state, err := dealBlackjack(deal(t, "8s", "8h", "6d"), 100)
	require.NoError(t, err)
	st, err := decodeBlackjack(state)
	require.NoError(t, err)

	res, state, err := st.act(deal(t, "3c", "Tc"), bjSplit)
	require.NoError(t, err)
	require.EqualValues(t, 100, res.Wager)
	require.Len(t, res.Detail.Player, 2)

	st, err = decodeBlackjack(state)
	require.NoError(t, err)
	res, state, err = st.act(deal(t, "Td"), bjDouble)
	require.NoError(t, err)
	require.EqualValues(t, 100, res.Wager)
	require.False(t, res.Complete)

	st, err = decodeBlackjack(state)
	require.NoError(t, err)
	require.EqualValues(t, 1, st.active)
	res, _, err = st.act(deal(t, "Ts", "9h"), bjStand)
	require.NoError(t, err)
	require.True(t, res.Complete)
	require.EqualValues(t, 25, res.Detail.Dealer.Value)
	require.EqualValues(t, 600, res.Payout)
}

func TestBlackjackSurrenderOnlyFirst(t *testing.T) {
	_, state, err := dealBlackjack(deal(t, "8s", "8h", "6d"), 100)
	require.NoError(t, err)
	st, err := decodeBlackjack(state)
	require.NoError(t, err)
	res, _, err := st.act(deal(t), bjSurrender)
	require.NoError(t, err)
	require.True(t, res.Complete)
	require.EqualValues(t, 50, res.Payout)

	st, err = decodeBlackjack(state)
	require.NoError(t, err)
	_, state, err = st.act(deal(t, "2c"), bjHit)
	require.NoError(t, err)
	st, err = decodeBlackjack(state)
	require.NoError(t, err)
	_, _, err = st.act(deal(t), bjSurrender)
	require.ErrorIs(t, err, ErrInvalidMove)
}

func TestDealerStandsOnSoft17(t *testing.T) {
	require.False(t, dealerShouldDraw(cardList(t, "Ac", "6d")))
	require.True(t, dealerShouldDraw(cardList(t, "Tc", "6d")))
	require.False(t, dealerShouldDraw(cardList(t, "Tc", "7d")))
}

func TestBaccaratThirdCardTable(t *testing.T) {
	cases := []struct {
		banker, third uint8
		draws         bool
	}{
		{2, 8, true},
		{3, 8, false},
		{3, 9, true},
		{4, 1, false},
		{4, 2, true},
		{5, 4, true},
		{5, 8, false},
		{6, 6, true},
		{6, 5, false},
		{7, 7, false},
		{5, playerStood, true},
		{6, playerStood, false},
	}
	for _, c := range cases {
		got := bankerDraws[c.banker]&(1<<c.third) != 0
		require.Equal(t, c.draws, got, "banker %d third %d", c.banker, c.third)
	}
}

func TestBaccaratCoupSettlement(t *testing.T) {
	coup := dealBaccarat(deal(t, "2c", "4d", "3c", "2d", "6h", "9s"))
	require.Len(t, coup.player, 3)
	require.Len(t, coup.banker, 3)
	bets := []Bet{
		{Kind: BacBanker, Amount: 100},
		{Kind: BacPlayer, Amount: 100},
		{Kind: BacTie, Amount: 100},
	}
	total, d := coup.settle(bets)
	require.EqualValues(t, 195, total)
	require.EqualValues(t, 1, d.Player[0].Value)
	require.EqualValues(t, 5, d.Dealer.Value)

	natural := dealBaccarat(deal(t, "9c", "Kd", "Kc", "2h"))
	require.Len(t, natural.player, 2)
	total, _ = natural.settle([]Bet{{Kind: BacPlayer, Amount: 100}, {Kind: BacPlayerPair, Amount: 10}})
	require.EqualValues(t, 200, total)

	tie := baccaratCoup{player: cardList(t, "3c", "4c"), banker: cardList(t, "2d", "5d")}
	total, _ = tie.settle([]Bet{{Kind: BacPlayer, Amount: 100}, {Kind: BacBanker, Amount: 100}, {Kind: BacTie, Amount: 10}})
	require.EqualValues(t, 290, total)
}

func TestCasinoWarRules(t *testing.T) {
	res, _, err := dealCasinoWar(deal(t, "Kc", "9d"), 100, 0)
	require.NoError(t, err)
	require.True(t, res.Complete)
	require.EqualValues(t, 200, res.Payout)

	res, state, err := dealCasinoWar(deal(t, "9c", "9d"), 100, 10)
	require.NoError(t, err)
	require.False(t, res.Complete)
	require.EqualValues(t, 110, res.Wager)

	st, err := decodeWar(state)
	require.NoError(t, err)
	res, _, err = st.act(deal(t, "2c", "3c", "4c", "Ah", "5s"), warGoToWar)
	require.NoError(t, err)
	require.EqualValues(t, 100, res.Wager)
	// tie bet 110 back, ante pushed, raise paid 1:1
	require.EqualValues(t, 110+100+200, res.Payout)

	st, _ = decodeWar(state)
	res, _, err = st.act(deal(t, "2c", "3c", "4c", "Jh", "Js"), warGoToWar)
	require.NoError(t, err)
	require.EqualValues(t, 110+100+300, res.Payout)

	st, _ = decodeWar(state)
	res, _, err = st.act(deal(t), warSurrender)
	require.NoError(t, err)
	require.EqualValues(t, 110+50, res.Payout)
}

func TestCrapsBetTable(t *testing.T) {
	cases := []struct {
		name   string
		bet    Bet
		point  uint8
		d1, d2 uint8
		done   bool
		payout uint64
	}{
		{"pass natural", Bet{Kind: CrapsPass, Amount: 100}, 0, 3, 4, true, 200},
		{"pass craps", Bet{Kind: CrapsPass, Amount: 100}, 0, 1, 1, true, 0},
		{"pass waits", Bet{Kind: CrapsPass, Amount: 100}, 6, 2, 2, false, 0},
		{"dont pass bar 12", Bet{Kind: CrapsDontPass, Amount: 100}, 0, 6, 6, true, 100},
		{"dont pass seven out", Bet{Kind: CrapsDontPass, Amount: 100}, 8, 3, 4, true, 200},
		{"field twelve", Bet{Kind: CrapsField, Amount: 100}, 0, 6, 6, true, 300},
		{"field loses", Bet{Kind: CrapsField, Amount: 100}, 0, 3, 3, true, 0},
		{"place six", Bet{Kind: CrapsPlace, Target: 6, Amount: 60}, 4, 3, 3, true, 130},
		{"place four", Bet{Kind: CrapsPlace, Target: 4, Amount: 50}, 0, 1, 3, true, 140},
		{"hard eight easy", Bet{Kind: CrapsHardway, Target: 8, Amount: 10}, 0, 5, 3, true, 0},
		{"hard eight", Bet{Kind: CrapsHardway, Target: 8, Amount: 10}, 0, 4, 4, true, 100},
		{"any seven", Bet{Kind: CrapsAny7, Amount: 10}, 0, 6, 1, true, 50},
		{"yo", Bet{Kind: CrapsYo, Amount: 10}, 0, 5, 6, true, 160},
		{"odds on five", Bet{Kind: CrapsPassOdds, Amount: 100}, 5, 2, 3, true, 250},
	}
	for _, c := range cases {
		done, p := settleCrapsBet(c.bet, c.point, c.d1, c.d2)
		require.Equal(t, c.done, done, c.name)
		require.Equal(t, c.payout, p, c.name)
	}
}

func TestCrapsSessionEndsWhenNoBetsRemain(t *testing.T) {
	st := &crapsState{bets: []Bet{{Kind: CrapsPass, Amount: 100}}}
	res, state, err := st.roll(&scripted{dice: []uint8{3, 3}})
	require.NoError(t, err)
	require.False(t, res.Complete)
	require.EqualValues(t, 6, res.Detail.Point)

	st, err = decodeCraps(state)
	require.NoError(t, err)
	res, state, err = st.add(Bet{Kind: CrapsPassOdds, Amount: 50})
	require.NoError(t, err)
	require.EqualValues(t, 50, res.Wager)
	_, _, err = st.add(Bet{Kind: CrapsPass, Amount: 50})
	require.ErrorIs(t, err, ErrInvalidBet)

	st, err = decodeCraps(state)
	require.NoError(t, err)
	res, state, err = st.roll(&scripted{dice: []uint8{1, 5}})
	require.NoError(t, err)
	require.True(t, res.Complete)
	require.Nil(t, state)
	require.EqualValues(t, 200+110, res.Payout)
}

func TestHiLoMultipliers(t *testing.T) {
	require.EqualValues(t, 10508, hiloFactors[12])
	require.EqualValues(t, 126100, hiloFactors[1])

	st := &hiloState{card: Card(0), multiplier: bpsOne}
	_, _, err := st.act(&scripted{}, 100, hiloLower)
	require.ErrorIs(t, err, ErrInvalidMove)

	res, state, err := st.act(&scripted{nums: []uint32{5}}, 100, hiloHigher)
	require.NoError(t, err)
	require.False(t, res.Complete)
	st, err = decodeHiLo(state)
	require.NoError(t, err)
	require.EqualValues(t, 10508, st.multiplier)
	res, _, err = st.act(&scripted{}, 100, hiloCashout)
	require.NoError(t, err)
	require.EqualValues(t, 105, res.Payout)

	equal := &hiloState{card: Card(0), multiplier: bpsOne}
	res, _, err = equal.act(&scripted{nums: []uint32{13}}, 100, hiloHigher)
	require.NoError(t, err)
	require.True(t, res.Complete)
	require.Zero(t, res.Payout)
}

func TestRouletteCoverage(t *testing.T) {
	corner := Bet{Kind: RouCorner, Target: 1}
	for _, n := range []uint8{1, 2, 4, 5} {
		require.True(t, rouletteCovers(corner, n))
	}
	require.False(t, rouletteCovers(corner, 3))
	require.True(t, rouletteCovers(Bet{Kind: RouColumn, Target: 1}, 34))
	require.True(t, rouletteCovers(Bet{Kind: RouDozen, Target: 3}, 25))
	require.True(t, rouletteCovers(Bet{Kind: RouSixLine, Target: 2}, 9))
	require.False(t, rouletteCovers(Bet{Kind: RouRed}, 0))
	require.False(t, rouletteCovers(Bet{Kind: RouEven}, 0))
	require.True(t, rouletteCovers(Bet{Kind: RouBlack}, 2))
}

func TestRouletteLaPartage(t *testing.T) {
	bets := []Bet{{Kind: RouRed, Amount: 100}, {Kind: RouStraight, Target: 0, Amount: 10}}
	total, d := settleRoulette(Rules{LaPartage: true}, 0, bets)
	require.EqualValues(t, 50+360, total)
	require.Equal(t, Loss, d.Bets[0].Outcome)
	total, _ = settleRoulette(Rules{}, 0, bets)
	require.EqualValues(t, 360, total)
	total, _ = settleRoulette(Rules{}, 1, bets)
	require.EqualValues(t, 200, total)
}

func TestSicBoPayouts(t *testing.T) {
	triple := [3]uint8{2, 2, 2}
	require.Zero(t, sicBoPays(Bet{Kind: SicSmall, Amount: 100}, triple))
	require.EqualValues(t, 310, sicBoPays(Bet{Kind: SicAnyTriple, Amount: 10}, triple))
	require.EqualValues(t, 181, sicBoPays(Bet{Kind: SicSpecificTriple, Target: 2, Amount: 1}, triple))
	require.EqualValues(t, 180, sicBoPays(Bet{Kind: SicTotal, Target: 6, Amount: 10}, triple))
	require.EqualValues(t, 40, sicBoPays(Bet{Kind: SicSingle, Target: 2, Amount: 10}, triple))

	mixed := [3]uint8{1, 2, 6}
	require.EqualValues(t, 200, sicBoPays(Bet{Kind: SicSmall, Amount: 100}, mixed))
	require.EqualValues(t, 70, sicBoPays(Bet{Kind: SicTotal, Target: 9, Amount: 10}, mixed))
	require.EqualValues(t, 60, sicBoPays(Bet{Kind: SicCombination, Target: 0x12, Amount: 10}, mixed))
	require.EqualValues(t, 20, sicBoPays(Bet{Kind: SicSingle, Target: 6, Amount: 10}, mixed))
	require.Zero(t, sicBoPays(Bet{Kind: SicSpecificDouble, Target: 2, Amount: 10}, mixed))
	require.False(t, validSicBoBet(Bet{Kind: SicCombination, Target: 0x22}))
}

func TestThreeCardDealerNotQualifying(t *testing.T) {
	st := &tcpState{player: cardList(t, "As", "Ks", "Qs"), ante: 100, pairPlus: 10}
	res := st.resolve(deal(t, "2c", "5d", "9h"), true)
	require.True(t, res.Complete)
	require.True(t, res.Jackpot)
	require.EqualValues(t, 100, res.Wager)
	// ante 1:1, play push, ante bonus 5x, pair plus 40:1
	require.EqualValues(t, 200+100+500+410, res.Payout)
	require.Equal(t, "not_qualified", res.Detail.Dealer.Label)
}

func TestThreeCardQualifiedDealerWins(t *testing.T) {
	st := &tcpState{player: cardList(t, "2c", "7d", "9h"), ante: 100, pairPlus: 10}
	res := st.resolve(deal(t, "3c", "3d", "8h"), true)
	require.Zero(t, res.Payout)
	require.False(t, res.Jackpot)

	res = st.resolve(deal(t, "3c", "3d", "8h"), false)
	require.Zero(t, res.Payout)
	require.Zero(t, res.Wager)
	require.Equal(t, "folded", res.Detail.Stage)
}

func TestThreeCardRanking(t *testing.T) {
	require.Equal(t, TCStraight, evalThree(cardList(t, "Ac", "2d", "3h")).rank())
	require.Greater(t, evalThree(cardList(t, "2c", "3d", "4h")), evalThree(cardList(t, "Ac", "2d", "3h")))
	require.Greater(t, evalThree(cardList(t, "2c", "3d", "4h")), evalThree(cardList(t, "2c", "9c", "Kc")))
	require.True(t, dealerQualifies(evalThree(cardList(t, "Qc", "4d", "2h"))))
	require.False(t, dealerQualifies(evalThree(cardList(t, "Jc", "4d", "2h"))))
}

func TestHoldemDealerNotQualifyingPushesAnte(t *testing.T) {
	st := &uthState{
		stage:     uthRiver,
		player:    cardList(t, "As", "Ad"),
		community: cardList(t, "2c", "7d", "9h", "Js", "4c"),
		ante:      100,
	}
	res, state, err := st.act(deal(t, "3h", "5s"), uthBet, 1)
	require.NoError(t, err)
	require.Nil(t, state)
	require.EqualValues(t, 100, res.Wager)
	// ante push, blind push on a pair, play 1:1
	require.EqualValues(t, 100+100+200, res.Payout)
	require.Equal(t, "not_qualified", res.Detail.Dealer.Label)
}

func TestHoldemDealerNotQualifyingPushesAnteOnLoss(t *testing.T) {
	st := &uthState{
		stage:     uthRiver,
		player:    cardList(t, "Ks", "3d"),
		community: cardList(t, "2c", "7d", "9h", "Js", "4c"),
		ante:      100,
	}
	// ace high beats king high but does not qualify
	res, _, err := st.act(deal(t, "Ah", "5s"), uthBet, 1)
	require.NoError(t, err)
	require.Equal(t, "not_qualified", res.Detail.Dealer.Label)
	require.Equal(t, Loss, res.Detail.Player[0].Outcome)
	require.EqualValues(t, 100, res.Payout)
	require.Equal(t, Push, res.Detail.Bets[0].Outcome)
	require.Equal(t, Loss, res.Detail.Bets[1].Outcome)
	require.Equal(t, Loss, res.Detail.Bets[2].Outcome)

	// a fold still forfeits the ante
	folded := &uthState{stage: uthRiver, player: cardList(t, "Ks", "3d"), community: cardList(t, "2c", "7d", "9h", "Js", "4c"), ante: 100}
	res, _, err = folded.act(deal(t, "Ah", "5s"), uthFold, 0)
	require.NoError(t, err)
	require.Zero(t, res.Payout)
}

func TestHoldemBetSizing(t *testing.T) {
	st := &uthState{stage: uthPreflop, player: cardList(t, "As", "Ad"), ante: 100}
	_, _, err := st.act(deal(t), uthBet, 2)
	require.ErrorIs(t, err, ErrInvalidMove)
	_, _, err = st.act(deal(t), uthFold, 0)
	require.ErrorIs(t, err, ErrInvalidMove)

	river := &uthState{stage: uthRiver, player: cardList(t, "As", "Ad"), community: cardList(t, "2c", "7d", "9h", "Js", "4c"), ante: 100}
	_, _, err = river.act(deal(t), uthCheck, 0)
	require.ErrorIs(t, err, ErrInvalidMove)
}

func TestHoldemCheckDealsBoard(t *testing.T) {
	st := &uthState{stage: uthPreflop, player: cardList(t, "As", "Ad"), ante: 100}
	res, state, err := st.act(deal(t, "2c", "7d", "9h"), uthCheck, 0)
	require.NoError(t, err)
	require.Len(t, res.Detail.Community, 3)
	st, err = decodeHoldem(state)
	require.NoError(t, err)
	require.Equal(t, uthFlop, st.stage)
}

func TestVideoPokerTable(t *testing.T) {
	hand := cardList(t, "Jc", "Jd", "2h", "5s", "8c")
	res := drawVideoPoker(deal(t, "3d", "9h", "Kc"), hand, 100, 0b00011)
	require.EqualValues(t, 100, res.Payout)
	require.Equal(t, Push, res.Detail.Player[0].Outcome)

	tens := cardList(t, "Tc", "Td", "2h", "5s", "8c")
	res = drawVideoPoker(deal(t, "3d", "9h", "Kc"), tens, 100, 0b00011)
	require.Zero(t, res.Payout)

	royal := cardList(t, "As", "Ks", "Qs", "Js", "2c")
	res = drawVideoPoker(deal(t, "Ts"), royal, 100, 0b01111)
	require.EqualValues(t, 80000, res.Payout)
	require.True(t, res.Jackpot)
}

func TestPokerEvaluator(t *testing.T) {
	wheel := evalFive(cardList(t, "As", "2d", "3c", "4h", "5s"))
	require.Equal(t, Straight, wheel.rank())
	six := evalFive(cardList(t, "6s", "2d", "3c", "4h", "5s"))
	require.Greater(t, six, wheel)

	royal := evalFive(cardList(t, "As", "Ks", "Qs", "Js", "Ts"))
	require.Equal(t, RoyalFlush, royal.rank())
	require.Equal(t, FullHouse, evalFive(cardList(t, "3s", "3d", "3c", "9h", "9s")).rank())
	require.Equal(t, TwoPair, evalFive(cardList(t, "3s", "3d", "9c", "9h", "Ks")).rank())

	v, best := bestFive(cardList(t, "2h", "7h", "9h", "Jh", "Kh", "Kd", "Kc"))
	require.Equal(t, Flush, v.rank())
	require.Len(t, best, 5)

	pairKings := evalFive(cardList(t, "Ks", "Kd", "2c", "5h", "9s"))
	pairQueens := evalFive(cardList(t, "Qs", "Qd", "Ac", "5h", "9s"))
	require.Greater(t, pairKings, pairQueens)
	require.EqualValues(t, rankKing, pairKings.topRank())
}
