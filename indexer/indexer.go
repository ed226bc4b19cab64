// Package indexer journals committed event logs so operators can read a
// block's events, list a player's sessions and re-verify table rounds
// without replaying the chain.
package indexer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/crypto"
	"github.com/tolelom/casinochain/events"
	"github.com/tolelom/casinochain/games"
	"github.com/tolelom/casinochain/log"
	"github.com/tolelom/casinochain/storage"
)

const (
	prefixJournal       = "idx:journal:"
	prefixPlayerSession = "idx:player:session:"
	prefixRound         = "idx:round:"
)

var (
	// ErrRoundNotResolved is returned when verifying a round the journal has
	// not seen resolve.
	ErrRoundNotResolved = errors.New("round not resolved")
	// ErrRoundMismatch is returned when a redrawn round disagrees with the
	// journaled outcome.
	ErrRoundMismatch = errors.New("round outcome does not match journal")
)

// RoundLog is everything the journal saw of one table round.
type RoundLog struct {
	Game       games.GameType             `json:"game"`
	RoundID    uint64                     `json:"round_id"`
	Entries    []core.TableEntry          `json:"entries"`
	ResolvedAt uint64                     `json:"resolved_at,omitempty"`
	Resolved   *events.TableRoundResolved `json:"resolved,omitempty"`
	Payouts    []events.TablePayout       `json:"payouts,omitempty"`
	Voided     *events.TableRoundVoided   `json:"voided,omitempty"`
}

// BlockSource looks up committed blocks. *core.Blockchain satisfies it.
type BlockSource interface {
	GetBlockByHeight(height uint64) (*core.Block, error)
}

// Indexer subscribes to committed records and writes one journal entry per
// block when the block's BlockCommitted record arrives.
type Indexer struct {
	db      storage.DB
	mu      sync.Mutex
	pending []events.Record
	log     *log.Logger
}

// New creates an Indexer backed by db and subscribes it to emitter.
func New(db storage.DB, emitter *events.Emitter) *Indexer {
	idx := &Indexer{db: db, log: log.Module("indexer")}
	emitter.SubscribeAll(idx.onRecord)
	return idx
}

func journalKey(height uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixJournal, height))
}

func roundKey(g games.GameType, round uint64) []byte {
	return []byte(fmt.Sprintf("%s%03d:%020d", prefixRound, uint8(g), round))
}

func sessionsKey(player crypto.PublicKey) []byte {
	return []byte(prefixPlayerSession + player.Hex())
}

func (idx *Indexer) onRecord(rec events.Record) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.pending = append(idx.pending, rec)
	if rec.Type != events.EventBlockCommitted {
		return
	}
	recs := idx.pending
	idx.pending = nil
	if err := idx.flush(rec.Height, recs); err != nil {
		idx.log.Error("journal write failed", "height", rec.Height, "err", err)
	}
}

// flush writes a block's records and the derived indexes in one batch.
func (idx *Indexer) flush(height uint64, recs []events.Record) error {
	batch := idx.db.NewBatch()
	data, err := json.Marshal(recs)
	if err != nil {
		return err
	}
	batch.Set(journalKey(height), data)

	sessions := make(map[crypto.PublicKey][]uint64)
	rounds := make(map[string]*RoundLog)
	loadRound := func(g games.GameType, id uint64) (*RoundLog, error) {
		key := string(roundKey(g, id))
		if r, ok := rounds[key]; ok {
			return r, nil
		}
		r, err := idx.Round(g, id)
		if err != nil {
			return nil, err
		}
		rounds[key] = r
		return r, nil
	}

	for _, rec := range recs {
		switch ev := rec.Event.(type) {
		case events.SessionStarted:
			sessions[ev.Player] = append(sessions[ev.Player], ev.SessionID)
		case events.TableBetPlaced:
			r, err := loadRound(ev.Game, ev.RoundID)
			if err != nil {
				return err
			}
			r.addBets(ev.Player, ev.Bets, ev.Total)
		case events.TableRoundResolved:
			r, err := loadRound(ev.Game, ev.RoundID)
			if err != nil {
				return err
			}
			resolved := ev
			r.Resolved, r.ResolvedAt = &resolved, rec.Height
		case events.TablePayout:
			r, err := loadRound(ev.Game, ev.RoundID)
			if err != nil {
				return err
			}
			r.Payouts = append(r.Payouts, ev)
		case events.TableRoundVoided:
			r, err := loadRound(ev.Game, ev.RoundID)
			if err != nil {
				return err
			}
			voided := ev
			r.Voided, r.ResolvedAt = &voided, rec.Height
		}
	}

	for player, ids := range sessions {
		list, err := idx.SessionsByPlayer(player)
		if err != nil {
			return err
		}
		data, err := json.Marshal(append(list, ids...))
		if err != nil {
			return err
		}
		batch.Set(sessionsKey(player), data)
	}
	for key, r := range rounds {
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		batch.Set([]byte(key), data)
	}
	return batch.Write()
}

// addBets mirrors the table's merge: one entry per player, sorted by key.
func (r *RoundLog) addBets(player crypto.PublicKey, bets []games.Bet, total uint64) {
	i := sort.Search(len(r.Entries), func(i int) bool {
		return bytes.Compare(r.Entries[i].Player[:], player[:]) >= 0
	})
	if i < len(r.Entries) && r.Entries[i].Player == player {
		r.Entries[i].Bets = append(r.Entries[i].Bets, bets...)
		r.Entries[i].Total += total
		return
	}
	r.Entries = append(r.Entries, core.TableEntry{})
	copy(r.Entries[i+1:], r.Entries[i:])
	r.Entries[i] = core.TableEntry{Player: player, Bets: bets, Total: total}
}

// Events returns the journaled log of the block at height, ending with its
// BlockCommitted record.
func (idx *Indexer) Events(height uint64) ([]events.Record, error) {
	data, err := idx.db.Get(journalKey(height))
	if err != nil {
		return nil, err
	}
	var recs []events.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("indexer unmarshal block %d: %w", height, err)
	}
	return recs, nil
}

// SessionsByPlayer returns the ids of every session player opened, oldest
// first.
func (idx *Indexer) SessionsByPlayer(player crypto.PublicKey) ([]uint64, error) {
	data, err := idx.db.Get(sessionsKey(player))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var ids []uint64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("indexer unmarshal: %w", err)
	}
	return ids, nil
}

// Round returns the journal of one table round. An unseen round yields an
// empty log.
func (idx *Indexer) Round(g games.GameType, round uint64) (*RoundLog, error) {
	data, err := idx.db.Get(roundKey(g, round))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return &RoundLog{Game: g, RoundID: round}, nil
		}
		return nil, err
	}
	var r RoundLog
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("indexer unmarshal: %w", err)
	}
	return &r, nil
}

// VerifyRound redraws a resolved round from the seed of the block that
// resolved it and settles every journaled entry again. It returns the
// round log when every payout and the drawn result agree.
func (idx *Indexer) VerifyRound(blocks BlockSource, g games.GameType, round uint64, rules games.Rules) (*RoundLog, error) {
	r, err := idx.Round(g, round)
	if err != nil {
		return nil, err
	}
	if r.Voided != nil {
		return nil, fmt.Errorf("%w: %s round %d was voided (%s)", ErrRoundNotResolved, g, round, r.Voided.Reason)
	}
	if r.Resolved == nil {
		return nil, fmt.Errorf("%w: %s round %d", ErrRoundNotResolved, g, round)
	}
	block, err := blocks.GetBlockByHeight(r.ResolvedAt)
	if err != nil {
		return nil, fmt.Errorf("load block %d: %w", r.ResolvedAt, err)
	}
	drawn, err := games.DrawRound(games.Env{Seed: block.Header.Seed, Rules: rules}, g, round)
	if err != nil {
		return nil, err
	}

	want, err := json.Marshal(drawn.Summary())
	if err != nil {
		return nil, err
	}
	got, err := json.Marshal(r.Resolved.Result)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(want, got) {
		return nil, fmt.Errorf("%w: %s round %d result", ErrRoundMismatch, g, round)
	}

	if len(r.Payouts) != len(r.Entries) {
		return nil, fmt.Errorf("%w: %d payouts for %d entries", ErrRoundMismatch, len(r.Payouts), len(r.Entries))
	}
	paid := make(map[crypto.PublicKey]uint64, len(r.Payouts))
	for _, p := range r.Payouts {
		paid[p.Player] = p.Paid
	}
	for _, e := range r.Entries {
		amount, _ := drawn.Settle(rules, e.Bets)
		if got, ok := paid[e.Player]; !ok || got != amount {
			return nil, fmt.Errorf("%w: %s paid %d, redraw pays %d", ErrRoundMismatch, e.Player.Address(), got, amount)
		}
	}
	return r, nil
}
