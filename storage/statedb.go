package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/holiman/uint256"

	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/crypto"
	"github.com/tolelom/casinochain/games"
)

// registerPrefix records a state-key prefix into statePrefixes so that
// ComputeRoot() always covers it. All prefix constants must be declared
// via this function.
func registerPrefix(p string) string {
	statePrefixes = append(statePrefixes, p)
	return p
}

// statePrefixes is populated automatically by registerPrefix() below.
// ComputeRoot() iterates these prefixes to build the full world-state view.
var statePrefixes []string

var (
	prefixPlayer     = registerPrefix("player:")
	prefixSession    = registerPrefix("sess:")
	prefixTable      = registerPrefix("table:")
	prefixVault      = registerPrefix("vault:")
	prefixStaker     = registerPrefix("stake:")
	prefixWithdrawal = registerPrefix("wd:")
	prefixDeposit    = registerPrefix("dep:")
	keyPool          = registerPrefix("pool:")
	keyHouse         = registerPrefix("house:")
	keyPolicy        = registerPrefix("policy:")
	keyMeta          = registerPrefix("meta:")
)

// journalEntry is the undo record of one buffered write.
type journalEntry struct {
	key        string
	prev       []byte
	hadDirty   bool
	wasDeleted bool
}

// StateDB implements core.State on top of a DB with an in-memory write
// buffer, journaled snapshot/rollback, and deterministic state-root
// computation.
type StateDB struct {
	db        DB
	dirty     map[string][]byte
	deleted   map[string]bool
	journal   []journalEntry
	snapshots []int
}

var _ core.State = (*StateDB)(nil)

// NewStateDB creates a StateDB backed by db.
func NewStateDB(db DB) *StateDB {
	return &StateDB{
		db:      db,
		dirty:   make(map[string][]byte),
		deleted: make(map[string]bool),
	}
}

// ---- internal helpers ----

func (s *StateDB) get(key string) ([]byte, error) {
	if s.deleted[key] {
		return nil, core.ErrNotFound
	}
	if v, ok := s.dirty[key]; ok {
		return v, nil
	}
	v, err := s.db.Get([]byte(key))
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, core.Fault(fmt.Errorf("read %s: %w", key, err))
	}
	return v, nil
}

func (s *StateDB) record(key string) {
	prev, had := s.dirty[key]
	s.journal = append(s.journal, journalEntry{
		key:        key,
		prev:       prev,
		hadDirty:   had,
		wasDeleted: s.deleted[key],
	})
}

func (s *StateDB) set(key string, val []byte) {
	s.record(key)
	delete(s.deleted, key)
	s.dirty[key] = val
}

func (s *StateDB) del(key string) {
	s.record(key)
	delete(s.dirty, key)
	s.deleted[key] = true
}

func (s *StateDB) load(key string, v any) error {
	data, err := s.get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return core.Fault(fmt.Errorf("decode %s: %w", key, err))
	}
	return nil
}

func (s *StateDB) store(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return core.Fault(fmt.Errorf("encode %s: %w", key, err))
	}
	s.set(key, data)
	return nil
}

// loadOr decodes key into v, leaving v untouched when the key is absent.
func (s *StateDB) loadOr(key string, v any) error {
	if err := s.load(key, v); err != nil && !errors.Is(err, core.ErrNotFound) {
		return err
	}
	return nil
}

func keyOf(prefix string, pub crypto.PublicKey) string { return prefix + pub.Hex() }
func idKey(prefix string, id uint64) string            { return fmt.Sprintf("%s%016x", prefix, id) }

// ---- Player ----

// GetPlayer returns the stored player or a fresh zero account.
func (s *StateDB) GetPlayer(key crypto.PublicKey) (*core.Player, error) {
	p := core.NewPlayer(key)
	if err := s.loadOr(keyOf(prefixPlayer, key), p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *StateDB) SetPlayer(p *core.Player) error {
	return s.store(keyOf(prefixPlayer, p.Key), p)
}

// ---- Session ----

func (s *StateDB) GetSession(id uint64) (*core.GameSession, error) {
	var sess core.GameSession
	if err := s.load(idKey(prefixSession, id), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *StateDB) SetSession(sess *core.GameSession) error {
	return s.store(idKey(prefixSession, sess.ID), sess)
}

func (s *StateDB) DeleteSession(id uint64) error {
	s.del(idKey(prefixSession, id))
	return nil
}

// ---- Table ----

// GetTable returns the stored table or an unstarted one.
func (s *StateDB) GetTable(g games.GameType) (*core.Table, error) {
	t := &core.Table{Game: g}
	if err := s.loadOr(fmt.Sprintf("%s%02x", prefixTable, uint8(g)), t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *StateDB) SetTable(t *core.Table) error {
	return s.store(fmt.Sprintf("%s%02x", prefixTable, uint8(t.Game)), t)
}

// ---- Pool ----

func (s *StateDB) GetPool() (*core.Pool, error) {
	p := &core.Pool{}
	if err := s.loadOr(keyPool, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *StateDB) SetPool(p *core.Pool) error { return s.store(keyPool, p) }

// ---- Vault ----

func (s *StateDB) GetVault(owner crypto.PublicKey) (*core.Vault, error) {
	var v core.Vault
	if err := s.load(keyOf(prefixVault, owner), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *StateDB) SetVault(v *core.Vault) error {
	return s.store(keyOf(prefixVault, v.Owner), v)
}

func (s *StateDB) DeleteVault(owner crypto.PublicKey) error {
	s.del(keyOf(prefixVault, owner))
	return nil
}

// VaultOwners merges persisted and buffered vault keys in ascending order.
func (s *StateDB) VaultOwners() ([]crypto.PublicKey, error) {
	keys, err := s.scanKeys(prefixVault)
	if err != nil {
		return nil, err
	}
	out := make([]crypto.PublicKey, 0, len(keys))
	for _, k := range keys {
		pub, err := crypto.PubKeyFromHex(strings.TrimPrefix(k, prefixVault))
		if err != nil {
			return nil, core.Fault(fmt.Errorf("vault key %q: %w", k, err))
		}
		out = append(out, pub)
	}
	return out, nil
}

func (s *StateDB) scanKeys(prefix string) ([]string, error) {
	set := make(map[string]struct{})
	it := s.db.NewIterator([]byte(prefix))
	for it.Next() {
		set[string(it.Key())] = struct{}{}
	}
	it.Release()
	if err := it.Error(); err != nil {
		return nil, core.Fault(fmt.Errorf("scan %s: %w", prefix, err))
	}
	for k := range s.dirty {
		if strings.HasPrefix(k, prefix) {
			set[k] = struct{}{}
		}
	}
	for k := range s.deleted {
		delete(set, k)
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// ---- Staker ----

// GetStaker returns the stored position or an empty one.
func (s *StateDB) GetStaker(owner crypto.PublicKey) (*core.Staker, error) {
	st := &core.Staker{Owner: owner}
	if err := s.loadOr(keyOf(prefixStaker, owner), st); err != nil {
		return nil, err
	}
	if st.RewardDebt == nil {
		st.RewardDebt = new(uint256.Int)
	}
	return st, nil
}

func (s *StateDB) SetStaker(st *core.Staker) error {
	return s.store(keyOf(prefixStaker, st.Owner), st)
}

func (s *StateDB) DeleteStaker(owner crypto.PublicKey) error {
	s.del(keyOf(prefixStaker, owner))
	return nil
}

// ---- House / Policy / Meta ----

// GetHouse returns the house ledger, creating an empty one on first use.
func (s *StateDB) GetHouse() (*core.House, error) {
	h := core.NewHouse()
	if err := s.loadOr(keyHouse, h); err != nil {
		return nil, err
	}
	if h.Jackpots == nil {
		h.Jackpots = map[games.GameType]uint64{}
	}
	if h.AccRewardPerShare == nil {
		h.AccRewardPerShare = new(uint256.Int)
	}
	return h, nil
}

func (s *StateDB) SetHouse(h *core.House) error { return s.store(keyHouse, h) }

// GetPolicy returns ErrNotFound until genesis has written one.
func (s *StateDB) GetPolicy() (*core.Policy, error) {
	var p core.Policy
	if err := s.load(keyPolicy, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *StateDB) SetPolicy(p *core.Policy) error { return s.store(keyPolicy, p) }

func (s *StateDB) GetMeta() (*core.ChainMeta, error) {
	m := &core.ChainMeta{}
	if err := s.loadOr(keyMeta, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *StateDB) SetMeta(m *core.ChainMeta) error { return s.store(keyMeta, m) }

// ---- Bridge ----

func (s *StateDB) GetWithdrawal(id uint64) (*core.Withdrawal, error) {
	var w core.Withdrawal
	if err := s.load(idKey(prefixWithdrawal, id), &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *StateDB) SetWithdrawal(w *core.Withdrawal) error {
	return s.store(idKey(prefixWithdrawal, w.ID), w)
}

func (s *StateDB) HasDeposit(externalID [32]byte) (bool, error) {
	_, err := s.get(prefixDeposit + hex.EncodeToString(externalID[:]))
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *StateDB) MarkDeposit(externalID [32]byte, height uint64) error {
	s.set(prefixDeposit+hex.EncodeToString(externalID[:]), binary.BigEndian.AppendUint64(nil, height))
	return nil
}

// ---- Snapshot / Rollback / Commit ----

// Snapshot marks the current journal position and returns its id.
func (s *StateDB) Snapshot() (int, error) {
	s.snapshots = append(s.snapshots, len(s.journal))
	return len(s.snapshots) - 1, nil
}

// RevertToSnapshot undoes every write made after snapshot id was taken and
// drops that snapshot and all later ones.
func (s *StateDB) RevertToSnapshot(id int) error {
	if id < 0 || id >= len(s.snapshots) {
		return core.Fault(fmt.Errorf("invalid snapshot id %d", id))
	}
	mark := s.snapshots[id]
	for i := len(s.journal) - 1; i >= mark; i-- {
		e := s.journal[i]
		if e.hadDirty {
			s.dirty[e.key] = e.prev
		} else {
			delete(s.dirty, e.key)
		}
		if e.wasDeleted {
			s.deleted[e.key] = true
		} else {
			delete(s.deleted, e.key)
		}
	}
	s.journal = s.journal[:mark]
	s.snapshots = s.snapshots[:id]
	return nil
}

// ComputeRoot returns the deterministic hash of the complete world state.
// It merges all persisted state entries (scanned from DB by the known state
// prefixes) with the current write buffer, then hashes the sorted key-value
// pairs using length-prefix encoding. It does NOT flush or modify state.
func (s *StateDB) ComputeRoot() string {
	merged := make(map[string][]byte)
	for _, prefix := range statePrefixes {
		it := s.db.NewIterator([]byte(prefix))
		for it.Next() {
			v := make([]byte, len(it.Value()))
			copy(v, it.Value())
			merged[string(it.Key())] = v
		}
		it.Release()
	}
	for k, v := range s.dirty {
		merged[k] = v
	}
	for k := range s.deleted {
		delete(merged, k)
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	var lenBuf [4]byte
	for _, k := range keys {
		v := merged[k]
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(k)))
		buf.Write(lenBuf[:])
		buf.WriteString(k)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(v)))
		buf.Write(lenBuf[:])
		buf.Write(v)
	}
	return crypto.Hash(buf.Bytes())
}

// Commit atomically flushes the write buffer to the underlying DB via a
// batch and then clears it.
func (s *StateDB) Commit() error {
	batch := s.db.NewBatch()
	for k, v := range s.dirty {
		batch.Set([]byte(k), v)
	}
	for k := range s.deleted {
		batch.Delete([]byte(k))
	}
	if err := batch.Write(); err != nil {
		return core.Fault(fmt.Errorf("commit state: %w", err))
	}
	s.Discard()
	return nil
}

// Discard drops the write buffer, the journal and every snapshot.
func (s *StateDB) Discard() {
	s.dirty = make(map[string][]byte)
	s.deleted = make(map[string]bool)
	s.journal = nil
	s.snapshots = nil
}
