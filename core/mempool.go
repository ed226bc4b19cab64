package core

import (
	"errors"
	"sync"
)

const maxMempoolSize = 10_000

// Mempool is a thread-safe pending-transaction pool. It holds raw wire
// transactions keyed by hash; only well-formed, correctly signed
// transactions are admitted. Nonce order is left to the pipeline.
type Mempool struct {
	mu  sync.RWMutex
	txs map[string]RawTx
	ord []string // insertion-ordered hashes for deterministic pending iteration
}

// NewMempool creates an empty mempool.
func NewMempool() *Mempool {
	return &Mempool{txs: make(map[string]RawTx)}
}

// Add validates and inserts a transaction, returning its hash.
func (m *Mempool) Add(raw RawTx) (string, error) {
	tx, err := DecodeTransaction(raw)
	if err != nil {
		return "", err
	}
	if err := tx.Verify(); err != nil {
		return "", err
	}
	if _, err := tx.Decode(); err != nil {
		return "", err
	}
	id := raw.Hash()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.txs) >= maxMempoolSize {
		return "", errors.New("mempool full")
	}
	if _, exists := m.txs[id]; exists {
		return "", errors.New("tx already in pool")
	}
	m.txs[id] = append(RawTx(nil), raw...)
	m.ord = append(m.ord, id)
	return id, nil
}

// Get returns a transaction by hash.
func (m *Mempool) Get(id string) (RawTx, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.txs[id]
	return tx, ok
}

// Pending returns up to n pending transactions in insertion order.
func (m *Mempool) Pending(n int) []RawTx {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]RawTx, 0, n)
	for _, id := range m.ord {
		if tx, ok := m.txs[id]; ok {
			result = append(result, tx)
			if len(result) >= n {
				break
			}
		}
	}
	return result
}

// Remove deletes transactions by hash (called after block commit).
func (m *Mempool) Remove(ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := make(map[string]bool, len(ids))
	for _, id := range ids {
		delete(m.txs, id)
		removed[id] = true
	}
	filtered := m.ord[:0]
	for _, id := range m.ord {
		if !removed[id] {
			filtered = append(filtered, id)
		}
	}
	m.ord = filtered
}

// Size returns the current number of pending transactions.
func (m *Mempool) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txs)
}
