package events

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"

	"golang.org/x/crypto/sha3"
)

// SystemTx is the TxIndex of events produced by the pipeline itself
// (begin-block steps and post-instruction sweeps) rather than by a
// transaction handler.
const SystemTx = -1

// Record is one entry of a block's event log.
type Record struct {
	Height  uint64    `json:"height"`
	TxIndex int       `json:"tx_index"`
	TxHash  string    `json:"tx_hash,omitempty"`
	Type    EventType `json:"type"`
	Event   Event     `json:"event"`
}

// NewRecord stamps ev with its position.
func NewRecord(height uint64, txIndex int, txHash string, ev Event) Record {
	return Record{Height: height, TxIndex: txIndex, TxHash: txHash, Type: ev.Type(), Event: ev}
}

type rawRecord struct {
	Height  uint64          `json:"height"`
	TxIndex int             `json:"tx_index"`
	TxHash  string          `json:"tx_hash,omitempty"`
	Type    EventType       `json:"type"`
	Event   json.RawMessage `json:"event"`
}

// UnmarshalJSON decodes the event into its concrete value type, the same
// form handlers emit.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	mk, ok := decoders[raw.Type]
	if !ok {
		return fmt.Errorf("unknown event type %q", raw.Type)
	}
	ev := mk()
	if err := json.Unmarshal(raw.Event, ev); err != nil {
		return fmt.Errorf("decode %s event: %w", raw.Type, err)
	}
	val := reflect.ValueOf(ev).Elem().Interface().(Event)
	*r = Record{Height: raw.Height, TxIndex: raw.TxIndex, TxHash: raw.TxHash, Type: raw.Type, Event: val}
	return nil
}

// Canonical returns the byte form hashed into the events root.
func (r Record) Canonical() ([]byte, error) {
	return json.Marshal(r)
}

// Root returns the hex SHA3-256 over the length-prefixed canonical records.
func Root(log []Record) (string, error) {
	h := sha3.New256()
	var lenBuf [4]byte
	for i, r := range log {
		b, err := r.Canonical()
		if err != nil {
			return "", fmt.Errorf("encode record %d: %w", i, err)
		}
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
		h.Write(lenBuf[:])
		h.Write(b)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
