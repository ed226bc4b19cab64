package core

import (
	"encoding/hex"
	"fmt"

	"github.com/tolelom/casinochain/crypto"
)

// SigningDomain prefixes every signed transaction so a signature can never
// be replayed as some other message.
const SigningDomain = "casinochain/tx/v1"

// txOverhead is the encoded size of everything but the instruction.
const txOverhead = crypto.PublicKeySize + 8 + 2 + crypto.SignatureSize

// MaxTxSize bounds an encoded transaction.
const MaxTxSize = txOverhead + MaxInstructionSize

// Transaction is the signed envelope around one instruction.
//
// Wire layout, integers big-endian:
//
//	signer[32] nonce[8] length[2] instruction[length] signature[64]
//
// The signature covers SigningDomain followed by every byte before it.
type Transaction struct {
	Signer      crypto.PublicKey
	Nonce       uint64
	Instruction []byte // encoded [tag][payload]
	Signature   crypto.Signature
}

// NewTransaction encodes ins and signs the envelope with priv.
func NewTransaction(priv crypto.PrivateKey, nonce uint64, ins Instruction) *Transaction {
	tx := &Transaction{
		Signer:      priv.Public(),
		Nonce:       nonce,
		Instruction: EncodeInstruction(ins),
	}
	tx.Sign(priv)
	return tx
}

func (tx *Transaction) body() []byte {
	e := &encoder{buf: make([]byte, 0, MaxTxSize)}
	e.raw(tx.Signer[:])
	e.u64(tx.Nonce)
	e.u16(uint16(len(tx.Instruction)))
	e.raw(tx.Instruction)
	return e.buf
}

// SigningBytes returns the message covered by the signature.
func (tx *Transaction) SigningBytes() []byte {
	return append([]byte(SigningDomain), tx.body()...)
}

// Sign sets Signature using priv.
func (tx *Transaction) Sign(priv crypto.PrivateKey) {
	tx.Signature = crypto.Sign(priv, tx.SigningBytes())
}

// Verify checks the signature against Signer.
func (tx *Transaction) Verify() error {
	if len(tx.Instruction) > MaxInstructionSize {
		return NewError(CodeTooLarge, "instruction is %d bytes", len(tx.Instruction))
	}
	if err := crypto.Verify(tx.Signer, tx.SigningBytes(), tx.Signature); err != nil {
		return WrapError(CodeBadSignature, err, "verify tx from %s", tx.Signer.Address())
	}
	return nil
}

// Encode renders the wire form.
func (tx *Transaction) Encode() RawTx {
	return append(tx.body(), tx.Signature[:]...)
}

// Hash returns the hex SHA-256 of the wire form.
func (tx *Transaction) Hash() string { return crypto.Hash(tx.Encode()) }

// Decode parses the carried instruction.
func (tx *Transaction) Decode() (Instruction, error) {
	return DecodeInstruction(tx.Instruction)
}

// DecodeTransaction parses the wire form. It does not verify the signature.
func DecodeTransaction(b []byte) (*Transaction, error) {
	if len(b) < txOverhead {
		return nil, NewError(CodeMalformed, "transaction is %d bytes, need at least %d", len(b), txOverhead)
	}
	if len(b) > MaxTxSize {
		return nil, NewError(CodeTooLarge, "transaction is %d bytes, max %d", len(b), MaxTxSize)
	}
	d := &decoder{buf: b}
	tx := &Transaction{}
	d.fixed(tx.Signer[:])
	tx.Nonce = d.u64()
	n := int(d.u16())
	if ins := d.take(n); ins != nil {
		tx.Instruction = append([]byte(nil), ins...)
	}
	d.fixed(tx.Signature[:])
	if err := d.done(); err != nil {
		return nil, WrapError(CodeMalformed, err, "decode transaction")
	}
	return tx, nil
}

// RawTx is an undecoded wire transaction as carried in a block. Blocks keep
// raw bytes so malformed submissions are reproducibly rejected by the
// pipeline rather than by block decoding.
type RawTx []byte

// Hash returns the hex SHA-256 of the raw bytes.
func (r RawTx) Hash() string { return crypto.Hash(r) }

// MarshalText encodes the transaction as hex.
func (r RawTx) MarshalText() ([]byte, error) {
	out := make([]byte, hex.EncodedLen(len(r)))
	hex.Encode(out, r)
	return out, nil
}

// UnmarshalText parses the hex form.
func (r *RawTx) UnmarshalText(b []byte) error {
	out := make([]byte, hex.DecodedLen(len(b)))
	if _, err := hex.Decode(out, b); err != nil {
		return fmt.Errorf("invalid tx hex: %w", err)
	}
	*r = out
	return nil
}
