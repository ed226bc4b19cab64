package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// PublicKeySize is the length of an encoded public key on the wire.
const PublicKeySize = ed25519.PublicKeySize

// PrivateKey wraps ed25519 private key bytes.
type PrivateKey []byte

// PublicKey is a fixed-size ed25519 public key. Fixed size lets it be used
// directly as a wire field and as a comparable map key.
type PublicKey [PublicKeySize]byte

// GenerateKeyPair generates a new ed25519 key pair.
func GenerateKeyPair() (PrivateKey, PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, PublicKey{}, err
	}
	var pk PublicKey
	copy(pk[:], pub)
	return PrivateKey(priv), pk, nil
}

// PrivKeyFromSeed derives a key deterministically from a 32-byte seed.
// Tests and the genesis tooling use it to build reproducible accounts.
func PrivKeyFromSeed(seed []byte) (PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return PrivateKey(ed25519.NewKeyFromSeed(seed)), nil
}

// Address returns a 40-char hex address derived from the public key.
// It takes the first 20 bytes of SHA-256(pubkey).
func (pub PublicKey) Address() string {
	h := HashBytes(pub[:])
	return hex.EncodeToString(h[:20])
}

// Hex returns the full 64-char hex-encoded public key. Ledger records are
// keyed by this form.
func (pub PublicKey) Hex() string {
	return hex.EncodeToString(pub[:])
}

// MarshalText encodes the key as hex so it reads well in JSON records and
// can key JSON maps.
func (pub PublicKey) MarshalText() ([]byte, error) {
	return []byte(pub.Hex()), nil
}

// UnmarshalText parses the hex form.
func (pub *PublicKey) UnmarshalText(b []byte) error {
	pk, err := PubKeyFromHex(string(b))
	if err != nil {
		return err
	}
	*pub = pk
	return nil
}

// IsZero reports whether the key is unset.
func (pub PublicKey) IsZero() bool {
	return pub == PublicKey{}
}

// Hex returns the hex-encoded private key.
func (priv PrivateKey) Hex() string {
	return hex.EncodeToString(priv)
}

// Public derives the ed25519 public key from the private key.
func (priv PrivateKey) Public() PublicKey {
	var pk PublicKey
	copy(pk[:], ed25519.PrivateKey(priv).Public().(ed25519.PublicKey))
	return pk
}

// PubKeyFromHex decodes a hex-encoded public key.
func PubKeyFromHex(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("invalid pubkey hex: %w", err)
	}
	if len(b) != PublicKeySize {
		return PublicKey{}, fmt.Errorf("pubkey must be %d bytes, got %d", PublicKeySize, len(b))
	}
	var pk PublicKey
	copy(pk[:], b)
	return pk, nil
}

// PrivKeyFromHex decodes a hex-encoded private key.
func PrivKeyFromHex(s string) (PrivateKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid privkey hex: %w", err)
	}
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("privkey must be %d bytes, got %d", ed25519.PrivateKeySize, len(b))
	}
	return PrivateKey(b), nil
}
