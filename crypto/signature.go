package crypto

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
)

// SignatureSize is the length of an ed25519 signature on the wire.
const SignatureSize = ed25519.SignatureSize

// ErrBadSignature is returned when a signature does not verify.
var ErrBadSignature = errors.New("signature verification failed")

// Signature is a raw ed25519 signature.
type Signature [SignatureSize]byte

// Hex returns the hex-encoded signature.
func (s Signature) Hex() string {
	return hex.EncodeToString(s[:])
}

// Sign signs data with the private key.
func Sign(priv PrivateKey, data []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(ed25519.PrivateKey(priv), data))
	return sig
}

// Verify checks sig against data using the public key.
func Verify(pub PublicKey, data []byte, sig Signature) error {
	if !ed25519.Verify(ed25519.PublicKey(pub[:]), data, sig[:]) {
		return ErrBadSignature
	}
	return nil
}

// SignatureFromHex decodes a hex-encoded signature.
func SignatureFromHex(s string) (Signature, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Signature{}, fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(b) != SignatureSize {
		return Signature{}, fmt.Errorf("signature must be %d bytes, got %d", SignatureSize, len(b))
	}
	var sig Signature
	copy(sig[:], b)
	return sig, nil
}
