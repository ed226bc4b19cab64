// Package wallet provides key management and transaction signing helpers.
package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"

	"github.com/tolelom/casinochain/crypto"
)

// DefaultIterations is the PBKDF2 work factor for new keystores.
const DefaultIterations = 210_000

// ErrWrongPassword is returned when a keystore does not decrypt.
var ErrWrongPassword = errors.New("wrong password or corrupted keystore")

type keystoreFile struct {
	PubKey     string `json:"pub_key"`
	KDF        string `json:"kdf"`
	Iterations int    `json:"iterations"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"cipher_text"`
}

// SaveKey encrypts priv with password (PBKDF2-SHA256, AES-256-GCM) and
// writes it to path. The public key is bound as additional data.
func SaveKey(path, password string, priv crypto.PrivateKey) error {
	return saveKey(path, password, priv, DefaultIterations)
}

func saveKey(path, password string, priv crypto.PrivateKey, iter int) error {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return err
	}
	gcm, err := newGCM(password, salt, iter)
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return err
	}
	pub := priv.Public()
	ks := keystoreFile{
		PubKey:     pub.Hex(),
		KDF:        "pbkdf2-sha256",
		Iterations: iter,
		Salt:       hex.EncodeToString(salt),
		Nonce:      hex.EncodeToString(nonce),
		CipherText: hex.EncodeToString(gcm.Seal(nil, nonce, priv, pub[:])),
	}
	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// LoadKey decrypts the keystore at path using password.
func LoadKey(path, password string) (crypto.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ks keystoreFile
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("parse keystore: %w", err)
	}
	if ks.KDF != "pbkdf2-sha256" || ks.Iterations <= 0 {
		return nil, fmt.Errorf("unsupported kdf %q", ks.KDF)
	}
	pub, err := crypto.PubKeyFromHex(ks.PubKey)
	if err != nil {
		return nil, err
	}
	var raw [3][]byte
	for i, s := range []string{ks.Salt, ks.Nonce, ks.CipherText} {
		if raw[i], err = hex.DecodeString(s); err != nil {
			return nil, fmt.Errorf("parse keystore: %w", err)
		}
	}
	gcm, err := newGCM(password, raw[0], ks.Iterations)
	if err != nil {
		return nil, err
	}
	if len(raw[1]) != gcm.NonceSize() {
		return nil, ErrWrongPassword
	}
	privBytes, err := gcm.Open(nil, raw[1], raw[2], pub[:])
	if err != nil {
		return nil, ErrWrongPassword
	}
	priv := crypto.PrivateKey(privBytes)
	if priv.Public() != pub {
		return nil, ErrWrongPassword
	}
	return priv, nil
}

func newGCM(password string, salt []byte, iter int) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, iter, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
