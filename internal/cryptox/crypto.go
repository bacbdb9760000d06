// Package cryptox seals small secrets (TOTP shared secrets) for storage
// using AES-GCM with a random nonce per value.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/lemonauth/internal/common"
)

var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// Sealer encrypts and decrypts strings with a fixed AES key.
//
// The stored form is base64(nonce || ciphertext), so it fits a TEXT column.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer builds a Sealer from a 16, 24 or 32 byte key.
func NewSealer(key []byte) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// NewSealerFromHex decodes a hex key. An empty string derives a key from
// fallback so development setups work without extra configuration.
func NewSealerFromHex(hexKey string, fallback string) (*Sealer, error) {
	if hexKey == "" {
		sum := sha256.Sum256([]byte(fallback))
		return NewSealer(sum[:])
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	defer common.WipeByteArray(key)
	return NewSealer(key)
}

// Seal encrypts plaintext.
func (s *Sealer) Seal(plaintext string) (string, error) {
	nonce := common.GenerateRandByteArray(s.aead.NonceSize())
	out := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	n := s.aead.NonceSize()
	if len(raw) < n {
		return "", ErrMalformedCiphertext
	}
	plaintext, err := s.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
