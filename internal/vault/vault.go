// Package vault encrypts refresh tokens at rest.
//
// A [Vault] holds a single AES-256-GCM key derived once at startup from the
// process-wide encryption password and salt via argon2id. There is no key
// rotation: ciphertext sealed under a different password or salt fails to
// decrypt with [shared.ErrCrypto].
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/adhamahmad/music-genie/internal/shared"
	"golang.org/x/crypto/argon2"
)

// Vault performs symmetric encryption and decryption of token strings.
type Vault struct {
	aead cipher.AEAD
}

// New derives the AES key from the given password and salt and returns a
// ready Vault. Both inputs are required.
func New(password, salt string) (*Vault, error) {
	if password == "" || salt == "" {
		return nil, fmt.Errorf("%w: encryption password and salt are required", shared.ErrInvalidConfig)
	}

	key := argon2.IDKey([]byte(password), []byte(salt), 1, 64*1024, 4, 32)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Encrypt seals the plaintext under the vault key with a fresh random nonce.
// The result is base64(nonce || ciphertext).
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Malformed input or ciphertext sealed under a
// different key yields [shared.ErrCrypto].
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: malformed ciphertext: %v", shared.ErrCrypto, err)
	}

	nonceSize := v.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", shared.ErrCrypto)
	}

	nonce, sealed := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrCrypto, err)
	}

	return string(plaintext), nil
}
