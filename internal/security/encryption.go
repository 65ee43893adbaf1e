package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

var errKeyLength = errors.New("encryption key must be 32 bytes")

func gcmFor(key []byte) (cipher.AEAD, error) {
	if len(key) != 32 {
		return nil, errKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher_init_failed: %w", err)
	}
	return cipher.NewGCM(block)
}

// EncryptToken seals a session token with AES-256-GCM and returns
// base64(nonce || ciphertext). The nonce is random per call.
func EncryptToken(plaintext string, key []byte) (string, error) {
	gcm, err := gcmFor(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce_generation_failed: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptToken reverses EncryptToken. Any tampering with the payload
// fails the GCM authentication check.
func DecryptToken(encoded string, key []byte) (string, error) {
	gcm, err := gcmFor(key)
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("token_decode_failed: %w", err)
	}
	if len(raw) < gcm.NonceSize() {
		return "", errors.New("token_payload_too_short")
	}

	plaintext, err := gcm.Open(nil, raw[:gcm.NonceSize()], raw[gcm.NonceSize():], nil)
	if err != nil {
		return "", fmt.Errorf("token_decrypt_failed: %w", err)
	}
	return string(plaintext), nil
}
