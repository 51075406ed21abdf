package sqlite

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	keySize = 32
	keyInfo = "authsession slot encryption v1"
)

// DeriveKey stretches a configured secret into a 32-byte AES-256 key using
// HKDF-SHA256. It returns nil for an empty secret, which disables the slot store.
func DeriveKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, nil
	}

	key := make([]byte, keySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// sealSlot encrypts value with AES-256-GCM, binding it to slot as additional
// data so a ciphertext copied into another slot fails to open. The result is
// base64(nonce || ciphertext || tag).
func sealSlot(key []byte, slot, value string) (string, error) {
	aead, err := slotAEAD(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(value)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("slot nonce: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(aead.Seal(nonce, nonce, []byte(value), []byte(slot))), nil
}

// openSlot reverses sealSlot.
func openSlot(key []byte, slot, sealed string) (string, error) {
	data, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("slot encoding: %w", err)
	}

	aead, err := slotAEAD(key)
	if err != nil {
		return "", err
	}
	if len(data) < aead.NonceSize()+aead.Overhead() {
		return "", errSealedTooShort
	}

	n := aead.NonceSize()
	value, err := aead.Open(nil, data[:n], data[n:], []byte(slot))
	if err != nil {
		return "", fmt.Errorf("open slot: %w", err)
	}
	return string(value), nil
}

var errSealedTooShort = errors.New("sealed slot value too short")

func slotAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("slot cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
