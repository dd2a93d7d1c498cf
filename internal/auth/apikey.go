package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// KeyPrefix marks every generated API key so leaked keys are recognizable
// in logs and secret scanners.
const KeyPrefix = "tasker_"

// keyDisplayLen is how many leading characters of a raw key are kept as the
// stored display prefix: "tasker_" plus the first 8 random characters.
const keyDisplayLen = len(KeyPrefix) + 8

// GenerateKey returns a new raw API key: the fixed prefix followed by a
// URL-safe encoding of 32 random bytes. The raw key is shown to the caller
// once and never stored.
func GenerateKey() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return KeyPrefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

// FingerprintKey returns the hex-encoded SHA-256 digest of a raw API key.
// A fast hash is fine here: the key already carries 256 bits of entropy, and
// the fingerprint doubles as the store's lookup column.
func FingerprintKey(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// KeyDisplayPrefix returns the short identifying prefix persisted alongside
// the fingerprint.
func KeyDisplayPrefix(raw string) string {
	if len(raw) < keyDisplayLen {
		return raw
	}
	return raw[:keyDisplayLen]
}
