package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/dexgs/transpo-go/limits"
)

// Key is a symmetric AEAD key. A fresh key is generated for every transfer
// and is only ever held in memory and in the share link's URL fragment.
type Key [limits.KeySize]byte

// ErrInvalidKey indicates a key string could not be decoded.
var ErrInvalidKey = errors.New("invalid key")

// GenerateKey creates a fresh random transfer key.
func GenerateKey() (Key, error) {
	var key Key
	if _, err := rand.Read(key[:]); err != nil {
		return Key{}, fmt.Errorf("generating key: %w", err)
	}
	return key, nil
}

// EncodeKey encodes a key as unpadded URL-safe Base64 for use in the share
// link fragment ('+' becomes '-', '/' becomes '_', padding stripped).
func EncodeKey(key Key) string {
	return base64.RawURLEncoding.EncodeToString(key[:])
}

// DecodeKey decodes a key from its unpadded URL-safe Base64 form.
func DecodeKey(encoded string) (Key, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(raw) != limits.KeySize {
		return Key{}, fmt.Errorf("%w: decoded length %d, want %d", ErrInvalidKey, len(raw), limits.KeySize)
	}

	var key Key
	copy(key[:], raw)
	return key, nil
}
