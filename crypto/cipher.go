package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Suite identifies the AEAD construction used for a transfer.
type Suite string

const (
	// SuiteAESGCM is AES-256-GCM, the canonical suite used by Transpo
	// servers and browser clients.
	SuiteAESGCM Suite = "AESGCM"

	// SuiteChaChaPoly is ChaCha20-Poly1305, an alternate suite with the
	// same key, nonce and tag sizes.
	SuiteChaChaPoly Suite = "ChaChaPoly"
)

// DefaultSuite is used when no suite is configured.
const DefaultSuite = SuiteAESGCM

var (
	// ErrDecryptFailed indicates an AEAD authentication failure. The record
	// was tampered with, corrupted, or decrypted out of counter order.
	ErrDecryptFailed = errors.New("decryption failed: record authentication failed")

	// ErrUnsupportedSuite indicates an unknown cipher suite name.
	ErrUnsupportedSuite = errors.New("unsupported cipher suite")
)

// Cipher binds a transfer key to an AEAD instance and derives per-record
// nonces from counters. It performs no counter bookkeeping itself; strict
// counter sequencing is the codec's responsibility.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher creates a Cipher for the given key using the default suite.
func NewCipher(key Key) (*Cipher, error) {
	return NewCipherWithSuite(key, DefaultSuite)
}

// NewCipherWithSuite creates a Cipher for the given key and suite.
func NewCipherWithSuite(key Key, suite Suite) (*Cipher, error) {
	switch suite {
	case SuiteAESGCM:
		block, err := aes.NewCipher(key[:])
		if err != nil {
			return nil, fmt.Errorf("creating AES cipher: %w", err)
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("creating GCM: %w", err)
		}
		return &Cipher{aead: aead}, nil

	case SuiteChaChaPoly:
		aead, err := chacha20poly1305.New(key[:])
		if err != nil {
			return nil, fmt.Errorf("creating ChaCha20-Poly1305: %w", err)
		}
		return &Cipher{aead: aead}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSuite, suite)
	}
}

// Seal encrypts plaintext under the nonce derived from counter and returns
// ciphertext with the authentication tag appended.
func (c *Cipher) Seal(counter uint64, plaintext []byte) []byte {
	nonce := NonceFromCounter(counter)
	return c.aead.Seal(nil, nonce[:], plaintext, nil)
}

// Open decrypts and authenticates ciphertext under the nonce derived from
// counter. A tag mismatch returns ErrDecryptFailed; it is never reported as
// empty plaintext.
func (c *Cipher) Open(counter uint64, ciphertext []byte) ([]byte, error) {
	nonce := NonceFromCounter(counter)
	plaintext, err := c.aead.Open(nil, nonce[:], ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

// Overhead returns the tag length added by Seal.
func (c *Cipher) Overhead() int {
	return c.aead.Overhead()
}
