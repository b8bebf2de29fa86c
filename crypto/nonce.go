package crypto

import "github.com/dexgs/transpo-go/limits"

// Nonce is a 96-bit value combined with the key for each AEAD operation.
type Nonce [limits.NonceSize]byte

// NonceFromCounter expands a record counter into a nonce by little-endian
// byte-wise expansion: byte i holds floor(counter / 256^i) mod 256, with
// unused high bytes left zero.
//
// Counter values are never reused under the same key: the encoder and
// decoder both advance a strictly increasing counter, record by record,
// which is the sole condition for AEAD nonce safety here.
func NonceFromCounter(counter uint64) Nonce {
	var nonce Nonce
	for i := 0; i < 8; i++ {
		nonce[i] = byte(counter >> (8 * i))
	}
	return nonce
}
