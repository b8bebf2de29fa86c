// Package crypto implements per-transfer key handling for Transpo transfers:
// key generation, URL-safe key encoding for share links, counter-derived
// nonces, and the AEAD cipher wrapper used by the record codec.
//
// # Keys
//
// Every transfer uses a fresh 32-byte symmetric key. The key is conveyed to
// the recipient out-of-band in the share link's URL fragment, which browsers
// never transmit to the server:
//
//	key, err := crypto.GenerateKey()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fragment := crypto.EncodeKey(key)
//
// # Nonces
//
// Nonces are derived deterministically from the record counter by
// little-endian byte expansion. Counter 0 encrypts the file name, counter 1
// the MIME type, and counters >= 2 the content segments, in strict order.
// Because a key is never shared between transfers and counters never repeat
// within one, every (key, nonce) pair is unique.
//
// # Cipher Suites
//
// AES-256-GCM is the canonical suite; ChaCha20-Poly1305 is available as an
// alternate with identical key, nonce and tag sizes:
//
//	cipher, err := crypto.NewCipherWithSuite(key, crypto.SuiteChaChaPoly)
package crypto
