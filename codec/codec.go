package codec

import (
	"encoding/binary"

	"github.com/dexgs/transpo-go/crypto"
	"github.com/dexgs/transpo-go/limits"
)

// EncodeSegment encrypts a plaintext segment under the nonce derived from
// counter and frames it as a wire record: a 2-byte big-endian ciphertext
// length followed by the ciphertext (plaintext plus 16-byte tag).
//
// The caller is responsible for keeping segments within
// limits.MaxPlaintextSegment; the encryptor enforces this by re-chunking
// its source before encoding.
func EncodeSegment(cipher *crypto.Cipher, counter uint64, plaintext []byte) []byte {
	ciphertext := cipher.Seal(counter, plaintext)

	record := make([]byte, limits.RecordLengthPrefixSize+len(ciphertext))
	binary.BigEndian.PutUint16(record, uint16(len(ciphertext)))
	copy(record[limits.RecordLengthPrefixSize:], ciphertext)

	return record
}

// Terminator returns the record that ends a transfer: a zero length prefix
// with no ciphertext. It is not itself encrypted.
func Terminator() []byte {
	return make([]byte, limits.RecordLengthPrefixSize)
}
