// Package limits provides centralized size limits for the Transpo wire format.
// This ensures consistent validation across different components of the system.
package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxPlaintextSegment is the maximum plaintext segment size (10240 bytes).
	// Source streams are re-chunked to this size regardless of their natural
	// chunk boundaries.
	MaxPlaintextSegment = 10240

	// EncryptionOverhead is the overhead added by AEAD encryption.
	// This is the 16-byte authentication tag appended by Seal().
	// The nonce is derived from the record counter and never sent on the wire.
	EncryptionOverhead = 16

	// MaxCiphertextSegment is the maximum size after encryption overhead.
	MaxCiphertextSegment = MaxPlaintextSegment + EncryptionOverhead // 10256

	// RecordLengthPrefixSize is the size of the big-endian length prefix
	// preceding every ciphertext record.
	RecordLengthPrefixSize = 2

	// DecoderScratchSize is the scratch buffer size used by the stream
	// decoder: one full record plus its length prefix.
	DecoderScratchSize = RecordLengthPrefixSize + MaxCiphertextSegment // 10258

	// KeySize is the symmetric AEAD key size in bytes.
	KeySize = 32

	// NonceSize is the AEAD nonce size in bytes.
	NonceSize = 12

	// HighWaterMark is the queued-byte threshold above which the upload
	// writer suspends pulling records from the encryptor.
	HighWaterMark = 10_000_000
)

var (
	// ErrSegmentTooLarge indicates a plaintext segment exceeds the maximum size.
	ErrSegmentTooLarge = errors.New("segment too large")

	// ErrRecordTooLarge indicates a record length prefix exceeds the
	// maximum ciphertext segment size. This is a protocol violation and
	// is always fatal.
	ErrRecordTooLarge = errors.New("record too large")
)

// ValidatePlaintextSegment validates a plaintext segment size against
// MaxPlaintextSegment. Zero-length segments are valid; the name record of
// a synthesized multi-file archive is empty.
func ValidatePlaintextSegment(segment []byte) error {
	if len(segment) > MaxPlaintextSegment {
		return fmt.Errorf("%w: plaintext size %d exceeds limit %d", ErrSegmentTooLarge, len(segment), MaxPlaintextSegment)
	}
	return nil
}

// ValidateRecordLength validates a decoded length prefix against
// MaxCiphertextSegment. Returns ErrRecordTooLarge wrapped with context if
// the declared length could not have been produced by a valid encoder.
func ValidateRecordLength(length int) error {
	if length > MaxCiphertextSegment {
		return fmt.Errorf("%w: declared length %d exceeds limit %d", ErrRecordTooLarge, length, MaxCiphertextSegment)
	}
	return nil
}
