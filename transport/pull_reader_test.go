package transport

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexgs/transpo-go/crypto"
	"github.com/dexgs/transpo-go/limits"
	"github.com/dexgs/transpo-go/transfer"
)

// encryptStream produces the full wire bytes for a transfer.
func encryptStream(t *testing.T, cipher *crypto.Cipher, name, mime string, content []byte) []byte {
	t.Helper()
	enc, err := transfer.NewEncryptor(cipher, bytes.NewReader(content), name, mime)
	require.NoError(t, err)

	var stream bytes.Buffer
	for {
		record, err := enc.Next()
		if err == io.EOF {
			return stream.Bytes()
		}
		require.NoError(t, err)
		stream.Write(record)
	}
}

func testCipherPair(t *testing.T) *crypto.Cipher {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	cipher, err := crypto.NewCipher(key)
	require.NoError(t, err)
	return cipher
}

func TestPullReaderRoundTrip(t *testing.T) {
	cipher := testCipherPair(t)
	content := bytes.Repeat([]byte{0xC4}, limits.MaxPlaintextSegment+1234)
	stream := encryptStream(t, cipher, "movie.mkv", "video/x-matroska", content)

	sock := newMockSocket()
	// Script the peer: deliver the stream in uneven chunks.
	for off := 0; off < len(stream); off += 5000 {
		end := off + 5000
		if end > len(stream) {
			end = len(stream)
		}
		sock.inbound <- stream[off:end]
	}

	dec := transfer.NewDecryptor(cipher)
	tr := transfer.New("dl-1", transfer.DirectionDownload)

	var got []byte
	err := NewPullReader(sock, dec, tr).Run(func(segment []byte) error {
		got = append(got, segment...)
		return nil
	})
	require.NoError(t, err)

	assert.True(t, bytes.Equal(content, got))
	assert.Equal(t, "movie.mkv", dec.Name())
	assert.Equal(t, "video/x-matroska", dec.MIME())
	assert.Equal(t, transfer.StateCompleted, tr.State())
	assert.True(t, sock.isClosed())

	// One zero-length probe precedes every received chunk: the pacing is
	// strictly receiver-driven.
	assert.Equal(t, (len(stream)+4999)/5000, sock.sendCount())
	for _, probe := range sock.sent {
		assert.Empty(t, probe)
	}
}

func TestPullReaderPrematureClose(t *testing.T) {
	cipher := testCipherPair(t)
	stream := encryptStream(t, cipher, "f.bin", "application/octet-stream", bytes.Repeat([]byte{1}, 5000))

	sock := newMockSocket()
	// Deliver everything except the terminator, then close.
	sock.inbound <- stream[:len(stream)-2]
	close(sock.inbound)

	dec := transfer.NewDecryptor(cipher)
	tr := transfer.New("dl-2", transfer.DirectionDownload)

	err := NewPullReader(sock, dec, tr).Run(func([]byte) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	assert.Equal(t, transfer.StateError, tr.State(),
		"close before terminator is an incomplete transfer, not success")

	var last transfer.Event
	for event := range tr.Events() {
		last = event
	}
	assert.Equal(t, transfer.CodeTransportFailure, last.Code)
}

func TestPullReaderTamperedChunk(t *testing.T) {
	cipher := testCipherPair(t)
	stream := encryptStream(t, cipher, "f", "m", []byte("payload"))

	corrupted := make([]byte, len(stream))
	copy(corrupted, stream)
	corrupted[len(corrupted)-5] ^= 0x01

	sock := newMockSocket()
	sock.inbound <- corrupted

	dec := transfer.NewDecryptor(cipher)
	tr := transfer.New("dl-3", transfer.DirectionDownload)

	err := NewPullReader(sock, dec, tr).Run(func([]byte) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, crypto.ErrDecryptFailed)

	var last transfer.Event
	for event := range tr.Events() {
		last = event
	}
	assert.Equal(t, transfer.CodeAuthFailure, last.Code,
		"tag mismatch is distinguished from stream end")
}

func TestPullReaderCancellation(t *testing.T) {
	cipher := testCipherPair(t)
	sock := newMockSocket()
	dec := transfer.NewDecryptor(cipher)
	tr := transfer.New("dl-4", transfer.DirectionDownload)

	done := make(chan error, 1)
	go func() {
		done <- NewPullReader(sock, dec, tr).Run(func([]byte) error { return nil })
	}()

	// Cancel while the reader is blocked waiting for the peer, then
	// unblock the pending receive so the loop can observe it.
	time.Sleep(10 * time.Millisecond)
	tr.Cancel()
	sock.inbound <- nil

	require.NoError(t, <-done)
	assert.Equal(t, transfer.StateCancelled, tr.State())
	assert.Equal(t, 1, sock.cancelCount())
	assert.True(t, sock.isClosed())
}
