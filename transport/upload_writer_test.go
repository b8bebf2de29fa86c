package transport

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexgs/transpo-go/crypto"
	"github.com/dexgs/transpo-go/transfer"
)

func testEncryptor(t *testing.T, content []byte) *transfer.Encryptor {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	cipher, err := crypto.NewCipher(key)
	require.NoError(t, err)
	enc, err := transfer.NewEncryptor(cipher, bytes.NewReader(content), "a.txt", "text/plain")
	require.NoError(t, err)
	return enc
}

// sliceSource replays a fixed record list.
type sliceSource struct {
	records [][]byte
	next    int
}

func (s *sliceSource) Next() ([]byte, error) {
	if s.next >= len(s.records) {
		return nil, io.EOF
	}
	record := s.records[s.next]
	s.next++
	return record, nil
}

func TestUploadWriterDeliversAllRecords(t *testing.T) {
	sock := newMockSocket()
	enc := testEncryptor(t, bytes.Repeat([]byte{7}, 25000))
	tr := transfer.New("up-1", transfer.DirectionUpload)

	writer := NewUploadWriter(sock, enc, tr)
	require.NoError(t, writer.Run())

	// name + mime + 3 content segments + terminator
	assert.Equal(t, 6, sock.sendCount())
	assert.Equal(t, []byte{0, 0}, sock.sent[len(sock.sent)-1],
		"terminator is the last record on the wire")

	assert.Equal(t, transfer.StateCompleted, tr.State())
	assert.Equal(t, sock.sentBytes(), tr.Transferred(),
		"all handed bytes are eventually confirmed")

	var last transfer.Event
	for event := range tr.Events() {
		last = event
	}
	assert.Equal(t, transfer.EventCompleted, last.Type)
}

func TestUploadWriterBackpressure(t *testing.T) {
	sock := newMockSocket()
	sock.autoDrain = false

	record := bytes.Repeat([]byte{1}, 60)
	src := &sliceSource{records: [][]byte{record, record, record, record, record}}
	tr := transfer.New("up-2", transfer.DirectionUpload)

	writer := NewUploadWriter(sock, src, tr)
	writer.SetHighWaterMark(100)

	done := make(chan error, 1)
	go func() { done <- writer.Run() }()

	// The queue reaches the mark after the second send (120 >= 100) and
	// never drops on its own: the writer must stop sending entirely.
	require.Eventually(t, func() bool { return sock.sendCount() == 2 },
		time.Second, time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 2, sock.sendCount(),
		"zero additional sends while the queue stays at the mark")

	// No drainage means no progress has been reported.
	assert.Equal(t, int64(0), tr.Transferred())

	// Release the queue and let the upload finish.
	for sock.Queued() > 0 || sock.sendCount() < 5 {
		sock.drain(60)
		time.Sleep(2 * time.Millisecond)
		assert.LessOrEqual(t, tr.Transferred(), sock.sentBytes(),
			"reported progress never exceeds bytes handed to the transport")
	}

	require.NoError(t, <-done)
	assert.Equal(t, transfer.StateCompleted, tr.State())
	assert.Equal(t, sock.sentBytes(), tr.Transferred())
}

func TestUploadWriterWaitsForTailDrain(t *testing.T) {
	sock := newMockSocket()
	sock.autoDrain = false

	src := &sliceSource{records: [][]byte{bytes.Repeat([]byte{2}, 30)}}
	tr := transfer.New("up-3", transfer.DirectionUpload)

	writer := NewUploadWriter(sock, src, tr)
	writer.SetHighWaterMark(1000)

	done := make(chan error, 1)
	go func() { done <- writer.Run() }()

	// The source is exhausted almost immediately, but 30 bytes are still
	// queued: source exhausted and bytes delivered are distinct states.
	require.Eventually(t, func() bool { return sock.sendCount() == 1 },
		time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, transfer.StateRunning, tr.State(),
		"not complete while the tail is still queued")

	sock.drain(30)
	require.NoError(t, <-done)
	assert.Equal(t, transfer.StateCompleted, tr.State())
}

func TestUploadWriterSocketError(t *testing.T) {
	sock := newMockSocket()
	sock.setErr(errors.New("connection reset"))

	enc := testEncryptor(t, []byte("data"))
	tr := transfer.New("up-4", transfer.DirectionUpload)

	err := NewUploadWriter(sock, enc, tr).Run()
	require.Error(t, err)

	assert.Equal(t, transfer.StateError, tr.State())
	assert.True(t, sock.isClosed())

	var last transfer.Event
	for event := range tr.Events() {
		last = event
	}
	assert.Equal(t, transfer.EventFailed, last.Type)
	assert.Equal(t, transfer.CodeTransportFailure, last.Code)
}

func TestUploadWriterCancellation(t *testing.T) {
	sock := newMockSocket()
	sock.autoDrain = false

	src := &sliceSource{records: [][]byte{bytes.Repeat([]byte{3}, 50)}}
	tr := transfer.New("up-5", transfer.DirectionUpload)

	writer := NewUploadWriter(sock, src, tr)
	writer.SetHighWaterMark(10)

	done := make(chan error, 1)
	go func() { done <- writer.Run() }()

	require.Eventually(t, func() bool { return sock.sendCount() == 1 },
		time.Second, time.Millisecond)

	tr.Cancel()
	require.NoError(t, <-done)

	assert.Equal(t, transfer.StateCancelled, tr.State())
	assert.Equal(t, 1, sock.cancelCount(), "peer is told before the socket closes")
	assert.True(t, sock.isClosed())
}

func TestUploadWriterSourceError(t *testing.T) {
	sock := newMockSocket()

	srcErr := errors.New("disk read failed")
	src := &errorSource{err: srcErr}
	tr := transfer.New("up-6", transfer.DirectionUpload)

	err := NewUploadWriter(sock, src, tr).Run()
	require.ErrorIs(t, err, srcErr)

	var last transfer.Event
	for event := range tr.Events() {
		last = event
	}
	assert.Equal(t, transfer.CodeSourceFailure, last.Code)
}

type errorSource struct{ err error }

func (s *errorSource) Next() ([]byte, error) { return nil, s.err }
