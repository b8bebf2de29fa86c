package transport

import (
	"io"
	"sync"
)

// mockSocket is a scriptable Socket for adapter tests. Outbound messages
// accumulate in sent; the reported queue size is controlled explicitly so
// tests can simulate a transport that drains slowly or not at all.
type mockSocket struct {
	mu      sync.Mutex
	sent    [][]byte
	queued  int64
	cancels int
	closed  bool
	err     error

	// autoDrain, when set, keeps the reported queue at zero.
	autoDrain bool

	inbound chan []byte
}

func newMockSocket() *mockSocket {
	return &mockSocket{autoDrain: true, inbound: make(chan []byte, 16)}
}

func (m *mockSocket) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	m.sent = append(m.sent, copied)
	if !m.autoDrain {
		m.queued += int64(len(data))
	}
	return nil
}

func (m *mockSocket) SendCancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancels++
	return nil
}

func (m *mockSocket) Queued() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queued
}

func (m *mockSocket) Receive() ([]byte, error) {
	buf, ok := <-m.inbound
	if !ok {
		return nil, io.EOF
	}
	return buf, nil
}

func (m *mockSocket) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *mockSocket) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockSocket) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *mockSocket) drain(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued -= bytes
	if m.queued < 0 {
		m.queued = 0
	}
}

func (m *mockSocket) sendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *mockSocket) sentBytes() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, msg := range m.sent {
		total += int64(len(msg))
	}
	return total
}

func (m *mockSocket) cancelCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancels
}

func (m *mockSocket) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
