package transport

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// closeDrainTimeout bounds how long Close waits for queued messages to
// flush before tearing the connection down.
const closeDrainTimeout = 3 * time.Second

// ErrSocketClosed indicates a send on a socket that is already closed.
var ErrSocketClosed = errors.New("socket closed")

// outMessage is one queued outbound websocket message.
type outMessage struct {
	messageType int
	data        []byte
}

// errBox wraps errors for atomic.Value, which requires a single concrete type.
type errBox struct {
	err error
}

// WebSocket adapts a gorilla websocket connection to the Socket interface.
// Sends are queued and flushed by a background writer goroutine, so Queued
// reports real unflushed payload bytes that the upload writer can poll for
// backpressure.
type WebSocket struct {
	conn *websocket.Conn

	mu      sync.Mutex
	pending []outMessage
	wake    chan struct{}

	queued   atomic.Int64
	writeErr atomic.Value
	closed   atomic.Bool
	done     chan struct{}
}

// NewWebSocket wraps an established websocket connection and starts its
// write pump.
func NewWebSocket(conn *websocket.Conn) *WebSocket {
	ws := &WebSocket{
		conn: conn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go ws.writePump()
	return ws
}

// Send implements Socket.
func (ws *WebSocket) Send(data []byte) error {
	return ws.enqueue(websocket.BinaryMessage, data)
}

// SendText queues a text control message.
func (ws *WebSocket) SendText(text string) error {
	return ws.enqueue(websocket.TextMessage, []byte(text))
}

// SendCancel implements Socket.
func (ws *WebSocket) SendCancel() error {
	logrus.WithFields(logrus.Fields{
		"function": "SendCancel",
	}).Info("Sending cancellation sentinel")
	return ws.enqueue(websocket.TextMessage, []byte(CancelSentinel))
}

func (ws *WebSocket) enqueue(messageType int, data []byte) error {
	if ws.closed.Load() {
		return ErrSocketClosed
	}
	if err := ws.Err(); err != nil {
		return err
	}

	ws.mu.Lock()
	ws.pending = append(ws.pending, outMessage{messageType: messageType, data: data})
	ws.mu.Unlock()
	ws.queued.Add(int64(len(data)))

	select {
	case ws.wake <- struct{}{}:
	default:
	}
	return nil
}

// Queued implements Socket.
func (ws *WebSocket) Queued() int64 {
	return ws.queued.Load()
}

// Err implements Socket.
func (ws *WebSocket) Err() error {
	if box, ok := ws.writeErr.Load().(errBox); ok {
		return box.err
	}
	return nil
}

// Receive implements Socket. Text messages are passed through as bytes;
// the client layer interprets them.
func (ws *WebSocket) Receive() ([]byte, error) {
	_, data, err := ws.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		return nil, err
	}
	return data, nil
}

// ReceiveText blocks for the next inbound message and returns it as a
// string. Used for the upload ID handshake.
func (ws *WebSocket) ReceiveText() (string, error) {
	data, err := ws.Receive()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Close implements Socket. Messages queued before Close, the cancellation
// sentinel in particular, are flushed to the connection first; a dead
// write pump or the drain timeout ends the wait early.
func (ws *WebSocket) Close() error {
	if !ws.closed.CompareAndSwap(false, true) {
		return nil
	}

	// The closed flag stops new enqueues, so the pending queue can only
	// shrink from here.
	deadline := time.Now().Add(closeDrainTimeout)
	for ws.pendingCount() > 0 && ws.Err() == nil && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	close(ws.done)
	return ws.conn.Close()
}

// pendingCount returns the number of messages not yet written to the
// connection, including one currently in flight.
func (ws *WebSocket) pendingCount() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.pending)
}

// writePump drains the pending queue onto the connection, decrementing the
// queued byte count only after each write returns.
func (ws *WebSocket) writePump() {
	for {
		select {
		case <-ws.done:
			return
		case <-ws.wake:
		}

		for {
			ws.mu.Lock()
			if len(ws.pending) == 0 {
				ws.mu.Unlock()
				break
			}
			msg := ws.pending[0]
			ws.mu.Unlock()

			err := ws.conn.WriteMessage(msg.messageType, msg.data)

			// Dequeue only after the write returns, so a message still
			// counts as pending while in flight.
			ws.mu.Lock()
			ws.pending = ws.pending[1:]
			ws.mu.Unlock()
			ws.queued.Add(-int64(len(msg.data)))

			if err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "writePump",
					"error":    err.Error(),
				}).Error("Websocket write failed")
				ws.writeErr.Store(errBox{err: err})
				return
			}
		}
	}
}
