package transport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer upgrades incoming connections and echoes every message back.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(messageType, data); err != nil {
				return
			}
		}
	}))
}

func dialTest(t *testing.T, srv *httptest.Server) *WebSocket {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return NewWebSocket(conn)
}

func TestWebSocketSendReceive(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	ws := dialTest(t, srv)
	defer ws.Close()

	payload := []byte{1, 2, 3, 4, 5}
	require.NoError(t, ws.Send(payload))

	echoed, err := ws.Receive()
	require.NoError(t, err)
	assert.Equal(t, payload, echoed)
}

func TestWebSocketQueuedDrains(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	ws := dialTest(t, srv)
	defer ws.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, ws.Send(make([]byte, 1024)))
	}

	// The write pump flushes asynchronously; the queue must reach zero.
	require.Eventually(t, func() bool { return ws.Queued() == 0 },
		2*time.Second, time.Millisecond)
	assert.NoError(t, ws.Err())
}

func TestWebSocketSendCancelSentinel(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	ws := dialTest(t, srv)
	defer ws.Close()

	require.NoError(t, ws.SendCancel())

	text, err := ws.ReceiveText()
	require.NoError(t, err)
	assert.Equal(t, CancelSentinel, text)
}

func TestWebSocketCloseIsIdempotent(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	ws := dialTest(t, srv)
	require.NoError(t, ws.Close())
	assert.NoError(t, ws.Close())

	assert.ErrorIs(t, ws.Send([]byte{1}), ErrSocketClosed)
}

func TestWebSocketCloseDeliversPendingCancel(t *testing.T) {
	sentinels := make(chan string, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType == websocket.TextMessage {
				sentinels <- string(data)
				return
			}
		}
	}))
	defer srv.Close()

	ws := dialTest(t, srv)

	// Close immediately after queueing: the sentinel must still be
	// flushed to the peer before the connection goes away.
	require.NoError(t, ws.Send(make([]byte, 4096)))
	require.NoError(t, ws.SendCancel())
	require.NoError(t, ws.Close())

	select {
	case got := <-sentinels:
		assert.Equal(t, CancelSentinel, got)
	case <-time.After(2 * time.Second):
		t.Fatal("cancellation sentinel never reached the peer")
	}
}

func TestWebSocketPeerCloseReportsEOF(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}))
	defer srv.Close()

	ws := dialTest(t, srv)
	defer ws.Close()

	_, err := ws.Receive()
	assert.ErrorIs(t, err, io.EOF)
}
