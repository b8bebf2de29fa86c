package transport

// Socket abstracts a duplex connection with an observable outbound queue.
// A duplex socket has no intrinsic receiver-to-sender backpressure signal,
// so the adapters in this package build flow control on top of it: the
// upload writer polls Queued against a high-water mark, and the pull reader
// requests each inbound chunk explicitly.
type Socket interface {
	// Send queues a binary message for delivery. An empty message is a
	// valid probe. Send never blocks on the network; delivery happens
	// asynchronously and is observable through Queued.
	Send(data []byte) error

	// SendCancel delivers the cancellation sentinel to the peer.
	SendCancel() error

	// Queued returns the number of outbound payload bytes accepted by
	// Send but not yet handed to the network.
	Queued() int64

	// Receive blocks for the next inbound binary message. A clean close
	// by the peer is reported as io.EOF.
	Receive() ([]byte, error)

	// Err returns the first transport-level failure observed by the
	// background writer, or nil.
	Err() error

	// Close tears the connection down. Close is idempotent.
	Close() error
}

// CancelSentinel is the control message sent to the server to abandon a
// transfer before closing the transport.
const CancelSentinel = "CANCEL"
