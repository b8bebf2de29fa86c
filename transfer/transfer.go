package transfer

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Direction indicates whether a transfer is an upload or a download.
type Direction uint8

const (
	// DirectionUpload represents a file being sent to the server.
	DirectionUpload Direction = iota
	// DirectionDownload represents a file being received from the server.
	DirectionDownload
)

// State represents the current state of a transfer.
type State uint8

const (
	// StatePending indicates the transfer has not started moving bytes yet.
	StatePending State = iota
	// StateRunning indicates the transfer is in progress.
	StateRunning
	// StateCompleted indicates the transfer finished successfully.
	StateCompleted
	// StateCancelled indicates the transfer was cancelled.
	StateCancelled
	// StateError indicates the transfer failed.
	StateError
)

// eventBuffer is the event channel capacity. Progress events are dropped
// when the consumer lags; terminal events are never dropped.
const eventBuffer = 64

// Transfer is the descriptor for one upload or download: identity,
// direction, state and running byte totals. It is exclusively owned by one
// encryptor/writer or decryptor/reader pipeline and is never shared between
// transfer instances.
type Transfer struct {
	id        string
	direction Direction

	mu          sync.Mutex
	state       State
	transferred int64
	events      chan Event
	done        chan struct{}
	cancelled   bool
}

// New creates a transfer descriptor in the pending state.
func New(id string, direction Direction) *Transfer {
	logrus.WithFields(logrus.Fields{
		"function":  "New",
		"id":        id,
		"direction": direction,
	}).Info("Creating transfer")

	return &Transfer{
		id:        id,
		direction: direction,
		state:     StatePending,
		events:    make(chan Event, eventBuffer),
		done:      make(chan struct{}),
	}
}

// ID returns the transfer identifier.
func (t *Transfer) ID() string {
	return t.id
}

// Direction returns the transfer direction.
func (t *Transfer) Direction() Direction {
	return t.direction
}

// State returns the current state.
func (t *Transfer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Transferred returns the cumulative confirmed byte count.
func (t *Transfer) Transferred() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transferred
}

// Events returns the transfer's event channel. The channel delivers zero or
// more Progress events followed by exactly one terminal event, then closes.
func (t *Transfer) Events() <-chan Event {
	return t.events
}

// Done returns a channel closed when the transfer reaches its terminal
// outcome. It lets goroutines blocked on I/O react to cancellation without
// consuming the event channel.
func (t *Transfer) Done() <-chan struct{} {
	return t.done
}

// Start moves the transfer to the running state.
func (t *Transfer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StatePending {
		return
	}
	t.state = StateRunning
}

// ReportProgress records delta confirmed bytes and emits a progress event.
// Progress events after a terminal outcome are suppressed.
func (t *Transfer) ReportProgress(delta int64) {
	if delta <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.terminalLocked() {
		return
	}
	t.transferred += delta

	// Do not stall the pipeline on a slow consumer; the cumulative total
	// remains queryable via Transferred.
	select {
	case t.events <- Event{Type: EventProgress, Bytes: delta}:
	default:
	}
}

// Complete marks the transfer successful and closes the event channel.
func (t *Transfer) Complete() {
	t.finish(Event{Type: EventCompleted}, StateCompleted)
}

// Fail marks the transfer failed with the given category and closes the
// event channel.
func (t *Transfer) Fail(code ErrorCode, err error) {
	logrus.WithFields(logrus.Fields{
		"function": "Fail",
		"id":       t.id,
		"code":     code.String(),
		"error":    err,
	}).Error("Transfer failed")

	t.finish(Event{Type: EventFailed, Code: code, Err: err}, StateError)
}

// Cancel marks the transfer cancelled. Cancellation is idempotent,
// immediately suppresses any further progress or completion events, and is
// a no-op on a transfer that already reached a terminal outcome.
func (t *Transfer) Cancel() {
	t.mu.Lock()
	if t.cancelled || t.terminalLocked() {
		t.mu.Unlock()
		return
	}
	t.cancelled = true
	t.state = StateCancelled
	t.deliverLocked(Event{Type: EventCancelled})
	t.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Cancel",
		"id":       t.id,
	}).Info("Cancelled transfer")
}

// IsCancelled reports whether Cancel has been called.
func (t *Transfer) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// terminalLocked reports whether a terminal outcome has been reached.
// Caller must hold t.mu.
func (t *Transfer) terminalLocked() bool {
	return t.state == StateCompleted || t.state == StateCancelled || t.state == StateError
}

// finish delivers the single terminal event and closes the event channel.
func (t *Transfer) finish(event Event, state State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.terminalLocked() {
		return
	}
	t.state = state
	t.deliverLocked(event)
}

// deliverLocked sends the terminal event, then closes the event and done
// channels. Caller must hold t.mu and have set the terminal state.
func (t *Transfer) deliverLocked(event Event) {
	// The buffered channel may be full of unread progress events; make
	// room so the terminal event is never lost.
	for {
		select {
		case t.events <- event:
			close(t.events)
			close(t.done)
			return
		default:
			select {
			case <-t.events:
			default:
			}
		}
	}
}
