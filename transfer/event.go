package transfer

// EventType tags an event emitted by a transfer instance.
type EventType uint8

const (
	// EventProgress reports bytes confirmed since the previous progress
	// event. For uploads these are bytes drained from the transport's
	// outbound queue, never bytes merely handed to it.
	EventProgress EventType = iota
	// EventCompleted is the successful terminal event.
	EventCompleted
	// EventFailed is the terminal event for any error outcome.
	EventFailed
	// EventCancelled is the terminal event after an explicit cancellation.
	EventCancelled
)

// String returns a human-readable name for the event type.
func (t EventType) String() string {
	switch t {
	case EventProgress:
		return "progress"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ErrorCode categorizes a failure for user-facing reporting.
type ErrorCode uint8

const (
	// CodeNone means no error.
	CodeNone ErrorCode = iota
	// CodeProtocolViolation covers malformed or oversized length prefixes.
	CodeProtocolViolation
	// CodeAuthFailure covers AEAD tag mismatches on decrypt.
	CodeAuthFailure
	// CodeTransportFailure covers socket errors and premature closes.
	CodeTransportFailure
	// CodeSourceFailure covers errors on the local side of a transfer:
	// reading the byte source or writing the destination.
	CodeSourceFailure
)

// String returns a human-readable name for the error code.
func (c ErrorCode) String() string {
	switch c {
	case CodeNone:
		return "none"
	case CodeProtocolViolation:
		return "protocol violation"
	case CodeAuthFailure:
		return "authentication failure"
	case CodeTransportFailure:
		return "transport failure"
	case CodeSourceFailure:
		return "source failure"
	default:
		return "unknown"
	}
}

// Event is the single outcome/progress notification type for a transfer.
// Exactly one terminal event (Completed, Failed or Cancelled) is delivered
// per transfer instance, after which the event channel is closed.
type Event struct {
	Type EventType
	// Bytes is the progress delta for EventProgress events.
	Bytes int64
	// Code categorizes the failure for EventFailed events.
	Code ErrorCode
	// Err is the underlying error for EventFailed events.
	Err error
}
