package transport

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dexgs/transpo-go/limits"
	"github.com/dexgs/transpo-go/transfer"
)

const (
	// minPollDelay is the initial drain-polling delay while the outbound
	// queue sits at or above the high-water mark.
	minPollDelay = 1 * time.Millisecond
	// maxPollDelay bounds the exponential backoff of the drain poll.
	maxPollDelay = 50 * time.Millisecond
)

// RecordSource produces the outbound record sequence. io.EOF signals that
// the terminator has been produced and the sequence is exhausted.
// transfer.Encryptor satisfies this interface.
type RecordSource interface {
	Next() ([]byte, error)
}

// UploadWriter pushes a record sequence through a Socket while respecting
// the socket's outbound queue as a backpressure signal: it pulls records
// only while the queue is below the high-water mark, and reports progress
// only for bytes actually drained from the queue, never for bytes merely
// handed over.
//
// Exactly one terminal outcome is reported per instance: completion after
// the queue drains to zero, failure on a socket error or premature close,
// or cancellation on external request.
type UploadWriter struct {
	sock      Socket
	src       RecordSource
	tr        *transfer.Transfer
	highWater int64
}

// NewUploadWriter creates a writer with the default high-water mark.
func NewUploadWriter(sock Socket, src RecordSource, tr *transfer.Transfer) *UploadWriter {
	return &UploadWriter{
		sock:      sock,
		src:       src,
		tr:        tr,
		highWater: limits.HighWaterMark,
	}
}

// SetHighWaterMark overrides the queued-byte threshold. Intended for tests
// and memory-constrained hosts.
func (w *UploadWriter) SetHighWaterMark(mark int64) {
	w.highWater = mark
}

// Run drives the upload to its single terminal outcome. It blocks until
// the transfer completes, fails or is cancelled, and the outcome is also
// delivered on the transfer's event channel.
func (w *UploadWriter) Run() error {
	logrus.WithFields(logrus.Fields{
		"function":   "Run",
		"id":         w.tr.ID(),
		"high_water": w.highWater,
	}).Info("Starting upload")

	w.tr.Start()

	var handed int64    // cumulative bytes handed to the socket
	var confirmed int64 // cumulative bytes confirmed drained
	exhausted := false
	delay := minPollDelay

	for {
		if w.tr.IsCancelled() {
			return w.cancel()
		}
		if err := w.sock.Err(); err != nil {
			return w.fail(fmt.Errorf("socket error: %w", err))
		}

		queued := w.sock.Queued()

		// Progress is the delta between what we expected to remain
		// queued and what the socket reports, i.e. observed drainage.
		if drained := handed - queued; drained > confirmed {
			w.tr.ReportProgress(drained - confirmed)
			confirmed = drained
			delay = minPollDelay
		}

		switch {
		case !exhausted && queued < w.highWater:
			record, err := w.src.Next()
			if err == io.EOF {
				// Source exhausted is not bytes delivered; keep
				// polling until the tail drains.
				exhausted = true
				continue
			}
			if err != nil {
				err = fmt.Errorf("reading record: %w", err)
				w.sock.Close()
				w.tr.Fail(transfer.CodeSourceFailure, err)
				return err
			}
			if err := w.sock.Send(record); err != nil {
				return w.fail(fmt.Errorf("sending record: %w", err))
			}
			handed += int64(len(record))
			delay = minPollDelay

		case exhausted && queued == 0:
			logrus.WithFields(logrus.Fields{
				"function": "Run",
				"id":       w.tr.ID(),
				"bytes":    handed,
			}).Info("Upload complete")
			w.tr.Complete()
			return nil

		default:
			// At or above the high-water mark, or draining the tail.
			time.Sleep(delay)
			delay *= 2
			if delay > maxPollDelay {
				delay = maxPollDelay
			}
		}
	}
}

func (w *UploadWriter) cancel() error {
	// Best effort: the peer learns of the abandoned transfer before the
	// socket goes away.
	if err := w.sock.SendCancel(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "cancel",
			"id":       w.tr.ID(),
			"error":    err.Error(),
		}).Warn("Failed to send cancellation sentinel")
	}
	w.sock.Close()
	w.tr.Cancel()
	return nil
}

func (w *UploadWriter) fail(err error) error {
	w.sock.Close()
	w.tr.Fail(transfer.CodeTransportFailure, err)
	return err
}
