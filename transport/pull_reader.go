package transport

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/dexgs/transpo-go/transfer"
)

// PullReader downloads a transfer over a duplex socket using explicit
// receiver-driven flow control. A duplex socket gives the receiver no
// backpressure signal toward the sender, so the reader requests every
// delivery itself: after consuming a received buffer it sends a
// zero-length probe message, then awaits the next inbound message before
// feeding the decryptor and probing again. The sender never transmits
// ahead of a request, bounding memory use on both ends at the cost of one
// round trip per chunk.
type PullReader struct {
	sock Socket
	dec  *transfer.Decryptor
	tr   *transfer.Transfer
}

// NewPullReader creates a reader that decrypts with dec and reports
// lifecycle events through tr.
func NewPullReader(sock Socket, dec *transfer.Decryptor, tr *transfer.Transfer) *PullReader {
	return &PullReader{sock: sock, dec: dec, tr: tr}
}

// Run drives the download, delivering each decrypted content segment to
// consume in order. It blocks until the transfer reaches its terminal
// outcome. A socket close before the terminator record is a transport
// failure, never a silent success.
func (r *PullReader) Run(consume func(segment []byte) error) error {
	logrus.WithFields(logrus.Fields{
		"function": "Run",
		"id":       r.tr.ID(),
	}).Info("Starting pull download")

	r.tr.Start()

	for {
		if r.tr.IsCancelled() {
			return r.cancel()
		}

		// The empty probe doubles as the first request.
		if err := r.sock.Send(nil); err != nil {
			return r.fail(transfer.CodeTransportFailure, fmt.Errorf("requesting chunk: %w", err))
		}

		buf, err := r.sock.Receive()
		if err == io.EOF {
			if r.dec.Finished() {
				r.sock.Close()
				r.tr.Complete()
				return nil
			}
			return r.fail(transfer.CodeTransportFailure,
				fmt.Errorf("connection closed before terminator: %w", io.ErrUnexpectedEOF))
		}
		if err != nil {
			return r.fail(transfer.CodeTransportFailure, fmt.Errorf("receiving chunk: %w", err))
		}

		segments, err := r.dec.Feed(buf)
		if err != nil {
			return r.fail(classifyDecodeError(err), err)
		}

		for _, segment := range segments {
			if err := consume(segment); err != nil {
				return r.fail(transfer.CodeSourceFailure, fmt.Errorf("consuming segment: %w", err))
			}
		}

		if r.dec.Finished() {
			logrus.WithFields(logrus.Fields{
				"function": "Run",
				"id":       r.tr.ID(),
				"name":     r.dec.Name(),
			}).Info("Download complete")
			r.sock.Close()
			r.tr.Complete()
			return nil
		}
	}
}

func (r *PullReader) cancel() error {
	if err := r.sock.SendCancel(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "cancel",
			"id":       r.tr.ID(),
			"error":    err.Error(),
		}).Warn("Failed to send cancellation sentinel")
	}
	r.sock.Close()
	r.tr.Cancel()
	return nil
}

func (r *PullReader) fail(code transfer.ErrorCode, err error) error {
	r.sock.Close()
	r.tr.Fail(code, err)
	return err
}
