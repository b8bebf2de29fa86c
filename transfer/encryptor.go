package transfer

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/dexgs/transpo-go/codec"
	"github.com/dexgs/transpo-go/crypto"
	"github.com/dexgs/transpo-go/limits"
)

// Encryptor turns a byte source into the outbound record sequence: the name
// record (counter 0), the MIME record (counter 1), content segments
// re-chunked to the segment limit (counters from 2), and the terminator.
//
// The sequence is lazy, finite, forward-only and non-restartable: each call
// to Next computes exactly one record on demand. The source may be a single
// file or an opaque pre-archived stream standing in for multiple files, in
// which case the name is empty.
type Encryptor struct {
	cipher *crypto.Cipher
	src    io.Reader

	name string
	mime string

	counter    uint64
	buf        [limits.MaxPlaintextSegment]byte
	sourceDone bool
	terminated bool

	// progress observes finalized plaintext segment lengths. This is
	// distinct from bytes actually delivered, which the transport tracks.
	progress func(int)
}

// NewEncryptor creates an encryptor over src. An empty name denotes a
// synthesized multi-file archive, which carries no intrinsic name. The
// name and MIME type each travel as a single record, so both are bound by
// the segment limit.
func NewEncryptor(cipher *crypto.Cipher, src io.Reader, name, mime string) (*Encryptor, error) {
	if err := limits.ValidatePlaintextSegment([]byte(name)); err != nil {
		return nil, fmt.Errorf("file name: %w", err)
	}
	if err := limits.ValidatePlaintextSegment([]byte(mime)); err != nil {
		return nil, fmt.Errorf("mime type: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewEncryptor",
		"name":     name,
		"mime":     mime,
	}).Debug("Creating encryptor")

	return &Encryptor{
		cipher: cipher,
		src:    src,
		name:   name,
		mime:   mime,
	}, nil
}

// OnSegment sets an observer called with each finalized plaintext segment
// length, including the name and MIME records.
func (e *Encryptor) OnSegment(observer func(plaintextLen int)) {
	e.progress = observer
}

// NameCiphertext returns the ciphertext of the name record (counter 0),
// without its length prefix, for use in the upload query parameters.
func (e *Encryptor) NameCiphertext() []byte {
	return e.cipher.Seal(0, []byte(e.name))
}

// MIMECiphertext returns the ciphertext of the MIME record (counter 1),
// without its length prefix, for use in the upload query parameters.
func (e *Encryptor) MIMECiphertext() []byte {
	return e.cipher.Seal(1, []byte(e.mime))
}

// Next returns the next wire record. After the terminator has been
// returned, Next returns io.EOF.
func (e *Encryptor) Next() ([]byte, error) {
	if e.terminated {
		return nil, io.EOF
	}

	switch e.counter {
	case 0:
		return e.encode([]byte(e.name)), nil
	case 1:
		return e.encode([]byte(e.mime)), nil
	}

	if e.sourceDone {
		e.terminated = true
		return codec.Terminator(), nil
	}

	n, err := io.ReadFull(e.src, e.buf[:])
	switch err {
	case nil:
		// Full segment.
	case io.ErrUnexpectedEOF:
		// Final short segment; the terminator follows on the next call.
		e.sourceDone = true
	case io.EOF:
		// Source exhausted on a segment boundary.
		e.sourceDone = true
		e.terminated = true
		return codec.Terminator(), nil
	default:
		return nil, fmt.Errorf("reading source: %w", err)
	}

	return e.encode(e.buf[:n]), nil
}

// encode frames one plaintext segment with the current counter and
// advances it.
func (e *Encryptor) encode(plaintext []byte) []byte {
	record := codec.EncodeSegment(e.cipher, e.counter, plaintext)
	e.counter++

	if e.progress != nil {
		e.progress(len(plaintext))
	}
	return record
}
