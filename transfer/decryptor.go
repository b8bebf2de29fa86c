package transfer

import (
	"github.com/sirupsen/logrus"

	"github.com/dexgs/transpo-go/codec"
	"github.com/dexgs/transpo-go/crypto"
)

// Decryptor reconstructs a transfer from inbound ciphertext bytes delivered
// in whatever chunk sizes the transport provides. The first two decoded
// segments are captured as the file name and MIME type; every later segment
// is plaintext content, returned in order as soon as it becomes available
// so a consumer can begin saving before the transfer completes.
type Decryptor struct {
	decoder *codec.StreamDecoder

	name      string
	mime      string
	metaCount int

	// progress observes decoded content segment lengths.
	progress func(int)
}

// NewDecryptor creates a decryptor that decrypts records with cipher.
func NewDecryptor(cipher *crypto.Cipher) *Decryptor {
	return &Decryptor{decoder: codec.NewStreamDecoder(cipher)}
}

// OnSegment sets an observer called with each decoded content segment
// length.
func (d *Decryptor) OnSegment(observer func(plaintextLen int)) {
	d.progress = observer
}

// Feed consumes inbound ciphertext and returns the content segments that
// became available, excluding the name and MIME records. Errors are fatal:
// a protocol violation or authentication failure aborts the stream.
func (d *Decryptor) Feed(buf []byte) ([][]byte, error) {
	segments, err := d.decoder.Feed(buf)
	if err != nil {
		return nil, err
	}

	// Peel off the two administrative records.
	for d.metaCount < 2 && len(segments) > 0 {
		switch d.metaCount {
		case 0:
			d.name = string(segments[0])
		case 1:
			d.mime = string(segments[0])
			logrus.WithFields(logrus.Fields{
				"function": "Feed",
				"name":     d.name,
				"mime":     d.mime,
			}).Debug("Decoded transfer metadata")
		}
		d.metaCount++
		segments = segments[1:]
	}

	if d.progress != nil {
		for _, segment := range segments {
			d.progress(len(segment))
		}
	}

	return segments, nil
}

// MetadataReady reports whether the name and MIME records have both been
// decoded.
func (d *Decryptor) MetadataReady() bool {
	return d.metaCount >= 2
}

// Name returns the decoded file name. It is empty for multi-file archives;
// synthesizing a fallback name is the caller's policy, not the codec's.
func (d *Decryptor) Name() string {
	return d.name
}

// MIME returns the decoded MIME type.
func (d *Decryptor) MIME() string {
	return d.mime
}

// Finished reports whether the terminator record has been observed.
func (d *Decryptor) Finished() bool {
	return d.decoder.Finished()
}
