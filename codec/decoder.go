package codec

import (
	"encoding/binary"

	"github.com/dexgs/transpo-go/crypto"
	"github.com/dexgs/transpo-go/limits"
)

// StreamDecoder parses a ciphertext record stream delivered in arbitrary
// chunk sizes and emits decrypted plaintext segments in counter order.
//
// The decoder owns the record counter: each record is decrypted with the
// next counter value, so a reordered, duplicated or dropped record can only
// ever surface as an authentication failure, never as wrong plaintext.
//
// A StreamDecoder is not safe for concurrent use. Records within one
// transfer are strictly sequenced, so there is nothing to parallelize.
type StreamDecoder struct {
	cipher *crypto.Cipher

	// scratch holds at most one maximum-size record plus its length prefix.
	// start and end delimit the unparsed bytes within it.
	scratch  [limits.DecoderScratchSize]byte
	start    int
	end      int
	counter  uint64
	finished bool
	err      error
}

// NewStreamDecoder creates a decoder that decrypts records with cipher,
// starting from counter 0.
func NewStreamDecoder(cipher *crypto.Cipher) *StreamDecoder {
	return &StreamDecoder{cipher: cipher}
}

// Feed appends buf to the decoder's internal state and returns all segments
// that became decodable, possibly none. Input may be fragmented arbitrarily:
// single bytes, partial records and chunks spanning many records are all
// handled identically.
//
// Once the terminator record has been observed, Feed consumes nothing
// further and trailing bytes are discarded. After a fatal error (oversized
// length prefix or authentication failure) every subsequent call returns
// the same error.
func (d *StreamDecoder) Feed(buf []byte) ([][]byte, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.finished {
		return nil, nil
	}

	var segments [][]byte

	for len(buf) > 0 {
		// Refill the scratch buffer with as much input as fits. Inputs
		// larger than the free space are processed over multiple
		// drain/refill iterations within this same call.
		n := copy(d.scratch[d.end:], buf)
		d.end += n
		buf = buf[n:]

		decoded, err := d.drain()
		if err != nil {
			d.err = err
			return nil, err
		}
		segments = append(segments, decoded...)

		if d.finished {
			break
		}

		d.compact()
	}

	return segments, nil
}

// drain decodes complete records currently held in the scratch buffer.
func (d *StreamDecoder) drain() ([][]byte, error) {
	var segments [][]byte

	for d.end-d.start >= limits.RecordLengthPrefixSize {
		length := int(binary.BigEndian.Uint16(d.scratch[d.start:]))

		if length == 0 {
			// Terminator: end of content. Anything after it is ignored.
			d.finished = true
			return segments, nil
		}

		if err := limits.ValidateRecordLength(length); err != nil {
			return nil, err
		}

		recordEnd := d.start + limits.RecordLengthPrefixSize + length
		if recordEnd > d.end {
			// Partial record, wait for more input.
			break
		}

		ciphertext := d.scratch[d.start+limits.RecordLengthPrefixSize : recordEnd]
		plaintext, err := d.cipher.Open(d.counter, ciphertext)
		if err != nil {
			return nil, err
		}

		d.counter++
		d.start = recordEnd
		segments = append(segments, plaintext)
	}

	return segments, nil
}

// compact moves unconsumed trailing bytes to the front of the scratch
// buffer so the next refill has maximal free space.
func (d *StreamDecoder) compact() {
	if d.start == 0 {
		return
	}
	copy(d.scratch[:], d.scratch[d.start:d.end])
	d.end -= d.start
	d.start = 0
}

// Finished reports whether the terminator record has been observed.
func (d *StreamDecoder) Finished() bool {
	return d.finished
}

// Counter returns the counter the next record will be decrypted with.
func (d *StreamDecoder) Counter() uint64 {
	return d.counter
}

// Err returns the fatal error the decoder stopped on, if any.
func (d *StreamDecoder) Err() error {
	return d.err
}
