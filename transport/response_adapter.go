package transport

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/dexgs/transpo-go/limits"
	"github.com/dexgs/transpo-go/transfer"
)

// readChunkSize is the buffer size for pulling ciphertext from the
// underlying response body.
const readChunkSize = 32 * 1024

// InterceptResponse wraps an inbound ciphertext stream (typically an HTTP
// response body) with a decryptor and produces a synthetic response whose
// body is the plaintext stream and whose headers are rebuilt from the
// decoded name and MIME type.
//
// The source is read until the name and MIME records have decoded, so the
// headers are complete before the response is returned; the remaining
// plaintext streams lazily through the body. ciphertextLength is the total
// content ciphertext size (from the Transpo-Ciphertext-Length header) and
// yields a Content-Length header; pass -1 when the size is unknown.
//
// fallbackName is substituted when the decoded name record is empty, as it
// is for synthesized multi-file archives.
func InterceptResponse(src io.Reader, dec *transfer.Decryptor, ciphertextLength int64, fallbackName string) (*http.Response, error) {
	body := &decryptedBody{src: src, dec: dec}

	// Pump until the administrative records decode.
	for !dec.MetadataReady() {
		err := body.pump()
		if dec.MetadataReady() {
			break
		}
		if err == io.EOF {
			return nil, fmt.Errorf("stream ended before metadata: %w", io.ErrUnexpectedEOF)
		}
		if err != nil {
			return nil, err
		}
	}

	name := dec.Name()
	if name == "" {
		name = fallbackName
	}
	mime := dec.MIME()
	if mime == "" {
		mime = "application/octet-stream"
	}

	logrus.WithFields(logrus.Fields{
		"function": "InterceptResponse",
		"name":     name,
		"mime":     mime,
	}).Debug("Rebuilding response headers")

	header := make(http.Header)
	header.Set("Content-Type", mime)
	header.Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"%s\"", url.PathEscape(name)))

	resp := &http.Response{
		Status:     "200 OK",
		StatusCode: http.StatusOK,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     header,
		Body:       body,
	}

	if plaintextLen := PlaintextLength(ciphertextLength); plaintextLen >= 0 {
		header.Set("Content-Length", strconv.FormatInt(plaintextLen, 10))
		resp.ContentLength = plaintextLen
	} else {
		resp.ContentLength = -1
	}

	return resp, nil
}

// PlaintextLength derives the decrypted content size from the total
// content ciphertext size. Every content record adds a fixed 18 bytes of
// framing (2-byte prefix plus 16-byte tag) and all records except the last
// carry a full segment, so the record count - and with it the overhead -
// follows from the ciphertext size alone. Returns -1 when the size is
// unknown (non-positive input).
func PlaintextLength(ciphertextLength int64) int64 {
	if ciphertextLength <= 0 {
		if ciphertextLength == 0 {
			return 0
		}
		return -1
	}

	const recordOverhead = limits.RecordLengthPrefixSize + limits.EncryptionOverhead
	const maxRecord = recordOverhead + limits.MaxPlaintextSegment

	records := (ciphertextLength + maxRecord - 1) / maxRecord
	plaintext := ciphertextLength - records*recordOverhead
	if plaintext < 0 {
		return -1
	}
	return plaintext
}

// decryptedBody is the pump-driven plaintext stream behind the synthetic
// response. Each Read drives the source until output is produced or the
// source is exhausted; a read cycle never returns empty-handed while the
// source still has bytes that could produce output.
type decryptedBody struct {
	src io.Reader
	dec *transfer.Decryptor

	pending []byte
	srcErr  error
	decErr  error
}

// Read implements io.Reader over the decrypted content segments.
func (b *decryptedBody) Read(p []byte) (int, error) {
	for len(b.pending) == 0 {
		if b.decErr != nil {
			return 0, b.decErr
		}
		if b.dec.Finished() {
			return 0, io.EOF
		}
		if b.srcErr != nil {
			if b.srcErr == io.EOF {
				// Source exhausted before the terminator: an
				// incomplete transfer must never read as success.
				return 0, fmt.Errorf("stream ended before terminator: %w", io.ErrUnexpectedEOF)
			}
			return 0, b.srcErr
		}
		if err := b.pump(); err != nil && err != io.EOF {
			return 0, err
		}
	}

	n := copy(p, b.pending)
	b.pending = b.pending[n:]
	return n, nil
}

// pump performs one source read and feeds it through the decryptor,
// buffering any produced segments.
func (b *decryptedBody) pump() error {
	buf := make([]byte, readChunkSize)
	n, err := b.src.Read(buf)

	if n > 0 {
		segments, decErr := b.dec.Feed(buf[:n])
		if decErr != nil {
			b.decErr = decErr
			return decErr
		}
		for _, segment := range segments {
			b.pending = append(b.pending, segment...)
		}
	}

	if err != nil {
		b.srcErr = err
		return err
	}
	return nil
}

// Close implements io.Closer. The underlying source is closed when it
// supports closing.
func (b *decryptedBody) Close() error {
	if closer, ok := b.src.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
