// Package codec implements the Transpo record framing: fixed-maximum
// plaintext segments encrypted independently and framed as length-prefixed
// ciphertext records, with a zero-length record terminating the stream.
//
// # Wire Format
//
// Each record is a 2-byte big-endian unsigned ciphertext length followed by
// exactly that many ciphertext bytes. Ciphertext is plaintext plus the
// 16-byte AEAD tag, so a record never exceeds 10258 bytes on the wire.
// Counter 0 carries the file name, counter 1 the MIME type, and counters
// from 2 the content segments. The stream ends with two zero bytes that
// belong to no record.
//
// # Decoding
//
// StreamDecoder consumes ciphertext in whatever chunk sizes the transport
// delivers and produces plaintext segments as soon as whole records are
// available:
//
//	decoder := codec.NewStreamDecoder(cipher)
//	for buf := range incoming {
//	    segments, err := decoder.Feed(buf)
//	    if err != nil {
//	        return err // tampering, corruption or protocol violation
//	    }
//	    for _, segment := range segments {
//	        consume(segment)
//	    }
//	    if decoder.Finished() {
//	        break
//	    }
//	}
//
// The decoder never blocks waiting for input; detecting a transport that
// stops delivering data is the transport adapter's responsibility.
package codec
