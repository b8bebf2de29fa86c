// Package transfer implements the encryption and decryption pipelines for
// Transpo transfers, the per-transfer descriptor and event stream, and the
// registry used to route cancellation requests.
//
// # Pipelines
//
// Encryptor consumes a byte source and produces the outbound record
// sequence on demand:
//
//	enc, err := transfer.NewEncryptor(cipher, file, "notes.txt", "text/plain")
//	for {
//	    record, err := enc.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    send(record)
//	}
//
// Decryptor reverses the process from arbitrarily chunked inbound bytes:
//
//	dec := transfer.NewDecryptor(cipher)
//	for buf := range incoming {
//	    segments, err := dec.Feed(buf)
//	    ...
//	}
//
// # Events
//
// Each Transfer owns an event channel delivering progress deltas followed
// by exactly one terminal event (Completed, Failed or Cancelled), after
// which the channel closes. Cancellation is idempotent and suppresses all
// later events.
//
// # Concurrency
//
// A transfer instance is single-threaded: records are produced and consumed
// in strict counter order because nonce correctness depends on sequencing.
// Independent transfers share nothing except the Registry, which is safe
// for concurrent use.
package transfer
