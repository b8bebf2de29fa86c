// Package transport reconciles the record codec with transports that lack
// backpressure or alignment guarantees.
//
// # Adapters
//
// Three adapters cover the transports Transpo uses:
//
//   - UploadWriter: a backpressure-aware writer for duplex-socket uploads.
//     It polls the socket's outbound queue against a high-water mark and
//     only reports progress for bytes actually drained.
//   - PullReader: a receiver-driven reader for duplex-socket downloads.
//     Each chunk is requested explicitly with a zero-length probe, so the
//     sender never runs ahead of the receiver.
//   - InterceptResponse: wraps a ciphertext HTTP response body so the
//     decrypted stream impersonates a plain response, with Content-Type,
//     Content-Disposition and Content-Length rebuilt from the decoded
//     metadata.
//
// # Sockets
//
// The Socket interface abstracts the duplex connection; WebSocket adapts a
// gorilla/websocket connection to it with a background write pump whose
// queue depth backs the Queued measurement.
//
// Backpressure stalls are not errors: they are absorbed by bounded
// exponential polling (1ms doubling to 50ms) and never surface unless the
// transport itself fails.
package transport
