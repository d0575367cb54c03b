// Package readable adapts host readable streams to Go pull iteration.
//
// A Stream wraps a raw host handle. Outbound, it can be consumed as an
// Iterator (one chunk per Next call), as an io.Reader over byte
// streams, or piped straight into a writable stream. Inbound, FromSeq
// and FromReader wrap Go producers in underlying sources so the host
// pulls from them with backpressure.
//
// Reader acquisition follows the host's exclusivity rule: at most one
// reader holds the stream's lock, and acquiring methods come in a
// panicking form (GetReader) and an error-returning form
// (TryGetReader), with the panicking form reserved for call sites that
// know the stream is unlocked.
package readable
