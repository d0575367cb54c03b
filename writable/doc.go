// Package writable adapts host writable streams to Go push producers.
//
// A Stream wraps a raw host handle. Outbound, it can be driven through
// a Sink (fire-and-forget sends with explicit flush) or an io.Writer
// over byte chunks. Inbound, FromConsumer and FromWriter wrap Go
// consumers in underlying sinks so host-side writes flow into them with
// backpressure.
//
// Writer acquisition follows the host's exclusivity rule: at most one
// writer holds the stream's lock at a time.
package writable
