// Package engine provides an in-memory reference implementation of the
// host stream surface declared in package host.
//
// The engine owns all queueing and backpressure accounting: readable
// streams pull from their underlying source while the queue is below the
// high water mark, writable streams meter producers through desired-size
// and ready promises, and tee/pipe compose streams without copying chunks.
//
// The binding layer (packages readable, writable, transform) is written
// against the host interfaces only; this engine exists so the bindings are
// usable and testable without an embedding host. Optional host
// capabilities (byte streams, from-iterable construction, releasing a
// reader lock while reads are pending) can be switched off with Options
// to exercise the adapters' fallback paths.
package engine
