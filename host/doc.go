// Package host declares the call surface of a streaming host engine.
//
// The surface has two sides:
//
//   - Outbound: operations the adapters call on host objects. These are the
//     ReadableStream, WritableStream and TransformStream interfaces together
//     with their reader and writer interfaces. A conforming engine (such as
//     package engine) implements them; the adapter packages never reimplement
//     the engine's queueing or backpressure accounting.
//   - Inbound: entry points the host engine calls on adapter-provided
//     objects. These are UnderlyingSource, UnderlyingByteSource,
//     UnderlyingSink and Transformer. The engine guarantees serialized,
//     non-overlapping invocation of these entry points per stream.
//
// Asynchronous host operations settle through Promise values. An entry point
// that returns a nil *Promise has nothing for the engine to await; engines
// must honor that and not wait, since after a cancellation the awaited value
// would never arrive.
//
// Byte streams stage data in Buffer/BufferView objects with transfer
// semantics: handing a view to a byte read transfers its backing Buffer,
// detaching every other view on it. Callers must continue with the view
// returned by the host, never the one they passed in.
package host
