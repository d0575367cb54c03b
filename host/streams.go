package host

import "iter"

// QueuingStrategy configures a stream's internal queue. HighWaterMark is
// the queue size above which the stream signals backpressure; 0 disables
// host-side read-ahead entirely.
type QueuingStrategy struct {
	HighWaterMark float64
}

// PipeOptions controls error/close propagation for ReadableStream.PipeTo.
type PipeOptions struct {
	// PreventClose keeps the destination open when the source closes.
	PreventClose bool
	// PreventCancel keeps the source alive when the destination errors.
	PreventCancel bool
	// PreventAbort keeps the destination alive when the source errors.
	PreventAbort bool
	// Signal aborts the pipe when it becomes readable. Optional.
	Signal <-chan struct{}
}

// ReadResult is the settlement value of a default read.
type ReadResult struct {
	Value any
	Done  bool
}

// BYOBReadResult is the settlement value of a byte read. A nil View with
// Done=false means the read was discarded by a cancellation; the staging
// buffer is not returned in that case.
type BYOBReadResult struct {
	View *BufferView
	Done bool
}

// Engine is the stream construction surface of a host engine.
type Engine interface {
	// NewReadable constructs a readable stream driven by src.
	NewReadable(src UnderlyingSource, strategy QueuingStrategy) (ReadableStream, error)
	// NewReadableByteStream constructs a readable byte stream driven by src.
	// Engines without byte stream support return an unsupported error.
	NewReadableByteStream(src UnderlyingByteSource) (ReadableStream, error)
	// NewWritable constructs a writable stream draining into sink.
	NewWritable(sink UnderlyingSink, strategy QueuingStrategy) (WritableStream, error)
	// NewTransform constructs a transform stream pair driven by t.
	// A nil t is an identity transform.
	NewTransform(t Transformer, writable, readable QueuingStrategy) (TransformStream, error)
	// ReadableFrom adapts an iterable into a readable stream.
	// Engines without from-iterable support return an unsupported error.
	ReadableFrom(seq iter.Seq2[any, error]) (ReadableStream, error)
}

// ReadableStream is a host readable stream handle.
type ReadableStream interface {
	// Locked reports whether the stream is locked to a reader.
	Locked() bool
	// Cancel signals loss of interest. Settles once the underlying source's
	// cancel behavior completes. Rejects if the stream is locked.
	Cancel(reason any) *Promise
	// GetReader locks the stream to a new default reader.
	GetReader() (DefaultReader, error)
	// GetBYOBReader locks the stream to a new BYOB reader. Fails when the
	// stream is locked or is not a byte stream.
	GetBYOBReader() (BYOBReader, error)
	// Tee locks the stream and splits it into two branches observing the
	// same chunks.
	Tee() (ReadableStream, ReadableStream, error)
	// PipeTo drains the stream into dst, locking both for the duration.
	PipeTo(dst WritableStream, opts PipeOptions) *Promise
}

// DefaultReader is an exclusive value-oriented reading lease.
type DefaultReader interface {
	// Read requests the next chunk. Settles with a ReadResult.
	Read() *Promise
	// Cancel behaves like ReadableStream.Cancel through the lease.
	Cancel(reason any) *Promise
	// Closed settles when the stream closes, or rejects on stream error or
	// early lock release.
	Closed() *Promise
	// ReleaseLock releases the lease. Engines that support releasing with
	// pending reads reject those reads and return nil; others return an
	// unsupported error and keep the lock.
	ReleaseLock() error
}

// BYOBReader is an exclusive byte-oriented reading lease.
type BYOBReader interface {
	// Read fills view with bytes. This transfers view's backing Buffer:
	// the caller must continue with the view in the BYOBReadResult.
	Read(view *BufferView) *Promise
	Cancel(reason any) *Promise
	Closed() *Promise
	ReleaseLock() error
}

// WritableStream is a host writable stream handle.
type WritableStream interface {
	// Locked reports whether the stream is locked to a writer.
	Locked() bool
	// Abort errors the stream immediately, discarding queued writes.
	// Rejects if the stream is locked.
	Abort(reason any) *Promise
	// GetWriter locks the stream to a new writer.
	GetWriter() (DefaultWriter, error)
}

// DefaultWriter is an exclusive writing lease.
type DefaultWriter interface {
	// Write queues chunk. Settles when the underlying sink accepted it.
	Write(chunk any) *Promise
	// Ready settles when the queue's desired size is positive, i.e. the
	// stream stopped applying backpressure.
	Ready() *Promise
	// Closed settles when the stream finishes closing, or rejects on
	// stream error or early lock release.
	Closed() *Promise
	// Close flushes queued writes and runs the sink's close behavior.
	Close() *Promise
	// Abort behaves like WritableStream.Abort through the lease.
	Abort(reason any) *Promise
	// DesiredSize returns the remaining queue capacity. ok is false when
	// the stream is errored or aborting and must not be written to; the
	// size is 0 when the stream is closed and may be negative when the
	// queue is over-full.
	DesiredSize() (size float64, ok bool)
	// ReleaseLock releases the lease. Pending writes keep their place in
	// the queue; pending Ready/Closed promises reject.
	ReleaseLock()
}

// TransformStream is a host transform stream pairing.
type TransformStream interface {
	Readable() ReadableStream
	Writable() WritableStream
}
