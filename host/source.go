package host

// DefaultController lets an underlying source feed a default readable
// stream.
type DefaultController interface {
	// Enqueue pushes a chunk into the stream's queue.
	Enqueue(chunk any) error
	// Close marks the end of the source's data.
	Close() error
	// Error moves the stream to an errored state.
	Error(reason any)
	// DesiredSize returns the remaining queue capacity; ok is false once
	// the stream is errored.
	DesiredSize() (size float64, ok bool)
}

// BYOBRequest is an outstanding buffer-oriented read request issued by a
// byte stream consumer (or synthesized from the auto-allocate chunk size).
type BYOBRequest interface {
	// View returns the destination view to fill.
	View() *BufferView
	// Respond reports that the first n bytes of the view were filled.
	Respond(n int) error
	// RespondWithNewView reports completion with a replacement view, used
	// after the original view's buffer was transferred.
	RespondWithNewView(view *BufferView) error
}

// ByteController lets an underlying byte source feed a readable byte
// stream.
type ByteController interface {
	// BYOBRequest returns the pending buffer request, or nil when none is
	// outstanding.
	BYOBRequest() BYOBRequest
	// Close marks the end of the source's data.
	Close() error
	// Error moves the stream to an errored state.
	Error(reason any)
}

// SinkController lets an underlying sink error its writable stream outside
// a write call.
type SinkController interface {
	Error(reason any)
}

// TransformController lets a transformer emit chunks on the readable side
// of a transform stream.
type TransformController interface {
	Enqueue(chunk any) error
	Error(reason any)
	// Terminate closes the readable side and errors the writable side.
	Terminate()
}

// UnderlyingSource is the host-invoked surface of a value source. The
// engine serializes invocations: no entry point is called while a Promise
// returned from a previous one is unsettled.
type UnderlyingSource interface {
	// Start is called once at construction time.
	Start(ctrl DefaultController) error
	// Pull is called to produce one chunk. A nil Promise means there is
	// nothing to await.
	Pull(ctrl DefaultController) *Promise
	// Cancel is called when the consumer loses interest. The returned
	// Promise (if any) delays cancel completion.
	Cancel(reason any) *Promise
}

// UnderlyingByteSource is the host-invoked surface of a byte source.
type UnderlyingByteSource interface {
	// AutoAllocateChunkSize is the buffer size the engine allocates for
	// default (non-BYOB) reads. Must be positive.
	AutoAllocateChunkSize() int
	// Start is called once at construction time.
	Start(ctrl ByteController) error
	// Pull is called to satisfy the controller's pending BYOBRequest.
	Pull(ctrl ByteController) *Promise
	// Cancel is called when the consumer loses interest.
	Cancel(reason any) *Promise
}

// UnderlyingSink is the host-invoked surface of a consumer. The engine
// serializes invocations and never calls Write after Close or Abort.
type UnderlyingSink interface {
	// Write is called with one accepted chunk. A nil Promise means the
	// chunk was consumed synchronously.
	Write(chunk any, ctrl SinkController) *Promise
	// Close is called after the last chunk was written.
	Close() *Promise
	// Abort is called when the stream is errored or aborted; queued
	// chunks are discarded.
	Abort(reason any) *Promise
}

// Transformer is the host-invoked surface of a transform stream's
// per-chunk hook.
type Transformer interface {
	// Start is called once at construction time.
	Start(ctrl TransformController) error
	// Transform is called once per written chunk.
	Transform(chunk any, ctrl TransformController) *Promise
	// Flush is called when the writable side closes.
	Flush(ctrl TransformController) *Promise
}
