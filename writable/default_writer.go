package writable

import (
	"context"
	"io"

	"github.com/wippyai/webstreams/host"
)

// DefaultWriter is an exclusive writing lease on a stream.
type DefaultWriter struct {
	raw host.DefaultWriter
}

// Raw returns the wrapped host writer handle.
func (w *DefaultWriter) Raw() host.DefaultWriter {
	return w.raw
}

// Write queues chunk and blocks until the underlying sink accepted it.
// Canceling ctx abandons the wait; the chunk stays queued.
func (w *DefaultWriter) Write(ctx context.Context, chunk any) error {
	_, err := w.raw.Write(chunk).Await(ctx)
	return err
}

// IntoSink converts the lease into a Sink without going through the
// stream. The sink takes over the lock.
func (w *DefaultWriter) IntoSink() *Sink {
	return &Sink{w: w}
}

// IntoIOWriter converts the lease into an io.WriteCloser without going
// through the stream. The returned writer takes over the lock.
func (w *DefaultWriter) IntoIOWriter(ctx context.Context) io.WriteCloser {
	return &IOWriter{ctx: ctx, w: w}
}

// Ready blocks until the stream stops applying backpressure.
func (w *DefaultWriter) Ready(ctx context.Context) error {
	_, err := w.raw.Ready().Await(ctx)
	return err
}

// Closed blocks until the stream finishes closing, or returns the
// stream's failure.
func (w *DefaultWriter) Closed(ctx context.Context) error {
	_, err := w.raw.Closed().Await(ctx)
	return err
}

// Close flushes queued writes, runs the sink's close behavior and
// blocks until it settles.
func (w *DefaultWriter) Close(ctx context.Context) error {
	_, err := w.raw.Close().Await(ctx)
	return err
}

// Abort errors the stream through the lease, discarding queued writes.
func (w *DefaultWriter) Abort(ctx context.Context) error {
	return w.AbortWithReason(ctx, nil)
}

// AbortWithReason is Abort with an explicit reason for the sink.
func (w *DefaultWriter) AbortWithReason(ctx context.Context, reason any) error {
	_, err := w.raw.Abort(reason).Await(ctx)
	return err
}

// DesiredSize returns the stream's remaining queue capacity. ok is
// false when the stream is errored or aborting; the size may be
// negative when the queue is over-full.
func (w *DefaultWriter) DesiredSize() (size float64, ok bool) {
	return w.raw.DesiredSize()
}

// ReleaseLock releases the lease. Queued writes keep their place.
func (w *DefaultWriter) ReleaseLock() {
	w.raw.ReleaseLock()
}
