package writable

import (
	"context"
	"io"

	"github.com/wippyai/webstreams/host"
)

// Stream wraps a raw host writable stream handle.
type Stream struct {
	raw host.WritableStream
}

// FromRaw adopts an existing host stream handle.
func FromRaw(raw host.WritableStream) *Stream {
	return &Stream{raw: raw}
}

// FromConsumer builds a host stream that delivers written chunks to c,
// one at a time and in order. The stream buffers one chunk beyond the
// in-flight write before signalling backpressure.
func FromConsumer(e host.Engine, c Consumer) (*Stream, error) {
	raw, err := e.NewWritable(newConsumerSink(c), host.QueuingStrategy{HighWaterMark: 1})
	if err != nil {
		return nil, err
	}
	return &Stream{raw: raw}, nil
}

// FromWriter builds a host stream that copies written byte chunks into
// w. Chunks must be []byte or *host.BufferView. If w is an io.Closer it
// is closed when the stream closes or aborts.
func FromWriter(e host.Engine, w io.Writer) (*Stream, error) {
	return FromConsumer(e, &writerConsumer{w: w})
}

// Raw returns the wrapped host handle.
func (s *Stream) Raw() host.WritableStream {
	return s.raw
}

// IntoRaw unwraps the host handle, invalidating s.
func (s *Stream) IntoRaw() host.WritableStream {
	raw := s.raw
	s.raw = nil
	return raw
}

// Locked reports whether a writer currently holds the stream's lock.
func (s *Stream) Locked() bool {
	return s.raw.Locked()
}

// Abort errors the stream, discarding queued writes, and waits for the
// underlying sink to settle. Fails when the stream is locked.
func (s *Stream) Abort(ctx context.Context) error {
	return s.AbortWithReason(ctx, nil)
}

// AbortWithReason is Abort with an explicit reason for the sink.
func (s *Stream) AbortWithReason(ctx context.Context, reason any) error {
	_, err := s.raw.Abort(reason).Await(ctx)
	return err
}

// GetWriter acquires the writing lock. Panics when the stream is
// already locked.
func (s *Stream) GetWriter() *DefaultWriter {
	w, err := s.TryGetWriter()
	if err != nil {
		panic(err)
	}
	return w
}

// TryGetWriter acquires the writing lock, failing when the stream is
// already locked.
func (s *Stream) TryGetWriter() (*DefaultWriter, error) {
	raw, err := s.raw.GetWriter()
	if err != nil {
		return nil, err
	}
	return &DefaultWriter{raw: raw}, nil
}

// IntoSink consumes the stream as a Sink. Panics when the stream is
// locked.
func (s *Stream) IntoSink() *Sink {
	sink, err := s.TryIntoSink()
	if err != nil {
		panic(err)
	}
	return sink
}

// TryIntoSink consumes the stream as a Sink, failing when the stream is
// locked. The sink holds the writing lock until closed, aborted or
// failed.
func (s *Stream) TryIntoSink() (*Sink, error) {
	w, err := s.TryGetWriter()
	if err != nil {
		return nil, err
	}
	return &Sink{w: w}, nil
}

// IntoIOWriter consumes the stream as an io.WriteCloser. Panics when
// the stream is locked.
func (s *Stream) IntoIOWriter(ctx context.Context) io.WriteCloser {
	w, err := s.TryIntoIOWriter(ctx)
	if err != nil {
		panic(err)
	}
	return w
}

// TryIntoIOWriter consumes the stream as an io.WriteCloser, failing
// when the stream is locked. Writes block under ctx while the stream
// applies backpressure.
func (s *Stream) TryIntoIOWriter(ctx context.Context) (io.WriteCloser, error) {
	w, err := s.TryGetWriter()
	if err != nil {
		return nil, err
	}
	return &IOWriter{ctx: ctx, w: w}, nil
}
