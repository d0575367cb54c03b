package readable

import (
	"context"
	"io"
	"iter"

	streamerrors "github.com/wippyai/webstreams/errors"
	"github.com/wippyai/webstreams/host"
	"github.com/wippyai/webstreams/writable"
)

// Stream wraps a raw host readable stream handle.
type Stream struct {
	raw host.ReadableStream
}

// FromRaw adopts an existing host stream handle.
func FromRaw(raw host.ReadableStream) *Stream {
	return &Stream{raw: raw}
}

// FromSeq builds a host stream that pulls chunks out of seq on demand.
// The stream applies no read-ahead: seq advances only when the consumer
// asks for a chunk. A yielded error moves the stream to an errored
// state; cancellation stops the iteration.
func FromSeq(e host.Engine, seq iter.Seq2[any, error]) (*Stream, error) {
	raw, err := e.NewReadable(newSeqSource(seq), host.QueuingStrategy{})
	if err != nil {
		return nil, err
	}
	return &Stream{raw: raw}, nil
}

// From builds a host stream over seq using the host's native
// from-iterable construction. Hosts without that capability fall back
// to FromSeq, which behaves the same way through a plain source.
func From(e host.Engine, seq iter.Seq2[any, error]) (*Stream, error) {
	raw, err := e.ReadableFrom(seq)
	if err != nil {
		if streamerrors.IsUnsupported(err) {
			return FromSeq(e, seq)
		}
		return nil, err
	}
	return &Stream{raw: raw}, nil
}

// FromReader builds a host byte stream that pulls from r on demand,
// reading straight into consumer-supplied buffers. If r is an io.Closer
// it is closed on cancellation. bufLen is the buffer size allocated for
// default reads; 0 means DefaultBufLen.
func FromReader(e host.Engine, r io.Reader, bufLen int) (*Stream, error) {
	if bufLen <= 0 {
		bufLen = DefaultBufLen
	}
	raw, err := e.NewReadableByteStream(newReaderSource(r, bufLen))
	if err != nil {
		return nil, err
	}
	return &Stream{raw: raw}, nil
}

// Raw returns the wrapped host handle.
func (s *Stream) Raw() host.ReadableStream {
	return s.raw
}

// IntoRaw unwraps the host handle, invalidating s.
func (s *Stream) IntoRaw() host.ReadableStream {
	raw := s.raw
	s.raw = nil
	return raw
}

// Locked reports whether a reader currently holds the stream's lock.
func (s *Stream) Locked() bool {
	return s.raw.Locked()
}

// Cancel signals loss of interest and waits for the underlying source
// to settle. Fails when the stream is locked.
func (s *Stream) Cancel(ctx context.Context) error {
	return s.CancelWithReason(ctx, nil)
}

// CancelWithReason is Cancel with an explicit reason for the source.
func (s *Stream) CancelWithReason(ctx context.Context, reason any) error {
	_, err := s.raw.Cancel(reason).Await(ctx)
	return err
}

// GetReader acquires the reading lock. Panics when the stream is
// already locked.
func (s *Stream) GetReader() *DefaultReader {
	r, err := s.TryGetReader()
	if err != nil {
		panic(err)
	}
	return r
}

// TryGetReader acquires the reading lock, failing when the stream is
// already locked.
func (s *Stream) TryGetReader() (*DefaultReader, error) {
	raw, err := s.raw.GetReader()
	if err != nil {
		return nil, err
	}
	return &DefaultReader{raw: raw}, nil
}

// GetBYOBReader acquires the byte-reading lock. Panics when the stream
// is locked or does not support byte reads.
func (s *Stream) GetBYOBReader() *BYOBReader {
	r, err := s.TryGetBYOBReader()
	if err != nil {
		panic(err)
	}
	return r
}

// TryGetBYOBReader acquires the byte-reading lock, failing when the
// stream is locked or is not a byte stream.
func (s *Stream) TryGetBYOBReader() (*BYOBReader, error) {
	raw, err := s.raw.GetBYOBReader()
	if err != nil {
		return nil, err
	}
	return &BYOBReader{raw: raw}, nil
}

// Tee splits the stream into two branches observing the same chunks.
// Panics when the stream is locked.
func (s *Stream) Tee() (*Stream, *Stream) {
	a, b, err := s.TryTee()
	if err != nil {
		panic(err)
	}
	return a, b
}

// TryTee splits the stream into two branches, failing when the stream
// is locked. Chunks are shared, not copied: a branch mutating a chunk's
// backing storage is observed by the other branch.
func (s *Stream) TryTee() (*Stream, *Stream, error) {
	a, b, err := s.raw.Tee()
	if err != nil {
		return nil, nil, err
	}
	return &Stream{raw: a}, &Stream{raw: b}, nil
}

// PipeTo drains the stream into dst, locking both for the duration.
// Canceling ctx aborts the pipe; error and close propagation follow
// opts. A nil opts means full propagation.
func (s *Stream) PipeTo(ctx context.Context, dst *writable.Stream, opts *PipeOptions) error {
	var o PipeOptions
	if opts != nil {
		o = *opts
	}
	hostOpts := host.PipeOptions{
		PreventClose:  o.PreventClose,
		PreventCancel: o.PreventCancel,
		PreventAbort:  o.PreventAbort,
		Signal:        ctx.Done(),
	}
	_, err := s.raw.PipeTo(dst.Raw(), hostOpts).Await(context.Background())
	return err
}

// IntoIterator consumes the stream as a chunk iterator. Panics when the
// stream is locked.
func (s *Stream) IntoIterator() *Iterator {
	it, err := s.TryIntoIterator()
	if err != nil {
		panic(err)
	}
	return it
}

// TryIntoIterator consumes the stream as a chunk iterator, failing when
// the stream is locked. The iterator holds the reading lock until
// closed or exhausted.
func (s *Stream) TryIntoIterator() (*Iterator, error) {
	r, err := s.TryGetReader()
	if err != nil {
		return nil, err
	}
	return &Iterator{reader: r}, nil
}

// IntoIOReader consumes the stream as an io.ReadCloser. Panics when the
// stream is locked or does not support byte reads.
func (s *Stream) IntoIOReader(ctx context.Context) io.ReadCloser {
	r, err := s.TryIntoIOReader(ctx)
	if err != nil {
		panic(err)
	}
	return r
}

// TryIntoIOReader consumes the stream as an io.ReadCloser, failing when
// the stream is locked or is not a byte stream. Reads block under ctx;
// canceling ctx fails subsequent reads but leaves the stream intact.
func (s *Stream) TryIntoIOReader(ctx context.Context) (io.ReadCloser, error) {
	r, err := s.TryGetBYOBReader()
	if err != nil {
		return nil, err
	}
	return &IOReader{ctx: ctx, reader: r}, nil
}

// PipeOptions controls propagation behavior for PipeTo.
type PipeOptions struct {
	// PreventClose keeps the destination open after the source closes.
	PreventClose bool
	// PreventCancel keeps the source alive after the destination errors.
	PreventCancel bool
	// PreventAbort keeps the destination alive after the source errors.
	PreventAbort bool
}
