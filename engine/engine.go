package engine

import (
	"fmt"
	"iter"
	"sync/atomic"

	"go.uber.org/zap"

	streamerrors "github.com/wippyai/webstreams/errors"
	"github.com/wippyai/webstreams/host"
)

// Engine is an in-memory host.Engine. The zero value is not usable;
// construct with New.
type Engine struct {
	byteStreams    bool
	fromIterable   bool
	releasePending bool

	nextID atomic.Uint64
}

// Option adjusts engine capabilities.
type Option func(*Engine)

// WithoutByteStreams disables byte-oriented readable streams. Byte
// constructors and BYOB reader acquisition then fail with an
// unsupported error, as on hosts predating the byte stream surface.
func WithoutByteStreams() Option {
	return func(e *Engine) { e.byteStreams = false }
}

// WithoutFromIterable disables ReadableFrom, as on hosts that do not
// implement from-iterable construction.
func WithoutFromIterable() Option {
	return func(e *Engine) { e.fromIterable = false }
}

// WithoutPendingRelease makes releasing a reader lock fail while reads
// are pending, matching hosts that only support releasing idle readers.
func WithoutPendingRelease() Option {
	return func(e *Engine) { e.releasePending = false }
}

// New constructs an engine with all capabilities enabled unless
// switched off by options.
func New(opts ...Option) *Engine {
	e := &Engine{
		byteStreams:    true,
		fromIterable:   true,
		releasePending: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewReadable builds a readable stream driven by src. A zero strategy
// means a high water mark of zero: the source is pulled only while a
// read is outstanding.
func (e *Engine) NewReadable(src host.UnderlyingSource, strategy host.QueuingStrategy) (host.ReadableStream, error) {
	s := newReadable(e, src, strategy)
	log().Debug("readable stream created",
		zap.Uint64("stream", s.id),
		zap.Float64("high_water_mark", strategy.HighWaterMark))
	s.start()
	return s, nil
}

// NewReadableByteStream builds a byte-oriented readable stream driven
// by src. Returns an unsupported error when the engine was built
// WithoutByteStreams.
func (e *Engine) NewReadableByteStream(src host.UnderlyingByteSource) (host.ReadableStream, error) {
	if !e.byteStreams {
		return nil, streamerrors.Unsupported("new_readable_byte_stream", "byte streams")
	}
	s := newByteReadable(e, src)
	log().Debug("byte readable stream created",
		zap.Uint64("stream", s.id),
		zap.Int("auto_allocate", s.autoAllocate))
	s.start()
	return s, nil
}

// NewWritable builds a writable stream backed by sink. A zero strategy
// means a high water mark of zero: every accepted chunk signals
// backpressure until the sink consumes it.
func (e *Engine) NewWritable(sink host.UnderlyingSink, strategy host.QueuingStrategy) (host.WritableStream, error) {
	s := newWritable(e, sink, strategy)
	log().Debug("writable stream created",
		zap.Uint64("stream", s.id),
		zap.Float64("high_water_mark", strategy.HighWaterMark))
	return s, nil
}

// NewTransform builds a transform stream. A nil transformer yields the
// identity transform.
func (e *Engine) NewTransform(t host.Transformer, writable, readable host.QueuingStrategy) (host.TransformStream, error) {
	return newTransform(e, t, writable, readable)
}

// ReadableFrom builds a readable stream that drains seq one element per
// pull. Returns an unsupported error when the engine was built
// WithoutFromIterable.
func (e *Engine) ReadableFrom(seq iter.Seq2[any, error]) (host.ReadableStream, error) {
	if !e.fromIterable {
		return nil, streamerrors.Unsupported("readable_from", "from-iterable construction")
	}
	return e.NewReadable(newIterableSource(seq), host.QueuingStrategy{})
}

func (e *Engine) newStreamID() uint64 {
	return e.nextID.Add(1)
}

// hostErr wraps a reason reported by stream machinery (an errored
// stream, a rejected sink promise) into the error surfaced on promises.
func hostErr(op string, reason any) error {
	return streamerrors.Host(op, reason)
}

func errReleased(op string) error {
	return streamerrors.Host(op, fmt.Errorf("reader lock released"))
}
