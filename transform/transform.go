// Package transform pairs a writable side with a readable side through
// a per-chunk hook running Go code inside the host's transform
// machinery.
package transform

import (
	"context"
	"sync"

	streamerrors "github.com/wippyai/webstreams/errors"
	"github.com/wippyai/webstreams/host"
	"github.com/wippyai/webstreams/readable"
	"github.com/wippyai/webstreams/writable"
)

// Stream wraps a raw host transform stream handle.
type Stream struct {
	raw host.TransformStream
}

// FromRaw adopts an existing host stream handle.
func FromRaw(raw host.TransformStream) *Stream {
	return &Stream{raw: raw}
}

// New builds a transform stream running h on every written chunk, with
// the conventional strategies: one chunk of slack on the writable side,
// no read-ahead on the readable side.
func New(e host.Engine, h Handler) (*Stream, error) {
	return NewWithStrategies(e, h,
		host.QueuingStrategy{HighWaterMark: 1},
		host.QueuingStrategy{})
}

// NewWithStrategies is New with explicit queuing strategies for the
// writable and readable sides.
func NewWithStrategies(e host.Engine, h Handler, writableStrategy, readableStrategy host.QueuingStrategy) (*Stream, error) {
	var t host.Transformer
	if h != nil {
		t = &handlerTransformer{h: h}
	}
	raw, err := e.NewTransform(t, writableStrategy, readableStrategy)
	if err != nil {
		return nil, err
	}
	return &Stream{raw: raw}, nil
}

// NewIdentity builds a transform stream that passes chunks through
// unchanged.
func NewIdentity(e host.Engine) (*Stream, error) {
	raw, err := e.NewTransform(nil,
		host.QueuingStrategy{HighWaterMark: 1},
		host.QueuingStrategy{})
	if err != nil {
		return nil, err
	}
	return &Stream{raw: raw}, nil
}

// Raw returns the wrapped host handle.
func (s *Stream) Raw() host.TransformStream {
	return s.raw
}

// IntoRaw unwraps the host handle, invalidating s.
func (s *Stream) IntoRaw() host.TransformStream {
	raw := s.raw
	s.raw = nil
	return raw
}

// Readable returns the readable side.
func (s *Stream) Readable() *readable.Stream {
	return readable.FromRaw(s.raw.Readable())
}

// Writable returns the writable side.
func (s *Stream) Writable() *writable.Stream {
	return writable.FromRaw(s.raw.Writable())
}

// Handler is the Go-side transform hook. Calls are serialized and
// ordered: Transform runs once per written chunk, Flush once when the
// writable side closes.
type Handler interface {
	// Start is called once before any chunk.
	Start(ctrl host.TransformController) error
	// Transform consumes one chunk, enqueueing any number of output
	// chunks on ctrl. Returning an error fails both sides.
	Transform(ctx context.Context, chunk any, ctrl host.TransformController) error
	// Flush runs after the last chunk, before the readable side closes.
	Flush(ctx context.Context, ctrl host.TransformController) error
}

// Funcs implements Handler with optional functions. A nil TransformFunc
// passes chunks through unchanged.
type Funcs struct {
	StartFunc     func(ctrl host.TransformController) error
	TransformFunc func(ctx context.Context, chunk any, ctrl host.TransformController) error
	FlushFunc     func(ctx context.Context, ctrl host.TransformController) error
}

func (f *Funcs) Start(ctrl host.TransformController) error {
	if f.StartFunc == nil {
		return nil
	}
	return f.StartFunc(ctrl)
}

func (f *Funcs) Transform(ctx context.Context, chunk any, ctrl host.TransformController) error {
	if f.TransformFunc == nil {
		return ctrl.Enqueue(chunk)
	}
	return f.TransformFunc(ctx, chunk, ctrl)
}

func (f *Funcs) Flush(ctx context.Context, ctrl host.TransformController) error {
	if f.FlushFunc == nil {
		return nil
	}
	return f.FlushFunc(ctx, ctrl)
}

// handlerTransformer bridges a Handler into a host transformer. The
// handler is taken out of the struct before each call, so a panic
// inside it leaves the transformer finished. The mutex detects host
// contract violations (overlapping invocations).
type handlerTransformer struct {
	mu sync.Mutex
	h  Handler
}

func (t *handlerTransformer) Start(ctrl host.TransformController) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.h = nil
			err = streamerrors.Fault("start", r)
		}
	}()
	h := t.h
	if h == nil {
		return streamerrors.Exhausted("start")
	}
	t.h = nil
	err = h.Start(ctrl)
	if err == nil {
		t.h = h
	}
	return err
}

func (t *handlerTransformer) Transform(chunk any, ctrl host.TransformController) *host.Promise {
	return t.invoke("transform", func(h Handler) error {
		return h.Transform(context.Background(), chunk, ctrl)
	})
}

func (t *handlerTransformer) Flush(ctrl host.TransformController) *host.Promise {
	return t.invoke("flush", func(h Handler) error {
		return h.Flush(context.Background(), ctrl)
	})
}

func (t *handlerTransformer) invoke(op string, call func(Handler) error) *host.Promise {
	if !t.mu.TryLock() {
		return host.Rejected(streamerrors.Overlap(op))
	}
	p := host.NewPromise()
	go func() {
		// Settles only after the lock is released; settlement lets the
		// host issue the next hook call.
		var failure error
		defer func() {
			if failure != nil {
				p.Reject(failure)
			} else {
				p.Resolve(nil)
			}
		}()
		defer t.mu.Unlock()
		defer func() {
			if r := recover(); r != nil {
				t.h = nil
				failure = streamerrors.Fault(op, r)
			}
		}()
		h := t.h
		if h == nil {
			failure = streamerrors.Exhausted(op)
			return
		}
		t.h = nil
		if err := call(h); err != nil {
			failure = err
			return
		}
		t.h = h
	}()
	return p
}
