package writable

import (
	"context"
	"fmt"
	"io"
	"sync"

	streamerrors "github.com/wippyai/webstreams/errors"
	"github.com/wippyai/webstreams/host"
)

// Consumer receives the chunks written to a stream built with
// FromConsumer. Calls are serialized and ordered; after Close or Abort
// no further calls are made.
type Consumer interface {
	// Write consumes one chunk. Returning an error moves the stream to
	// an errored state.
	Write(ctx context.Context, chunk any) error
	// Close is called after the last chunk, when the producer closed
	// the stream.
	Close(ctx context.Context) error
	// Abort is called when the stream is errored or aborted; chunks
	// queued behind the failure were discarded.
	Abort(reason any)
}

// consumerSink bridges a Consumer into a host underlying sink. The
// consumer is taken out of the struct before each call, so a panic
// inside it leaves the sink finished. The mutex detects host contract
// violations (overlapping invocations) instead of queueing them.
type consumerSink struct {
	mu sync.Mutex
	c  Consumer
}

func newConsumerSink(c Consumer) *consumerSink {
	return &consumerSink{c: c}
}

func (s *consumerSink) Write(chunk any, _ host.SinkController) *host.Promise {
	if !s.mu.TryLock() {
		return host.Rejected(streamerrors.Overlap("write"))
	}
	p := host.NewPromise()
	go func() {
		// Settles only after the lock is released; settlement lets the
		// host issue the next sink call.
		var failure error
		defer func() {
			if failure != nil {
				p.Reject(failure)
			} else {
				p.Resolve(nil)
			}
		}()
		defer s.mu.Unlock()
		defer func() {
			if r := recover(); r != nil {
				s.c = nil
				failure = streamerrors.Fault("write", r)
			}
		}()
		c := s.c
		if c == nil {
			failure = streamerrors.Exhausted("write")
			return
		}
		s.c = nil
		if err := c.Write(context.Background(), chunk); err != nil {
			failure = err
			return
		}
		s.c = c
	}()
	return p
}

func (s *consumerSink) Close() *host.Promise {
	if !s.mu.TryLock() {
		return host.Rejected(streamerrors.Overlap("close"))
	}
	p := host.NewPromise()
	go func() {
		var failure error
		defer func() {
			if failure != nil {
				p.Reject(failure)
			} else {
				p.Resolve(nil)
			}
		}()
		defer s.mu.Unlock()
		defer func() {
			if r := recover(); r != nil {
				s.c = nil
				failure = streamerrors.Fault("close", r)
			}
		}()
		c := s.c
		if c == nil {
			return
		}
		s.c = nil
		failure = c.Close(context.Background())
	}()
	return p
}

func (s *consumerSink) Abort(reason any) *host.Promise {
	if !s.mu.TryLock() {
		return host.Rejected(streamerrors.Overlap("abort"))
	}
	p := host.NewPromise()
	go func() {
		var failure error
		defer func() {
			if failure != nil {
				p.Reject(failure)
			} else {
				p.Resolve(nil)
			}
		}()
		defer s.mu.Unlock()
		defer func() {
			if r := recover(); r != nil {
				s.c = nil
				failure = streamerrors.Fault("abort", r)
			}
		}()
		c := s.c
		if c == nil {
			return
		}
		s.c = nil
		c.Abort(reason)
	}()
	return p
}

// writerConsumer adapts an io.Writer into a Consumer of byte chunks.
type writerConsumer struct {
	w io.Writer
}

func (c *writerConsumer) Write(_ context.Context, chunk any) error {
	var b []byte
	switch v := chunk.(type) {
	case []byte:
		b = v
	case *host.BufferView:
		b = v.Bytes()
	default:
		return fmt.Errorf("writable: byte chunk expected, got %T", chunk)
	}
	_, err := c.w.Write(b)
	return err
}

func (c *writerConsumer) Close(context.Context) error {
	if closer, ok := c.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *writerConsumer) Abort(any) {
	if closer, ok := c.w.(io.Closer); ok {
		_ = closer.Close()
	}
}
