package writable

import (
	"context"

	streamerrors "github.com/wippyai/webstreams/errors"
	"github.com/wippyai/webstreams/host"
)

// Sink drives a writer in fire-and-forget style: Send hands a chunk to
// the stream without waiting for the sink to consume it, blocking only
// while the stream applies backpressure. Flush waits for everything
// sent so far.
//
// The first failure releases the writing lock and is returned; every
// later call reports the sink as finished with that failure as cause.
type Sink struct {
	w       *DefaultWriter
	pending []*host.Promise
	err     error
}

// Send queues chunk, blocking until the stream is ready to accept it.
// Acceptance by the underlying sink is observed by a later Send, Flush
// or Close.
func (s *Sink) Send(ctx context.Context, chunk any) error {
	if s.w == nil {
		return s.finished("send")
	}
	if err := s.reap(); err != nil {
		return err
	}
	if err := s.w.Ready(ctx); err != nil {
		if ctx.Err() != nil && err == ctx.Err() {
			return err
		}
		return s.fail(err)
	}
	s.pending = append(s.pending, s.w.raw.Write(chunk))
	return nil
}

// Flush blocks until every chunk sent so far was accepted by the
// underlying sink.
func (s *Sink) Flush(ctx context.Context) error {
	if s.w == nil {
		return s.finished("flush")
	}
	for _, p := range s.pending {
		if _, err := p.Await(ctx); err != nil {
			if ctx.Err() != nil && err == ctx.Err() {
				return err
			}
			return s.fail(err)
		}
	}
	s.pending = nil
	return nil
}

// Close flushes, runs the stream's close behavior and releases the
// lock. The sink is finished afterwards.
func (s *Sink) Close(ctx context.Context) error {
	if s.w == nil {
		return s.finished("close")
	}
	if err := s.Flush(ctx); err != nil {
		return err
	}
	err := s.w.Close(ctx)
	if ctx.Err() != nil && err == ctx.Err() {
		return err
	}
	w := s.w
	s.w = nil
	s.err = err
	w.ReleaseLock()
	return err
}

// Abort errors the stream, discarding queued chunks, and releases the
// lock. The sink is finished afterwards.
func (s *Sink) Abort(ctx context.Context, reason any) error {
	if s.w == nil {
		return s.finished("abort")
	}
	err := s.w.AbortWithReason(ctx, reason)
	if ctx.Err() != nil && err == ctx.Err() {
		return err
	}
	w := s.w
	s.w = nil
	s.err = err
	s.pending = nil
	w.ReleaseLock()
	return err
}

// reap surfaces rejections from sends that already settled.
func (s *Sink) reap() error {
	for len(s.pending) > 0 {
		p := s.pending[0]
		if !p.Settled() {
			return nil
		}
		if _, err := p.Await(context.Background()); err != nil {
			return s.fail(err)
		}
		s.pending = s.pending[1:]
	}
	return nil
}

func (s *Sink) fail(err error) error {
	w := s.w
	s.w = nil
	s.err = err
	s.pending = nil
	if w != nil {
		w.ReleaseLock()
	}
	return err
}

func (s *Sink) finished(op string) error {
	return &streamerrors.Error{Kind: streamerrors.KindExhausted, Op: op, Cause: s.err}
}
