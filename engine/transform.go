package engine

import (
	"context"

	streamerrors "github.com/wippyai/webstreams/errors"
	"github.com/wippyai/webstreams/host"
)

// transform pairs a push-fed readable with a writable whose sink runs
// the transformer hook. Errors on either side propagate to the other.
type transform struct {
	r *readable
	w *writable
}

func newTransform(e *Engine, t host.Transformer, writableStrategy, readableStrategy host.QueuingStrategy) (host.TransformStream, error) {
	r := newReadable(e, nil, readableStrategy)
	sink := &transformSink{t: t, r: r}
	w := newWritable(e, sink, writableStrategy)
	ctrl := &transformController{r: r, w: w}
	sink.ctrl = ctrl
	if t != nil {
		if err := t.Start(ctrl); err != nil {
			ctrl.Error(err)
		}
	}
	return &transform{r: r, w: w}, nil
}

func (t *transform) Readable() host.ReadableStream { return t.r }
func (t *transform) Writable() host.WritableStream { return t.w }

type transformController struct {
	r *readable
	w *writable
}

func (c *transformController) Enqueue(chunk any) error {
	r := c.r
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case stateErrored:
		return r.failure
	case stateClosed:
		return streamerrors.Exhausted("enqueue")
	}
	r.enqueueLocked(chunk)
	return nil
}

func (c *transformController) Error(reason any) {
	failure := hostErr("transform", reason)
	c.r.mu.Lock()
	c.r.errorLocked(failure)
	c.r.mu.Unlock()
	c.w.mu.Lock()
	c.w.errorLocked(failure)
	c.w.mu.Unlock()
}

func (c *transformController) Terminate() {
	c.r.mu.Lock()
	c.r.closeLocked()
	c.r.mu.Unlock()
	c.w.mu.Lock()
	c.w.errorLocked(streamerrors.Exhausted("transform"))
	c.w.mu.Unlock()
}

// transformSink feeds written chunks through the transformer hook into
// the readable side. A nil transformer passes chunks through unchanged.
type transformSink struct {
	t    host.Transformer
	r    *readable
	ctrl *transformController
}

func (s *transformSink) Write(chunk any, _ host.SinkController) *host.Promise {
	if s.t == nil {
		if err := s.ctrl.Enqueue(chunk); err != nil {
			return host.Rejected(err)
		}
		return nil
	}
	p := s.t.Transform(chunk, s.ctrl)
	if p == nil {
		return nil
	}
	out := host.NewPromise()
	go func() {
		if _, err := p.Await(context.Background()); err != nil {
			s.errorReadable(err)
			out.Reject(err)
			return
		}
		out.Resolve(nil)
	}()
	return out
}

func (s *transformSink) Close() *host.Promise {
	if s.t == nil {
		s.closeReadable()
		return nil
	}
	p := s.t.Flush(s.ctrl)
	if p == nil {
		s.closeReadable()
		return nil
	}
	out := host.NewPromise()
	go func() {
		if _, err := p.Await(context.Background()); err != nil {
			s.errorReadable(err)
			out.Reject(err)
			return
		}
		s.closeReadable()
		out.Resolve(nil)
	}()
	return out
}

func (s *transformSink) Abort(reason any) *host.Promise {
	s.errorReadable(hostErr("abort", reason))
	return nil
}

func (s *transformSink) closeReadable() {
	s.r.mu.Lock()
	s.r.closeLocked()
	s.r.mu.Unlock()
}

func (s *transformSink) errorReadable(failure error) {
	s.r.mu.Lock()
	s.r.errorLocked(failure)
	s.r.mu.Unlock()
}
