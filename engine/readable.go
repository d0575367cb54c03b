package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	streamerrors "github.com/wippyai/webstreams/errors"
	"github.com/wippyai/webstreams/host"
)

const (
	stateReadable = iota
	stateClosed
	stateErrored
)

// readable is a value-oriented readable stream. A nil src makes the
// stream push-only; chunks then arrive through enqueueLocked (transform
// readable sides and tee branches use real sources instead).
type readable struct {
	eng *Engine
	id  uint64
	src host.UnderlyingSource
	hwm float64

	mu             sync.Mutex
	state          int
	failure        error
	queue          []any
	closeRequested bool
	pulling        bool
	pullAgain      bool
	reader         *defaultReader
	pending        []*host.Promise // unsettled read requests, oldest first
	closedWaiters  []*host.Promise
}

func newReadable(e *Engine, src host.UnderlyingSource, strategy host.QueuingStrategy) *readable {
	return &readable{
		eng: e,
		id:  e.newStreamID(),
		src: src,
		hwm: strategy.HighWaterMark,
	}
}

func (s *readable) start() {
	if s.src == nil {
		return
	}
	if err := s.src.Start(&defaultController{s}); err != nil {
		s.mu.Lock()
		s.errorLocked(hostErr("start", err))
		s.mu.Unlock()
		return
	}
	s.maybePull()
}

func (s *readable) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader != nil
}

func (s *readable) Cancel(reason any) *host.Promise {
	s.mu.Lock()
	if s.reader != nil {
		s.mu.Unlock()
		return host.Rejected(streamerrors.Locked("cancel"))
	}
	s.mu.Unlock()
	return s.cancel(reason)
}

func (s *readable) GetReader() (host.DefaultReader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reader != nil {
		return nil, streamerrors.Locked("get_reader")
	}
	r := &defaultReader{s: s}
	s.reader = r
	return r, nil
}

func (s *readable) GetBYOBReader() (host.BYOBReader, error) {
	return nil, streamerrors.Unsupported("get_byob_reader", "byte reads on a value stream")
}

func (s *readable) Tee() (host.ReadableStream, host.ReadableStream, error) {
	return teeStream(s.eng, s)
}

func (s *readable) PipeTo(dst host.WritableStream, opts host.PipeOptions) *host.Promise {
	return pipeTo(s, dst, opts)
}

// cancel discards the queue, closes the stream and forwards reason to
// the underlying source.
func (s *readable) cancel(reason any) *host.Promise {
	s.mu.Lock()
	switch s.state {
	case stateErrored:
		failure := s.failure
		s.mu.Unlock()
		return host.Rejected(failure)
	case stateClosed:
		s.mu.Unlock()
		return host.Resolved(nil)
	}
	s.queue = nil
	s.closeLocked()
	src := s.src
	s.mu.Unlock()

	log().Debug("readable stream canceled", zap.Uint64("stream", s.id))
	if src == nil {
		return host.Resolved(nil)
	}
	p := src.Cancel(reason)
	if p == nil {
		return host.Resolved(nil)
	}
	done := host.NewPromise()
	go func() {
		if _, err := p.Await(context.Background()); err != nil {
			done.Reject(err)
			return
		}
		done.Resolve(nil)
	}()
	return done
}

// maybePull invokes the source's pull algorithm while the stream wants
// data. At most one pull is in flight; requests arriving meanwhile
// collapse into a single follow-up pull.
func (s *readable) maybePull() {
	for {
		s.mu.Lock()
		if s.src == nil || s.state != stateReadable || s.closeRequested || !s.shouldPullLocked() {
			s.mu.Unlock()
			return
		}
		if s.pulling {
			s.pullAgain = true
			s.mu.Unlock()
			return
		}
		s.pulling = true
		s.mu.Unlock()

		p := s.src.Pull(&defaultController{s})
		if p != nil {
			go func() {
				_, err := p.Await(context.Background())
				s.finishPull(err)
			}()
			return
		}
		s.mu.Lock()
		s.pulling = false
		again := s.pullAgain
		s.pullAgain = false
		s.mu.Unlock()
		if !again {
			return
		}
	}
}

func (s *readable) finishPull(err error) {
	s.mu.Lock()
	s.pulling = false
	again := s.pullAgain
	s.pullAgain = false
	s.mu.Unlock()
	if err != nil {
		s.mu.Lock()
		s.errorLocked(err)
		s.mu.Unlock()
		return
	}
	if again {
		s.maybePull()
	}
}

func (s *readable) shouldPullLocked() bool {
	return len(s.pending) > 0 || float64(len(s.queue)) < s.hwm
}

// enqueueLocked hands chunk to the oldest pending read, or queues it.
func (s *readable) enqueueLocked(chunk any) {
	if len(s.pending) > 0 {
		p := s.pending[0]
		s.pending = s.pending[1:]
		p.Resolve(host.ReadResult{Value: chunk})
		return
	}
	s.queue = append(s.queue, chunk)
}

func (s *readable) closeLocked() {
	if s.state != stateReadable {
		return
	}
	s.state = stateClosed
	for _, p := range s.pending {
		p.Resolve(host.ReadResult{Done: true})
	}
	s.pending = nil
	for _, p := range s.closedWaiters {
		p.Resolve(nil)
	}
	s.closedWaiters = nil
}

func (s *readable) errorLocked(failure error) {
	if s.state != stateReadable {
		return
	}
	s.state = stateErrored
	s.failure = failure
	s.queue = nil
	for _, p := range s.pending {
		p.Reject(failure)
	}
	s.pending = nil
	for _, p := range s.closedWaiters {
		p.Reject(failure)
	}
	s.closedWaiters = nil
	log().Debug("readable stream errored",
		zap.Uint64("stream", s.id), zap.Error(failure))
}

// defaultController is the host.DefaultController handed to underlying
// sources of this stream.
type defaultController struct {
	s *readable
}

func (c *defaultController) Enqueue(chunk any) error {
	s := c.s
	s.mu.Lock()
	if s.state == stateErrored {
		failure := s.failure
		s.mu.Unlock()
		return failure
	}
	if s.state == stateClosed || s.closeRequested {
		s.mu.Unlock()
		return streamerrors.Exhausted("enqueue")
	}
	s.enqueueLocked(chunk)
	s.mu.Unlock()
	s.maybePull()
	return nil
}

func (c *defaultController) Close() error {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateErrored {
		return s.failure
	}
	if s.state == stateClosed || s.closeRequested {
		return streamerrors.Exhausted("close")
	}
	s.closeRequested = true
	if len(s.queue) == 0 {
		s.closeLocked()
	}
	return nil
}

func (c *defaultController) Error(reason any) {
	s := c.s
	s.mu.Lock()
	s.errorLocked(hostErr("stream", reason))
	s.mu.Unlock()
}

func (c *defaultController) DesiredSize() (float64, bool) {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateErrored:
		return 0, false
	case stateClosed:
		return 0, true
	}
	return s.hwm - float64(len(s.queue)), true
}

// defaultReader is the exclusive value-reading lease on a readable.
type defaultReader struct {
	s        *readable
	released bool // guarded by s.mu
}

func (r *defaultReader) Read() *host.Promise {
	s := r.s
	s.mu.Lock()
	if r.released {
		s.mu.Unlock()
		return host.Rejected(errReleased("read"))
	}
	if len(s.queue) > 0 {
		chunk := s.queue[0]
		s.queue = s.queue[1:]
		if len(s.queue) == 0 && s.closeRequested {
			s.closeLocked()
		}
		s.mu.Unlock()
		s.maybePull()
		return host.Resolved(host.ReadResult{Value: chunk})
	}
	switch s.state {
	case stateClosed:
		s.mu.Unlock()
		return host.Resolved(host.ReadResult{Done: true})
	case stateErrored:
		failure := s.failure
		s.mu.Unlock()
		return host.Rejected(failure)
	}
	p := host.NewPromise()
	s.pending = append(s.pending, p)
	s.mu.Unlock()
	s.maybePull()
	return p
}

func (r *defaultReader) Cancel(reason any) *host.Promise {
	s := r.s
	s.mu.Lock()
	if r.released {
		s.mu.Unlock()
		return host.Rejected(errReleased("cancel"))
	}
	s.mu.Unlock()
	return s.cancel(reason)
}

func (r *defaultReader) Closed() *host.Promise {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.released {
		return host.Rejected(errReleased("closed"))
	}
	switch s.state {
	case stateClosed:
		return host.Resolved(nil)
	case stateErrored:
		return host.Rejected(s.failure)
	}
	p := host.NewPromise()
	s.closedWaiters = append(s.closedWaiters, p)
	return p
}

func (r *defaultReader) ReleaseLock() error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.released {
		return nil
	}
	if len(s.pending) > 0 && !s.eng.releasePending {
		return streamerrors.Unsupported("release_lock", "releasing a reader with pending reads")
	}
	for _, p := range s.pending {
		p.Reject(errReleased("read"))
	}
	s.pending = nil
	for _, p := range s.closedWaiters {
		p.Reject(errReleased("closed"))
	}
	s.closedWaiters = nil
	r.released = true
	s.reader = nil
	return nil
}
