package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	streamerrors "github.com/wippyai/webstreams/errors"
	"github.com/wippyai/webstreams/host"
)

const (
	wstateWritable = iota
	wstateClosed
	wstateErrored
)

type writeRecord struct {
	chunk   any
	promise *host.Promise
}

type abortRecord struct {
	reason any
	done   *host.Promise
}

// writable drains accepted chunks into its underlying sink one at a
// time. Sink invocations are serialized: Abort waits for an in-flight
// write or close to settle before it reaches the sink.
type writable struct {
	eng  *Engine
	id   uint64
	sink host.UnderlyingSink
	hwm  float64

	mu             sync.Mutex
	state          int
	failure        error
	queue          []*writeRecord
	inFlight       *writeRecord
	closeRequested bool
	closing        bool
	closePromise   *host.Promise
	pendingAbort   *abortRecord
	writer         *defaultWriter
	readyWaiters   []*host.Promise
	closedWaiters  []*host.Promise
}

func newWritable(e *Engine, sink host.UnderlyingSink, strategy host.QueuingStrategy) *writable {
	return &writable{
		eng:  e,
		id:   e.newStreamID(),
		sink: sink,
		hwm:  strategy.HighWaterMark,
	}
}

func (s *writable) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer != nil
}

func (s *writable) Abort(reason any) *host.Promise {
	s.mu.Lock()
	if s.writer != nil {
		s.mu.Unlock()
		return host.Rejected(streamerrors.Locked("abort"))
	}
	s.mu.Unlock()
	return s.abort(reason)
}

func (s *writable) GetWriter() (host.DefaultWriter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer != nil {
		return nil, streamerrors.Locked("get_writer")
	}
	w := &defaultWriter{s: s}
	s.writer = w
	return w, nil
}

func (s *writable) queueSizeLocked() float64 {
	n := len(s.queue)
	if s.inFlight != nil {
		n++
	}
	return float64(n)
}

func (s *writable) desiredSizeLocked() float64 {
	return s.hwm - s.queueSizeLocked()
}

// advance moves queued chunks into the sink, one in flight at a time,
// and runs the close behavior once the queue drains.
func (s *writable) advance() {
	for {
		s.mu.Lock()
		if s.state != wstateWritable || s.inFlight != nil || s.closing {
			s.mu.Unlock()
			return
		}
		if len(s.queue) == 0 {
			if !s.closeRequested {
				s.mu.Unlock()
				return
			}
			s.closing = true
			s.mu.Unlock()
			p := s.sink.Close()
			if p == nil {
				s.finishClose(nil)
				return
			}
			go func() {
				_, err := p.Await(context.Background())
				s.finishClose(err)
			}()
			return
		}
		rec := s.queue[0]
		s.queue = s.queue[1:]
		s.inFlight = rec
		s.mu.Unlock()

		p := s.sink.Write(rec.chunk, &sinkController{s})
		if p == nil {
			s.completeWrite(rec, nil)
			continue
		}
		go func() {
			_, err := p.Await(context.Background())
			s.completeWrite(rec, err)
			s.advance()
		}()
		return
	}
}

func (s *writable) completeWrite(rec *writeRecord, err error) {
	s.mu.Lock()
	s.inFlight = nil
	if err != nil {
		rec.promise.Reject(err)
		s.errorLocked(err)
	} else {
		rec.promise.Resolve(nil)
		if s.state == wstateWritable && s.desiredSizeLocked() > 0 {
			for _, p := range s.readyWaiters {
				p.Resolve(nil)
			}
			s.readyWaiters = nil
		}
	}
	abort := s.takeAbortLocked()
	s.mu.Unlock()
	if abort != nil {
		s.runAbort(abort)
	}
}

func (s *writable) finishClose(err error) {
	s.mu.Lock()
	s.closing = false
	if s.state != wstateWritable {
		abort := s.takeAbortLocked()
		s.mu.Unlock()
		if abort != nil {
			s.runAbort(abort)
		}
		return
	}
	if err != nil {
		s.errorLocked(err)
		abort := s.takeAbortLocked()
		s.mu.Unlock()
		if abort != nil {
			s.runAbort(abort)
		}
		return
	}
	s.state = wstateClosed
	if s.closePromise != nil {
		s.closePromise.Resolve(nil)
	}
	for _, p := range s.closedWaiters {
		p.Resolve(nil)
	}
	s.closedWaiters = nil
	for _, p := range s.readyWaiters {
		p.Resolve(nil)
	}
	s.readyWaiters = nil
	s.mu.Unlock()
	log().Debug("writable stream closed", zap.Uint64("stream", s.id))
}

func (s *writable) errorLocked(failure error) {
	if s.state != wstateWritable {
		return
	}
	s.state = wstateErrored
	s.failure = failure
	for _, rec := range s.queue {
		rec.promise.Reject(failure)
	}
	s.queue = nil
	if s.closePromise != nil && !s.closePromise.Settled() {
		s.closePromise.Reject(failure)
	}
	for _, p := range s.readyWaiters {
		p.Reject(failure)
	}
	s.readyWaiters = nil
	for _, p := range s.closedWaiters {
		p.Reject(failure)
	}
	s.closedWaiters = nil
	log().Debug("writable stream errored",
		zap.Uint64("stream", s.id), zap.Error(failure))
}

func (s *writable) takeAbortLocked() *abortRecord {
	if s.pendingAbort == nil || s.inFlight != nil || s.closing {
		return nil
	}
	abort := s.pendingAbort
	s.pendingAbort = nil
	return abort
}

func (s *writable) runAbort(abort *abortRecord) {
	p := s.sink.Abort(abort.reason)
	if p == nil {
		abort.done.Resolve(nil)
		return
	}
	go func() {
		if _, err := p.Await(context.Background()); err != nil {
			abort.done.Reject(err)
			return
		}
		abort.done.Resolve(nil)
	}()
}

func (s *writable) abort(reason any) *host.Promise {
	s.mu.Lock()
	if s.state != wstateWritable {
		s.mu.Unlock()
		return host.Resolved(nil)
	}
	s.errorLocked(hostErr("abort", reason))
	done := host.NewPromise()
	s.pendingAbort = &abortRecord{reason: reason, done: done}
	abort := s.takeAbortLocked()
	s.mu.Unlock()
	if abort != nil {
		s.runAbort(abort)
	}
	return done
}

func (s *writable) write(chunk any) *host.Promise {
	s.mu.Lock()
	switch s.state {
	case wstateErrored:
		failure := s.failure
		s.mu.Unlock()
		return host.Rejected(failure)
	case wstateClosed:
		s.mu.Unlock()
		return host.Rejected(streamerrors.Exhausted("write"))
	}
	if s.closeRequested {
		s.mu.Unlock()
		return host.Rejected(streamerrors.Exhausted("write"))
	}
	rec := &writeRecord{chunk: chunk, promise: host.NewPromise()}
	s.queue = append(s.queue, rec)
	s.mu.Unlock()
	s.advance()
	return rec.promise
}

func (s *writable) close() *host.Promise {
	s.mu.Lock()
	switch s.state {
	case wstateErrored:
		failure := s.failure
		s.mu.Unlock()
		return host.Rejected(failure)
	case wstateClosed:
		s.mu.Unlock()
		return host.Rejected(streamerrors.Exhausted("close"))
	}
	if s.closeRequested {
		s.mu.Unlock()
		return host.Rejected(streamerrors.Exhausted("close"))
	}
	s.closeRequested = true
	s.closePromise = host.NewPromise()
	p := s.closePromise
	s.mu.Unlock()
	s.advance()
	return p
}

// sinkController lets a sink error the stream outside a write call.
type sinkController struct {
	s *writable
}

func (c *sinkController) Error(reason any) {
	s := c.s
	s.mu.Lock()
	s.errorLocked(hostErr("stream", reason))
	s.mu.Unlock()
}

// defaultWriter is the exclusive writing lease on a writable.
type defaultWriter struct {
	s        *writable
	released bool // guarded by s.mu
}

func (w *defaultWriter) Write(chunk any) *host.Promise {
	s := w.s
	s.mu.Lock()
	if w.released {
		s.mu.Unlock()
		return host.Rejected(errReleased("write"))
	}
	s.mu.Unlock()
	return s.write(chunk)
}

func (w *defaultWriter) Ready() *host.Promise {
	s := w.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.released {
		return host.Rejected(errReleased("ready"))
	}
	switch s.state {
	case wstateErrored:
		return host.Rejected(s.failure)
	case wstateClosed:
		return host.Resolved(nil)
	}
	if s.desiredSizeLocked() > 0 {
		return host.Resolved(nil)
	}
	p := host.NewPromise()
	s.readyWaiters = append(s.readyWaiters, p)
	return p
}

func (w *defaultWriter) Closed() *host.Promise {
	s := w.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.released {
		return host.Rejected(errReleased("closed"))
	}
	switch s.state {
	case wstateErrored:
		return host.Rejected(s.failure)
	case wstateClosed:
		return host.Resolved(nil)
	}
	p := host.NewPromise()
	s.closedWaiters = append(s.closedWaiters, p)
	return p
}

func (w *defaultWriter) Close() *host.Promise {
	s := w.s
	s.mu.Lock()
	if w.released {
		s.mu.Unlock()
		return host.Rejected(errReleased("close"))
	}
	s.mu.Unlock()
	return s.close()
}

func (w *defaultWriter) Abort(reason any) *host.Promise {
	s := w.s
	s.mu.Lock()
	if w.released {
		s.mu.Unlock()
		return host.Rejected(errReleased("abort"))
	}
	s.mu.Unlock()
	return s.abort(reason)
}

func (w *defaultWriter) DesiredSize() (float64, bool) {
	s := w.s
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case wstateErrored:
		return 0, false
	case wstateClosed:
		return 0, true
	}
	return s.desiredSizeLocked(), true
}

func (w *defaultWriter) ReleaseLock() {
	s := w.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.released {
		return
	}
	for _, p := range s.readyWaiters {
		p.Reject(errReleased("ready"))
	}
	s.readyWaiters = nil
	for _, p := range s.closedWaiters {
		p.Reject(errReleased("closed"))
	}
	s.closedWaiters = nil
	w.released = true
	s.writer = nil
}
