package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	streamerrors "github.com/wippyai/webstreams/errors"
	"github.com/wippyai/webstreams/host"
)

// byteReadable is a byte-oriented readable stream. It keeps no internal
// byte queue: every read stages a buffer request and the source fills
// the request's view directly.
type byteReadable struct {
	eng          *Engine
	id           uint64
	src          host.UnderlyingByteSource
	autoAllocate int

	mu            sync.Mutex
	state         int
	failure       error
	pulling       bool
	pullAgain     bool
	locked        bool
	requests      []*byobRequest // unanswered requests, oldest first
	closedWaiters []*host.Promise
}

// byobRequest is one staged read. defaultRead requests settle with a
// host.ReadResult carrying the filled view as the chunk; the rest settle
// with a host.BYOBReadResult.
type byobRequest struct {
	view        *host.BufferView
	promise     *host.Promise
	defaultRead bool
	settled     bool
	closedOut   bool // settled by stream close; Respond(0) is still accepted
}

func newByteReadable(e *Engine, src host.UnderlyingByteSource) *byteReadable {
	return &byteReadable{
		eng:          e,
		id:           e.newStreamID(),
		src:          src,
		autoAllocate: src.AutoAllocateChunkSize(),
	}
}

func (s *byteReadable) start() {
	if err := s.src.Start(&byteController{s}); err != nil {
		s.mu.Lock()
		s.errorLocked(hostErr("start", err))
		s.mu.Unlock()
	}
}

func (s *byteReadable) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

func (s *byteReadable) Cancel(reason any) *host.Promise {
	s.mu.Lock()
	if s.locked {
		s.mu.Unlock()
		return host.Rejected(streamerrors.Locked("cancel"))
	}
	s.mu.Unlock()
	return s.cancel(reason)
}

func (s *byteReadable) GetReader() (host.DefaultReader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return nil, streamerrors.Locked("get_reader")
	}
	s.locked = true
	return &byteDefaultReader{s: s}, nil
}

func (s *byteReadable) GetBYOBReader() (host.BYOBReader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return nil, streamerrors.Locked("get_byob_reader")
	}
	s.locked = true
	return &byobReader{s: s}, nil
}

func (s *byteReadable) Tee() (host.ReadableStream, host.ReadableStream, error) {
	return teeStream(s.eng, s)
}

func (s *byteReadable) PipeTo(dst host.WritableStream, opts host.PipeOptions) *host.Promise {
	return pipeTo(s, dst, opts)
}

func (s *byteReadable) cancel(reason any) *host.Promise {
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
	s.state = stateClosed
	// Discarded reads do not get their staging buffers back.
	for _, req := range s.requests {
		req.settled = true
		if req.defaultRead {
			req.promise.Resolve(host.ReadResult{Done: true})
		} else {
			req.promise.Resolve(host.BYOBReadResult{})
		}
	}
	s.requests = nil
	for _, p := range s.closedWaiters {
		p.Resolve(nil)
	}
	s.closedWaiters = nil
	s.mu.Unlock()

	log().Debug("byte readable stream canceled", zap.Uint64("stream", s.id))
	p := s.src.Cancel(reason)
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

func (s *byteReadable) maybePull() {
	for {
		s.mu.Lock()
		if s.state != stateReadable || len(s.requests) == 0 {
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

		p := s.src.Pull(&byteController{s})
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

func (s *byteReadable) finishPull(err error) {
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

func (s *byteReadable) errorLocked(failure error) {
	if s.state != stateReadable {
		return
	}
	s.state = stateErrored
	s.failure = failure
	for _, req := range s.requests {
		req.settled = true
		req.promise.Reject(failure)
	}
	s.requests = nil
	for _, p := range s.closedWaiters {
		p.Reject(failure)
	}
	s.closedWaiters = nil
	log().Debug("byte readable stream errored",
		zap.Uint64("stream", s.id), zap.Error(failure))
}

// closeLocked settles every staged request with an end-of-stream result
// carrying a zero-length view, so callers get their buffers back.
func (s *byteReadable) closeLocked() {
	if s.state != stateReadable {
		return
	}
	s.state = stateClosed
	for _, req := range s.requests {
		req.settled = true
		req.closedOut = true
		if req.defaultRead {
			req.promise.Resolve(host.ReadResult{Done: true})
		} else {
			req.promise.Resolve(host.BYOBReadResult{View: req.view.Subarray(0, 0), Done: true})
		}
	}
	s.requests = nil
	for _, p := range s.closedWaiters {
		p.Resolve(nil)
	}
	s.closedWaiters = nil
}

// stageRead appends a request and kicks the pull loop.
func (s *byteReadable) stageRead(view *host.BufferView, defaultRead bool) *host.Promise {
	p := host.NewPromise()
	req := &byobRequest{view: view, promise: p, defaultRead: defaultRead}
	s.mu.Lock()
	switch s.state {
	case stateErrored:
		failure := s.failure
		s.mu.Unlock()
		return host.Rejected(failure)
	case stateClosed:
		s.mu.Unlock()
		if defaultRead {
			return host.Resolved(host.ReadResult{Done: true})
		}
		return host.Resolved(host.BYOBReadResult{View: view.Subarray(0, 0), Done: true})
	}
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	s.maybePull()
	return p
}

func (s *byteReadable) respond(req *byobRequest, result *host.BufferView) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.closedOut {
		if result.ByteLength() != 0 {
			return streamerrors.Exhausted("respond")
		}
		return nil
	}
	if req.settled {
		return streamerrors.Host("respond", "request already responded to")
	}
	if s.state == stateErrored {
		return s.failure
	}
	req.settled = true
	for i, queued := range s.requests {
		if queued == req {
			s.requests = append(s.requests[:i], s.requests[i+1:]...)
			break
		}
	}
	if req.defaultRead {
		req.promise.Resolve(host.ReadResult{Value: result})
	} else {
		req.promise.Resolve(host.BYOBReadResult{View: result})
	}
	return nil
}

// byteController is the host.ByteController handed to byte sources.
type byteController struct {
	s *byteReadable
}

func (c *byteController) BYOBRequest() host.BYOBRequest {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return &byobRequestHandle{s: s, req: s.requests[0]}
}

func (c *byteController) Close() error {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateErrored {
		return s.failure
	}
	if s.state == stateClosed {
		return streamerrors.Exhausted("close")
	}
	s.closeLocked()
	return nil
}

func (c *byteController) Error(reason any) {
	s := c.s
	s.mu.Lock()
	s.errorLocked(hostErr("stream", reason))
	s.mu.Unlock()
}

// byobRequestHandle is the host.BYOBRequest surface over one staged read.
type byobRequestHandle struct {
	s   *byteReadable
	req *byobRequest
}

func (h *byobRequestHandle) View() *host.BufferView {
	return h.req.view
}

func (h *byobRequestHandle) Respond(n int) error {
	if n < 0 || n > h.req.view.ByteLength() {
		return streamerrors.Host("respond", "response length out of view bounds")
	}
	return h.s.respond(h.req, h.req.view.Subarray(0, n))
}

func (h *byobRequestHandle) RespondWithNewView(view *host.BufferView) error {
	if view.ByteLength() > h.req.view.ByteLength() {
		return streamerrors.Host("respond_with_new_view", "replacement view exceeds request size")
	}
	return h.s.respond(h.req, view)
}

// byteDefaultReader is a value lease on a byte stream; each read stages
// an auto-allocated buffer and yields the filled view as the chunk.
type byteDefaultReader struct {
	s        *byteReadable
	released bool // guarded by s.mu
}

func (r *byteDefaultReader) Read() *host.Promise {
	s := r.s
	s.mu.Lock()
	if r.released {
		s.mu.Unlock()
		return host.Rejected(errReleased("read"))
	}
	s.mu.Unlock()
	return s.stageRead(host.NewBufferView(s.autoAllocate), true)
}

func (r *byteDefaultReader) Cancel(reason any) *host.Promise {
	return byteLeaseCancel(r.s, &r.released, reason)
}

func (r *byteDefaultReader) Closed() *host.Promise {
	return byteLeaseClosed(r.s, &r.released)
}

func (r *byteDefaultReader) ReleaseLock() error {
	return byteLeaseRelease(r.s, &r.released)
}

// byobReader is the buffer-providing lease on a byte stream.
type byobReader struct {
	s        *byteReadable
	released bool // guarded by s.mu
}

func (r *byobReader) Read(view *host.BufferView) *host.Promise {
	s := r.s
	s.mu.Lock()
	if r.released {
		s.mu.Unlock()
		return host.Rejected(errReleased("read"))
	}
	if view.Detached() {
		s.mu.Unlock()
		return host.Rejected(streamerrors.Host("read", "view buffer is detached"))
	}
	s.mu.Unlock()
	// The caller's buffer is transferred in; only the view in the read
	// result refers to live memory from here on.
	staged := host.ViewOf(view.Buffer().Transfer(), view.ByteOffset(), view.ByteLength())
	return s.stageRead(staged, false)
}

func (r *byobReader) Cancel(reason any) *host.Promise {
	return byteLeaseCancel(r.s, &r.released, reason)
}

func (r *byobReader) Closed() *host.Promise {
	return byteLeaseClosed(r.s, &r.released)
}

func (r *byobReader) ReleaseLock() error {
	return byteLeaseRelease(r.s, &r.released)
}

func byteLeaseCancel(s *byteReadable, released *bool, reason any) *host.Promise {
	s.mu.Lock()
	if *released {
		s.mu.Unlock()
		return host.Rejected(errReleased("cancel"))
	}
	s.mu.Unlock()
	return s.cancel(reason)
}

func byteLeaseClosed(s *byteReadable, released *bool) *host.Promise {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *released {
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

func byteLeaseRelease(s *byteReadable, released *bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *released {
		return nil
	}
	if len(s.requests) > 0 && !s.eng.releasePending {
		return streamerrors.Unsupported("release_lock", "releasing a reader with pending reads")
	}
	for _, req := range s.requests {
		req.settled = true
		req.promise.Reject(errReleased("read"))
	}
	s.requests = nil
	for _, p := range s.closedWaiters {
		p.Reject(errReleased("closed"))
	}
	s.closedWaiters = nil
	*released = true
	s.locked = false
	return nil
}
