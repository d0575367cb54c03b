package readable

import (
	"iter"
	"sync"
	"sync/atomic"

	streamerrors "github.com/wippyai/webstreams/errors"
	"github.com/wippyai/webstreams/host"
)

// seqSource feeds a host readable stream from an iter.Seq2. The host
// serializes pulls; the mutex detects contract violations instead of
// queueing them. The iterator function is taken out of the struct
// before each call, so a panic inside user code leaves the source
// finished rather than half-advanced.
type seqSource struct {
	mu       sync.Mutex
	next     func() (any, error, bool)
	stop     func()
	canceled atomic.Bool
}

func newSeqSource(seq iter.Seq2[any, error]) *seqSource {
	next, stop := iter.Pull2(seq)
	return &seqSource{next: next, stop: stop}
}

func (s *seqSource) Start(host.DefaultController) error {
	return nil
}

func (s *seqSource) Pull(ctrl host.DefaultController) *host.Promise {
	if !s.mu.TryLock() {
		return host.Rejected(streamerrors.Overlap("pull"))
	}
	p := host.NewPromise()
	go func() {
		// Settlement is the host's cue to issue the next pull, so the
		// promise settles only after the lock is released.
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
				s.next = nil
				failure = streamerrors.Fault("pull", r)
			}
		}()
		next := s.next
		if next == nil {
			_ = ctrl.Close()
			return
		}
		s.next = nil
		v, err, ok := next()
		if s.canceled.Load() {
			s.stop()
			return
		}
		if !ok {
			s.stop()
			_ = ctrl.Close()
			return
		}
		if err != nil {
			s.stop()
			ctrl.Error(err)
			failure = err
			return
		}
		s.next = next
		_ = ctrl.Enqueue(v)
	}()
	return p
}

// Cancel stops the iterator. A pull blocked inside user code cannot be
// interrupted; it observes the cancellation when it returns.
func (s *seqSource) Cancel(any) *host.Promise {
	s.canceled.Store(true)
	if s.mu.TryLock() {
		defer s.mu.Unlock()
		if s.next != nil {
			s.next = nil
			s.stop()
		}
	}
	return nil
}
