package engine

import (
	"iter"
	"sync"

	"github.com/wippyai/webstreams/host"
)

// iterableSource adapts an iter.Seq2 into an underlying source, one
// element per pull. A canceled stream stops the iterator early.
type iterableSource struct {
	mu   sync.Mutex
	next func() (any, error, bool)
	stop func()
}

func newIterableSource(seq iter.Seq2[any, error]) *iterableSource {
	next, stop := iter.Pull2(seq)
	return &iterableSource{next: next, stop: stop}
}

func (s *iterableSource) Start(host.DefaultController) error {
	return nil
}

func (s *iterableSource) Pull(ctrl host.DefaultController) *host.Promise {
	s.mu.Lock()
	v, err, ok := s.next()
	s.mu.Unlock()
	if !ok {
		_ = ctrl.Close()
		return nil
	}
	if err != nil {
		s.mu.Lock()
		s.stop()
		s.mu.Unlock()
		ctrl.Error(err)
		return nil
	}
	_ = ctrl.Enqueue(v)
	return nil
}

func (s *iterableSource) Cancel(any) *host.Promise {
	s.mu.Lock()
	s.stop()
	s.mu.Unlock()
	return nil
}
