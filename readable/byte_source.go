package readable

import (
	"io"
	"sync"
	"sync/atomic"

	streamerrors "github.com/wippyai/webstreams/errors"
	"github.com/wippyai/webstreams/host"
)

// DefaultBufLen is the buffer size allocated for default reads on
// streams built with FromReader.
const DefaultBufLen = 4096

// readerSource feeds a host byte stream from an io.Reader, reading
// straight into the host's staged request views. The reader is taken
// out of the struct before each call, so a panic inside it leaves the
// source finished.
type readerSource struct {
	mu       sync.Mutex
	r        io.Reader
	bufLen   int
	canceled atomic.Bool
}

func newReaderSource(r io.Reader, bufLen int) *readerSource {
	return &readerSource{r: r, bufLen: bufLen}
}

func (s *readerSource) AutoAllocateChunkSize() int {
	return s.bufLen
}

func (s *readerSource) Start(host.ByteController) error {
	return nil
}

func (s *readerSource) Pull(ctrl host.ByteController) *host.Promise {
	if !s.mu.TryLock() {
		return host.Rejected(streamerrors.Overlap("pull"))
	}
	p := host.NewPromise()
	go func() {
		// Settles only after the lock is released; settlement lets the
		// host issue the next pull.
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
				s.r = nil
				failure = streamerrors.Fault("pull", r)
			}
		}()
		req := ctrl.BYOBRequest()
		if req == nil {
			return
		}
		rd := s.r
		if rd == nil {
			_ = ctrl.Close()
			_ = req.Respond(0)
			return
		}
		s.r = nil
		dst := req.View().Bytes()
		var n int
		var err error
		for {
			n, err = rd.Read(dst)
			if n > 0 || err != nil {
				break
			}
		}
		if s.canceled.Load() {
			closeReader(rd)
			return
		}
		switch {
		case n > 0:
			_ = req.Respond(n)
			switch {
			case err == io.EOF:
				_ = ctrl.Close()
				closeReader(rd)
			case err != nil:
				ctrl.Error(err)
				failure = err
			default:
				s.r = rd
			}
		case err == io.EOF:
			_ = ctrl.Close()
			_ = req.Respond(0)
			closeReader(rd)
		default:
			ctrl.Error(err)
			failure = err
		}
	}()
	return p
}

// Cancel drops the reader, closing it when it is an io.Closer. A pull
// blocked inside the reader observes the cancellation when it returns.
func (s *readerSource) Cancel(any) *host.Promise {
	s.canceled.Store(true)
	if s.mu.TryLock() {
		defer s.mu.Unlock()
		if s.r != nil {
			closeReader(s.r)
			s.r = nil
		}
	}
	return nil
}

func closeReader(r io.Reader) {
	if c, ok := r.(io.Closer); ok {
		_ = c.Close()
	}
}
