package engine

import (
	"context"
	"sync"

	"github.com/wippyai/webstreams/host"
)

// teeStream locks src and splits it into two branches. Both branches
// observe the same chunk values. The underlying stream is canceled only
// once both branches have been canceled, with both reasons combined.
func teeStream(e *Engine, src host.ReadableStream) (host.ReadableStream, host.ReadableStream, error) {
	reader, err := src.GetReader()
	if err != nil {
		return nil, nil, err
	}
	t := &teeState{reader: reader}
	r1, err := e.NewReadable(&teeBranchSource{t: t, idx: 0}, host.QueuingStrategy{})
	if err != nil {
		return nil, nil, err
	}
	r2, err := e.NewReadable(&teeBranchSource{t: t, idx: 1}, host.QueuingStrategy{})
	if err != nil {
		return nil, nil, err
	}
	return r1, r2, nil
}

type teeState struct {
	mu         sync.Mutex
	reader     host.DefaultReader
	pulling    *host.Promise // in-flight shared read, nil when idle
	ctrl       [2]host.DefaultController
	canceled   [2]bool
	reasons    [2]any
	cancelDone *host.Promise
}

type teeBranchSource struct {
	t   *teeState
	idx int
}

func (b *teeBranchSource) Start(ctrl host.DefaultController) error {
	b.t.mu.Lock()
	b.t.ctrl[b.idx] = ctrl
	b.t.mu.Unlock()
	return nil
}

// Pull shares one underlying read between both branches: whichever
// branch pulls first starts the read, the other awaits the same promise.
func (b *teeBranchSource) Pull(host.DefaultController) *host.Promise {
	t := b.t
	t.mu.Lock()
	if t.pulling != nil {
		p := t.pulling
		t.mu.Unlock()
		return p
	}
	p := host.NewPromise()
	t.pulling = p
	t.mu.Unlock()
	go t.pump(p)
	return p
}

func (t *teeState) pump(p *host.Promise) {
	res, err := t.reader.Read().Await(context.Background())

	t.mu.Lock()
	t.pulling = nil
	var targets []host.DefaultController
	for i := 0; i < 2; i++ {
		if !t.canceled[i] && t.ctrl[i] != nil {
			targets = append(targets, t.ctrl[i])
		}
	}
	t.mu.Unlock()

	if err != nil {
		for _, ctrl := range targets {
			ctrl.Error(err)
		}
		p.Reject(err)
		return
	}
	result := res.(host.ReadResult)
	if result.Done {
		for _, ctrl := range targets {
			_ = ctrl.Close()
		}
		p.Resolve(nil)
		return
	}
	for _, ctrl := range targets {
		_ = ctrl.Enqueue(result.Value)
	}
	p.Resolve(nil)
}

func (b *teeBranchSource) Cancel(reason any) *host.Promise {
	t := b.t
	t.mu.Lock()
	t.canceled[b.idx] = true
	t.reasons[b.idx] = reason
	if t.cancelDone == nil {
		t.cancelDone = host.NewPromise()
	}
	done := t.cancelDone
	both := t.canceled[0] && t.canceled[1]
	composite := []any{t.reasons[0], t.reasons[1]}
	reader := t.reader
	t.mu.Unlock()

	if both {
		go func() {
			if _, err := reader.Cancel(composite).Await(context.Background()); err != nil {
				done.Reject(err)
				return
			}
			done.Resolve(nil)
		}()
	}
	return done
}
