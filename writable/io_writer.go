package writable

import (
	"context"

	streamerrors "github.com/wippyai/webstreams/errors"
	"github.com/wippyai/webstreams/host"
)

// IOWriter exposes a writable stream as an io.WriteCloser. The context
// bound at construction governs every call; canceling it fails
// subsequent writes without tearing the stream down.
type IOWriter struct {
	ctx context.Context
	w   *DefaultWriter
	err error // sticky terminal error
}

// Write copies p into a fresh buffer view and blocks until the
// underlying sink accepted it.
func (w *IOWriter) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	view := host.NewBufferView(len(p))
	view.CopyFrom(p)
	if err := w.w.Write(w.ctx, view); err != nil {
		if ctxErr := w.ctx.Err(); ctxErr == nil || err != ctxErr {
			w.fail(err)
		}
		return 0, err
	}
	return len(p), nil
}

// Close flushes queued writes, closes the stream and releases the lock.
func (w *IOWriter) Close() error {
	if w.err != nil {
		return nil
	}
	err := w.w.Close(w.ctx)
	if err != nil {
		w.fail(err)
		return err
	}
	w.fail(streamerrors.Exhausted("write"))
	return nil
}

func (w *IOWriter) fail(err error) {
	w.err = err
	w.w.ReleaseLock()
}
