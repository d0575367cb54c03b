package readable

import (
	"context"
	"io"

	"github.com/wippyai/webstreams/host"
	"github.com/wippyai/webstreams/internal/coerce"
)

// IOReader exposes a byte stream as an io.ReadCloser. The context bound
// at construction governs every Read; canceling it fails subsequent
// reads without tearing the stream down.
type IOReader struct {
	ctx     context.Context
	reader  *BYOBReader
	pending *host.Promise // read abandoned by ctx cancellation
	err     error         // sticky terminal error
}

// Read fills p from the stream. The request view handed to the host is
// sized to p, so at most len(p) bytes arrive per call.
func (r *IOReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if len(p) == 0 {
		return 0, nil
	}
	pr := r.pending
	if pr == nil {
		// Host read request lengths live in the 32-bit domain.
		n := int(coerce.ClampToUint32(len(p)))
		pr = r.reader.raw.Read(host.NewBufferView(n))
		r.pending = pr
	}
	v, err := pr.Await(r.ctx)
	if err != nil {
		if ctxErr := r.ctx.Err(); ctxErr != nil && err == ctxErr {
			return 0, err
		}
		r.fail(err)
		return 0, err
	}
	r.pending = nil
	res := v.(host.BYOBReadResult)
	if res.View == nil || res.View.ByteLength() == 0 {
		r.fail(io.EOF)
		return 0, io.EOF
	}
	n := res.View.CopyTo(p)
	if res.Done {
		r.err = io.EOF
		r.release()
		return n, nil
	}
	return n, nil
}

// Close cancels the stream and releases the lock.
func (r *IOReader) Close() error {
	if r.err != nil {
		return nil
	}
	err := r.reader.CancelWithReason(context.Background(), nil)
	r.fail(io.EOF)
	return err
}

func (r *IOReader) fail(err error) {
	r.err = err
	r.pending = nil
	r.release()
}

func (r *IOReader) release() {
	_ = r.reader.TryReleaseLock()
}
