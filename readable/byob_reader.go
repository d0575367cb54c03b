package readable

import (
	"context"
	"io"

	"github.com/wippyai/webstreams/host"
	"github.com/wippyai/webstreams/internal/coerce"
)

// BYOBReader is an exclusive byte-reading lease on a byte stream.
// Reads fill caller-supplied buffer views instead of allocating.
type BYOBReader struct {
	raw host.BYOBReader
}

// Raw returns the wrapped host reader handle.
func (r *BYOBReader) Raw() host.BYOBReader {
	return r.raw
}

// ReadView fills view with up to its length in bytes. The view's
// backing buffer is transferred to the host for the duration: the
// caller must drop view and continue with the returned one, which
// covers the bytes actually read over the same storage.
//
// At end of stream ReadView returns the zero-length view and io.EOF.
// When the stream is canceled while the read is pending, the buffer is
// lost and ReadView returns (nil, io.EOF).
func (r *BYOBReader) ReadView(ctx context.Context, view *host.BufferView) (*host.BufferView, error) {
	v, err := r.raw.Read(view).Await(ctx)
	if err != nil {
		return nil, err
	}
	res := v.(host.BYOBReadResult)
	if res.View == nil {
		return nil, io.EOF
	}
	if res.Done {
		return res.View, io.EOF
	}
	return res.View, nil
}

// Read fills p with up to len(p) bytes, copying through a staging
// buffer. It follows the io.Reader contract, returning io.EOF at end of
// stream. Callers that want to avoid the copy should use ReadView.
func (r *BYOBReader) Read(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := int(coerce.ClampToUint32(len(p)))
	view, err := r.ReadView(ctx, host.NewBufferView(n))
	if err != nil && err != io.EOF {
		return 0, err
	}
	if view == nil || view.ByteLength() == 0 {
		return 0, io.EOF
	}
	n = view.CopyTo(p)
	return n, err
}

// IntoIOReader converts the lease into an io.ReadCloser without going
// through the stream. The returned reader takes over the lock.
func (r *BYOBReader) IntoIOReader(ctx context.Context) io.ReadCloser {
	return &IOReader{ctx: ctx, reader: r}
}

// Cancel signals loss of interest through the lease.
func (r *BYOBReader) Cancel(ctx context.Context) error {
	return r.CancelWithReason(ctx, nil)
}

// CancelWithReason is Cancel with an explicit reason for the source.
func (r *BYOBReader) CancelWithReason(ctx context.Context, reason any) error {
	_, err := r.raw.Cancel(reason).Await(ctx)
	return err
}

// Closed blocks until the stream closes, or returns the stream's
// failure.
func (r *BYOBReader) Closed(ctx context.Context) error {
	_, err := r.raw.Closed().Await(ctx)
	return err
}

// ReleaseLock releases the lease. Panics when the host refuses to
// release a reader with pending reads.
func (r *BYOBReader) ReleaseLock() {
	if err := r.TryReleaseLock(); err != nil {
		panic(err)
	}
}

// TryReleaseLock releases the lease. Hosts without pending-release
// support fail when reads are still outstanding and keep the lock.
func (r *BYOBReader) TryReleaseLock() error {
	return r.raw.ReleaseLock()
}
