package readable

import (
	"context"
	"io"

	"github.com/wippyai/webstreams/host"
)

// DefaultReader is an exclusive value-reading lease on a stream.
type DefaultReader struct {
	raw host.DefaultReader
}

// Raw returns the wrapped host reader handle.
func (r *DefaultReader) Raw() host.DefaultReader {
	return r.raw
}

// Read returns the next chunk, or io.EOF once the stream is done.
// Canceling ctx abandons the wait but does not consume the chunk; it is
// delivered to whichever read the host answers next.
func (r *DefaultReader) Read(ctx context.Context) (any, error) {
	v, err := r.raw.Read().Await(ctx)
	if err != nil {
		return nil, err
	}
	res := v.(host.ReadResult)
	if res.Done {
		return nil, io.EOF
	}
	return res.Value, nil
}

// IntoIterator converts the lease into a chunk iterator without going
// through the stream. The iterator takes over the lock.
func (r *DefaultReader) IntoIterator() *Iterator {
	return &Iterator{reader: r}
}

// Cancel signals loss of interest through the lease.
func (r *DefaultReader) Cancel(ctx context.Context) error {
	return r.CancelWithReason(ctx, nil)
}

// CancelWithReason is Cancel with an explicit reason for the source.
func (r *DefaultReader) CancelWithReason(ctx context.Context, reason any) error {
	_, err := r.raw.Cancel(reason).Await(ctx)
	return err
}

// Closed blocks until the stream closes, or returns the stream's
// failure.
func (r *DefaultReader) Closed(ctx context.Context) error {
	_, err := r.raw.Closed().Await(ctx)
	return err
}

// ReleaseLock releases the lease. Panics when the host refuses to
// release a reader with pending reads.
func (r *DefaultReader) ReleaseLock() {
	if err := r.TryReleaseLock(); err != nil {
		panic(err)
	}
}

// TryReleaseLock releases the lease. Hosts without pending-release
// support fail when reads are still outstanding and keep the lock.
func (r *DefaultReader) TryReleaseLock() error {
	return r.raw.ReleaseLock()
}
