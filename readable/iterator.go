package readable

import (
	"context"
	"io"
	"iter"

	"github.com/wippyai/webstreams/host"
)

// Iterator drains a stream one chunk per Next call, holding the reading
// lock until closed or exhausted.
type Iterator struct {
	reader  *DefaultReader
	pending *host.Promise // read abandoned by ctx cancellation, resumed next call
	done    bool
	failure error // sticky stream failure, reported by every later Next
}

// Next returns the next chunk, or io.EOF once the stream is done. After
// io.EOF or a stream failure the lock is released and every later call
// returns io.EOF or the failure again.
//
// If ctx is canceled while a read is pending, the read stays in flight:
// the next call resumes waiting on it, so no chunk is lost.
func (it *Iterator) Next(ctx context.Context) (any, error) {
	if it.done {
		if it.failure != nil {
			return nil, it.failure
		}
		return nil, io.EOF
	}
	p := it.pending
	if p == nil {
		p = it.reader.raw.Read()
		it.pending = p
	}
	v, err := p.Await(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && err == ctxErr {
			return nil, err
		}
		it.failure = err
		it.finish()
		return nil, err
	}
	it.pending = nil
	res := v.(host.ReadResult)
	if res.Done {
		it.finish()
		return nil, io.EOF
	}
	return res.Value, nil
}

// All returns the remaining chunks as a single-use sequence. A stream
// failure is yielded as the final element's error.
func (it *Iterator) All(ctx context.Context) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		for {
			v, err := it.Next(ctx)
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Close cancels the stream and releases the lock. Safe to call more
// than once.
func (it *Iterator) Close(ctx context.Context) error {
	if it.done {
		return nil
	}
	err := it.reader.CancelWithReason(ctx, nil)
	it.finish()
	return err
}

func (it *Iterator) finish() {
	if it.done {
		return
	}
	it.done = true
	it.pending = nil
	_ = it.reader.TryReleaseLock()
}
