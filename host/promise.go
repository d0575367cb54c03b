package host

import (
	"context"
	"sync"
)

// Promise is a single-settlement handle for an asynchronous host operation.
//
// A Promise settles exactly once, with either a value or an error. Awaiting
// a settled Promise returns immediately; awaiting an unsettled one blocks
// until settlement or context cancellation. Context cancellation does NOT
// settle the Promise: the operation is still in flight on the host side and
// a later Await observes its eventual outcome.
type Promise struct {
	done  chan struct{}
	once  sync.Once
	value any
	err   error
}

// NewPromise creates an unsettled Promise.
func NewPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

// Resolved creates a Promise already settled with value.
func Resolved(value any) *Promise {
	p := NewPromise()
	p.Resolve(value)
	return p
}

// Rejected creates a Promise already settled with err.
func Rejected(err error) *Promise {
	p := NewPromise()
	p.Reject(err)
	return p
}

// Resolve settles the Promise with value. Later settlements are ignored.
func (p *Promise) Resolve(value any) {
	p.once.Do(func() {
		p.value = value
		close(p.done)
	})
}

// Reject settles the Promise with err. Later settlements are ignored.
func (p *Promise) Reject(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}

// Await blocks until the Promise settles or ctx is done.
func (p *Promise) Await(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Settled reports whether the Promise has settled.
func (p *Promise) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed on settlement.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}
