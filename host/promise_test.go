package host

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPromiseResolve(t *testing.T) {
	p := NewPromise()
	if p.Settled() {
		t.Fatal("new promise must not be settled")
	}
	p.Resolve("hello")
	v, err := p.Await(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "hello" {
		t.Errorf("expected hello, got %v", v)
	}
}

func TestPromiseReject(t *testing.T) {
	boom := errors.New("boom")
	p := Rejected(boom)
	_, err := p.Await(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestPromiseSettlesOnce(t *testing.T) {
	p := NewPromise()
	p.Resolve(1)
	p.Reject(errors.New("ignored"))
	p.Resolve(2)
	v, err := p.Await(context.Background())
	if err != nil || v != 1 {
		t.Errorf("expected first settlement to win, got (%v, %v)", v, err)
	}
}

func TestPromiseAwaitContextCancel(t *testing.T) {
	p := NewPromise()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Await(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	// Cancellation does not settle the promise.
	if p.Settled() {
		t.Fatal("context cancellation must not settle the promise")
	}
	p.Resolve("late")
	v, err := p.Await(context.Background())
	if err != nil || v != "late" {
		t.Errorf("expected late settlement to be observable, got (%v, %v)", v, err)
	}
}

func TestPromiseAwaitBlocksUntilSettled(t *testing.T) {
	p := NewPromise()
	go func() {
		time.Sleep(10 * time.Millisecond)
		p.Resolve(42)
	}()
	v, err := p.Await(context.Background())
	if err != nil || v != 42 {
		t.Errorf("expected 42, got (%v, %v)", v, err)
	}
}
