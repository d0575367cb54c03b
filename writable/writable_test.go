package writable

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/webstreams/engine"
	streamerrors "github.com/wippyai/webstreams/errors"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// memConsumer records delivered chunks; optional hooks inject failures.
type memConsumer struct {
	mu      sync.Mutex
	chunks  []any
	closed  bool
	aborted any
	failOn  any
	err     error
	panicOn any
}

func (c *memConsumer) Write(_ context.Context, chunk any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.panicOn != nil && chunk == c.panicOn {
		panic("consumer blew up")
	}
	if c.failOn != nil && chunk == c.failOn {
		return c.err
	}
	c.chunks = append(c.chunks, chunk)
	return nil
}

func (c *memConsumer) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *memConsumer) Abort(reason any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aborted = reason
	if reason == nil {
		c.aborted = "aborted"
	}
}

func (c *memConsumer) recorded() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.chunks...)
}

func TestWriterDeliversInOrder(t *testing.T) {
	ctx := testCtx(t)
	c := &memConsumer{}
	s, err := FromConsumer(engine.New(), c)
	require.NoError(t, err)

	w := s.GetWriter()
	for _, chunk := range []any{"a", "b", "c"} {
		require.NoError(t, w.Write(ctx, chunk))
	}
	require.NoError(t, w.Close(ctx))

	require.Equal(t, []any{"a", "b", "c"}, c.recorded())
	c.mu.Lock()
	defer c.mu.Unlock()
	require.True(t, c.closed)
}

func TestConsumerBridgeAcceptsNextCallOnSettlement(t *testing.T) {
	ctx := testCtx(t)
	c := &memConsumer{}
	s := newConsumerSink(c)
	for i := 0; i < 500; i++ {
		_, err := s.Write(i, nil).Await(ctx)
		require.NoError(t, err, "a settled write means the bridge is free again")
	}
	_, err := s.Close().Await(ctx)
	require.NoError(t, err)
	require.Len(t, c.recorded(), 500)
}

func TestWriterLockExclusivity(t *testing.T) {
	s, err := FromConsumer(engine.New(), &memConsumer{})
	require.NoError(t, err)

	w := s.GetWriter()
	require.True(t, s.Locked())
	_, err = s.TryGetWriter()
	require.True(t, streamerrors.IsLocked(err))
	require.Panics(t, func() { s.GetWriter() })

	w.ReleaseLock()
	require.False(t, s.Locked())
}

func TestWriterConsumerErrorFailsStream(t *testing.T) {
	ctx := testCtx(t)
	boom := errors.New("consumer rejected chunk")
	c := &memConsumer{failOn: "bad", err: boom}
	s, err := FromConsumer(engine.New(), c)
	require.NoError(t, err)

	w := s.GetWriter()
	require.NoError(t, w.Write(ctx, "good"))
	require.ErrorIs(t, w.Write(ctx, "bad"), boom)
	require.ErrorIs(t, w.Write(ctx, "after"), boom, "failed stream stays failed")
	require.Equal(t, []any{"good"}, c.recorded())
}

func TestWriterConsumerPanicBecomesFault(t *testing.T) {
	ctx := testCtx(t)
	c := &memConsumer{panicOn: "kaboom"}
	s, err := FromConsumer(engine.New(), c)
	require.NoError(t, err)

	w := s.GetWriter()
	err = w.Write(ctx, "kaboom")
	require.Error(t, err)
	var se *streamerrors.Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, streamerrors.KindFault, se.Kind)
}

func TestAbortReachesConsumer(t *testing.T) {
	ctx := testCtx(t)
	c := &memConsumer{}
	s, err := FromConsumer(engine.New(), c)
	require.NoError(t, err)

	require.NoError(t, s.AbortWithReason(ctx, "stop"))
	c.mu.Lock()
	defer c.mu.Unlock()
	require.Equal(t, "stop", c.aborted)
}

func TestAbortFailsWhenLocked(t *testing.T) {
	ctx := testCtx(t)
	s, err := FromConsumer(engine.New(), &memConsumer{})
	require.NoError(t, err)
	_ = s.GetWriter()
	require.True(t, streamerrors.IsLocked(s.Abort(ctx)))
}

func TestSinkSendFlushClose(t *testing.T) {
	ctx := testCtx(t)
	c := &memConsumer{}
	s, err := FromConsumer(engine.New(), c)
	require.NoError(t, err)

	sink := s.IntoSink()
	for _, chunk := range []any{1, 2, 3} {
		require.NoError(t, sink.Send(ctx, chunk))
	}
	require.NoError(t, sink.Flush(ctx))
	require.Equal(t, []any{1, 2, 3}, c.recorded(), "flush waits for delivery")
	require.NoError(t, sink.Close(ctx))

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	require.True(t, closed)
	require.False(t, s.Locked(), "closing the sink releases the lock")
}

func TestSinkFailureIsSticky(t *testing.T) {
	ctx := testCtx(t)
	boom := errors.New("no more")
	c := &memConsumer{failOn: "bad", err: boom}
	s, err := FromConsumer(engine.New(), c)
	require.NoError(t, err)

	sink := s.IntoSink()
	require.NoError(t, sink.Send(ctx, "bad"))
	require.ErrorIs(t, sink.Flush(ctx), boom)

	err = sink.Send(ctx, "more")
	require.True(t, streamerrors.IsExhausted(err), "failed sink reports itself finished")
	require.ErrorIs(t, err, boom, "the original failure stays visible as the cause")
	require.False(t, s.Locked(), "failure releases the lock")
}

func TestSinkAbortDiscardsAndFinishes(t *testing.T) {
	ctx := testCtx(t)
	c := &memConsumer{}
	s, err := FromConsumer(engine.New(), c)
	require.NoError(t, err)

	sink := s.IntoSink()
	require.NoError(t, sink.Send(ctx, "x"))
	require.NoError(t, sink.Abort(ctx, "done with this"))

	err = sink.Send(ctx, "y")
	require.True(t, streamerrors.IsExhausted(err))
	c.mu.Lock()
	defer c.mu.Unlock()
	require.Equal(t, "done with this", c.aborted)
}

func TestIOWriterCopiesBytes(t *testing.T) {
	var buf bytes.Buffer
	s, err := FromWriter(engine.New(), &buf)
	require.NoError(t, err)

	w := s.IntoIOWriter(testCtx(t))
	n, err := w.Write([]byte("hello "))
	require.NoError(t, err)
	require.Equal(t, 6, n)
	_, err = w.Write([]byte("world"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.Equal(t, "hello world", buf.String())

	_, err = w.Write([]byte("late"))
	require.Error(t, err, "writes after close fail")
}

func TestFromWriterRejectsNonByteChunks(t *testing.T) {
	ctx := testCtx(t)
	var buf bytes.Buffer
	s, err := FromWriter(engine.New(), &buf)
	require.NoError(t, err)

	w := s.GetWriter()
	require.Error(t, w.Write(ctx, 42))
}
