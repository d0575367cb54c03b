package transform

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/webstreams/engine"
	streamerrors "github.com/wippyai/webstreams/errors"
	"github.com/wippyai/webstreams/host"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestIdentityPassesChunksThrough(t *testing.T) {
	ctx := testCtx(t)
	ts, err := NewIdentity(engine.New())
	require.NoError(t, err)

	w := ts.Writable().GetWriter()
	it := ts.Readable().IntoIterator()

	require.NoError(t, w.Write(ctx, "x"))
	v, err := it.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "x", v)

	require.NoError(t, w.Close(ctx))
	_, err = it.Next(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestHandlerTransformsChunks(t *testing.T) {
	ctx := testCtx(t)
	upper := &Funcs{
		TransformFunc: func(_ context.Context, chunk any, ctrl host.TransformController) error {
			return ctrl.Enqueue(strings.ToUpper(chunk.(string)))
		},
	}
	ts, err := New(engine.New(), upper)
	require.NoError(t, err)

	w := ts.Writable().GetWriter()
	it := ts.Readable().IntoIterator()

	require.NoError(t, w.Write(ctx, "hello"))
	v, err := it.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "HELLO", v)
}

func TestFlushEmitsTrailingChunks(t *testing.T) {
	ctx := testCtx(t)
	counting := &Funcs{
		TransformFunc: func(_ context.Context, chunk any, ctrl host.TransformController) error {
			return ctrl.Enqueue(chunk)
		},
		FlushFunc: func(_ context.Context, ctrl host.TransformController) error {
			return ctrl.Enqueue("trailer")
		},
	}
	ts, err := New(engine.New(), counting)
	require.NoError(t, err)

	w := ts.Writable().GetWriter()
	it := ts.Readable().IntoIterator()

	require.NoError(t, w.Write(ctx, "body"))
	require.NoError(t, w.Close(ctx))

	var got []any
	for v, err := range it.All(ctx) {
		require.NoError(t, err)
		got = append(got, v)
	}
	require.Equal(t, []any{"body", "trailer"}, got)
}

func TestHandlerBridgeAcceptsNextCallOnSettlement(t *testing.T) {
	ctx := testCtx(t)
	seen := 0
	b := &handlerTransformer{h: &Funcs{
		TransformFunc: func(context.Context, any, host.TransformController) error {
			seen++
			return nil
		},
		FlushFunc: func(context.Context, host.TransformController) error { return nil },
	}}
	for i := 0; i < 500; i++ {
		_, err := b.Transform(i, nil).Await(ctx)
		require.NoError(t, err, "a settled hook call means the bridge is free again")
	}
	_, err := b.Flush(nil).Await(ctx)
	require.NoError(t, err)
	require.Equal(t, 500, seen)
}

func TestHandlerErrorFailsBothSides(t *testing.T) {
	ctx := testCtx(t)
	boom := errors.New("bad chunk")
	failing := &Funcs{
		TransformFunc: func(context.Context, any, host.TransformController) error {
			return boom
		},
	}
	ts, err := New(engine.New(), failing)
	require.NoError(t, err)

	w := ts.Writable().GetWriter()
	r := ts.Readable().GetReader()

	require.ErrorIs(t, w.Write(ctx, "x"), boom)
	_, err = r.Read(ctx)
	require.ErrorIs(t, err, boom)
}

func TestHandlerPanicBecomesFault(t *testing.T) {
	ctx := testCtx(t)
	panicking := &Funcs{
		TransformFunc: func(context.Context, any, host.TransformController) error {
			panic("handler blew up")
		},
	}
	ts, err := New(engine.New(), panicking)
	require.NoError(t, err)

	w := ts.Writable().GetWriter()
	err = w.Write(ctx, "x")
	require.Error(t, err)
	var se *streamerrors.Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, streamerrors.KindFault, se.Kind)
}

func TestTerminateClosesReadableAndFailsWritable(t *testing.T) {
	ctx := testCtx(t)
	terminating := &Funcs{
		TransformFunc: func(_ context.Context, _ any, ctrl host.TransformController) error {
			ctrl.Terminate()
			return nil
		},
	}
	ts, err := New(engine.New(), terminating)
	require.NoError(t, err)

	w := ts.Writable().GetWriter()
	it := ts.Readable().IntoIterator()

	_ = w.Write(ctx, "x")
	_, err = it.Next(ctx)
	require.ErrorIs(t, err, io.EOF, "terminate closes the readable side")

	err = w.Write(ctx, "y")
	require.Error(t, err, "terminate fails the writable side")
}

func TestStartErrorFailsStream(t *testing.T) {
	ctx := testCtx(t)
	boom := errors.New("start failed")
	ts, err := New(engine.New(), &Funcs{
		StartFunc: func(host.TransformController) error { return boom },
	})
	require.NoError(t, err)

	w := ts.Writable().GetWriter()
	require.ErrorIs(t, w.Write(ctx, "x"), boom)
}
