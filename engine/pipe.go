package engine

import (
	"context"

	"go.uber.org/multierr"

	streamerrors "github.com/wippyai/webstreams/errors"
	"github.com/wippyai/webstreams/host"
)

// pipeTo locks src and dst for the duration and shuttles chunks between
// them, honoring the propagation flags in opts. Teardown failures are
// combined with the primary failure via multierr.
func pipeTo(src host.ReadableStream, dst host.WritableStream, opts host.PipeOptions) *host.Promise {
	done := host.NewPromise()
	reader, err := src.GetReader()
	if err != nil {
		done.Reject(err)
		return done
	}
	writer, err := dst.GetWriter()
	if err != nil {
		_ = reader.ReleaseLock()
		done.Reject(err)
		return done
	}
	go runPipe(reader, writer, opts, done)
	return done
}

func runPipe(reader host.DefaultReader, writer host.DefaultWriter, opts host.PipeOptions, done *host.Promise) {
	ctx := context.Background()
	if opts.Signal != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-opts.Signal:
				cancel()
			case <-stop:
			}
		}()
	}
	bg := context.Background()

	release := func() {
		writer.ReleaseLock()
		_ = reader.ReleaseLock()
	}
	failDest := func(err error) {
		final := err
		if !opts.PreventCancel {
			if _, cerr := reader.Cancel(err).Await(bg); cerr != nil {
				final = multierr.Append(final, cerr)
			}
		}
		release()
		done.Reject(final)
	}
	failSource := func(err error) {
		final := err
		if !opts.PreventAbort {
			if _, aerr := writer.Abort(err).Await(bg); aerr != nil {
				final = multierr.Append(final, aerr)
			}
		}
		release()
		done.Reject(final)
	}
	failAborted := func() {
		var final error = streamerrors.Host("pipe_to", context.Canceled)
		if !opts.PreventAbort {
			if _, aerr := writer.Abort(final).Await(bg); aerr != nil {
				final = multierr.Append(final, aerr)
			}
		}
		if !opts.PreventCancel {
			if _, cerr := reader.Cancel(final).Await(bg); cerr != nil {
				final = multierr.Append(final, cerr)
			}
		}
		release()
		done.Reject(final)
	}

	for {
		if _, err := writer.Ready().Await(ctx); err != nil {
			if ctx.Err() != nil {
				failAborted()
			} else {
				failDest(err)
			}
			return
		}
		res, err := reader.Read().Await(ctx)
		if err != nil {
			if ctx.Err() != nil {
				failAborted()
			} else {
				failSource(err)
			}
			return
		}
		result := res.(host.ReadResult)
		if result.Done {
			if !opts.PreventClose {
				if _, cerr := writer.Close().Await(bg); cerr != nil {
					release()
					done.Reject(cerr)
					return
				}
			}
			release()
			done.Resolve(nil)
			return
		}
		if _, err := writer.Write(result.Value).Await(ctx); err != nil {
			if ctx.Err() != nil {
				failAborted()
			} else {
				failDest(err)
			}
			return
		}
	}
}
