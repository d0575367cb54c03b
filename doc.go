// Package webstreams bridges host streaming primitives and Go code.
//
// Host engines expose readable streams, writable streams and transform
// streams with locking, backpressure and cancellation semantics. This
// library wraps raw host handles in Go-friendly adapters in both
// directions: host streams become pull iterators, io.Readers and
// io.Writers; Go sequences, readers and consumers become host streams.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	webstreams/          Root package (documentation only)
//	├── host/            Host surface: Promise, Buffer, stream interfaces
//	├── readable/        Readable-side adapters and source bridges
//	├── writable/        Writable-side adapters and sink bridges
//	├── transform/       Transform streams driven by Go handlers
//	├── engine/          In-memory reference host engine
//	└── errors/          Structured error types
//
// # Quick Start
//
// Consume a host readable stream as an iterator:
//
//	s := readable.FromRaw(raw)
//	it := s.IntoIterator()
//	defer it.Close(ctx)
//	for {
//		chunk, err := it.Next(ctx)
//		if err == io.EOF {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		handle(chunk)
//	}
//
// Expose a Go producer to the host:
//
//	s, err := readable.FromSeq(eng, func(yield func(any, error) bool) {
//		for _, record := range records {
//			if !yield(record, nil) {
//				return
//			}
//		}
//	})
//
// Pipe it into a destination, honoring backpressure on both sides:
//
//	err = s.PipeTo(ctx, dst, nil)
//
// The host engine is abstracted behind the interfaces in package host;
// package engine provides a complete in-memory implementation used in
// tests and examples.
package webstreams
