// Package errors provides structured error types for stream adapters.
//
// The taxonomy distinguishes the failure modes of the host binding:
//
//	KindHost        opaque failure reported by the host engine, passed
//	                through unchanged (Reason holds the original value)
//	KindLocked      reader/writer acquisition against a locked stream
//	KindUnsupported optional host capability that is not available
//	KindExhausted   operation against an already-finished adapter
//	KindOverlap     serialized-invocation contract violation
//	KindFault       panic in user logic caught at the host boundary
//	KindRange       length outside the host's 32-bit domain
//
// Host failure reasons are arbitrary values, not necessarily Go errors.
// Error messages render them with fmt.Sprint, which is lossy; use
// HostReason to recover the original value.
package errors
