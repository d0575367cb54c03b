package errors

import (
	"fmt"
	"strings"
)

// Kind categorizes the error.
type Kind string

const (
	// KindLocked reports an attempt to acquire a reader or writer while the
	// stream is already locked to another one.
	KindLocked Kind = "locked"
	// KindUnsupported reports a request for an optional host capability that
	// the engine does not provide (e.g. byte streams, releasing a lock with
	// pending reads).
	KindUnsupported Kind = "unsupported"
	// KindExhausted reports an operation against an adapter whose inner
	// state has already been consumed, errored or closed.
	KindExhausted Kind = "exhausted"
	// KindOverlap reports overlapping host invocations of an underlying
	// source or sink. The host contract guarantees serialized invocation,
	// so this is an internal contract violation, never ordinary contention.
	KindOverlap Kind = "overlap"
	// KindFault reports a panic in user-supplied logic, caught at the host
	// call boundary.
	KindFault Kind = "fault"
	// KindRange reports a length outside the host's 32-bit domain.
	KindRange Kind = "range"
	// KindHost carries an opaque failure reason reported by the host engine.
	KindHost Kind = "host"
)

// Error is the structured error type used throughout the module.
type Error struct {
	Reason any
	Cause  error
	Kind   Kind
	Op     string
	Detail string
}

// Error implements the error interface.
//
// For KindHost errors the message is a best-effort stringification of the
// opaque host reason and is lossy; use Reason to recover the original value.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Kind))
	b.WriteString("] ")
	b.WriteString(e.Op)

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Reason != nil {
		b.WriteString(": ")
		b.WriteString(fmt.Sprint(e.Reason))
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Two Errors match when their
// Kinds match, so callers can test against a bare &Error{Kind: ...}.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Convenience constructors for common error patterns

// Locked creates an already-locked error.
func Locked(op string) *Error {
	return &Error{
		Kind:   KindLocked,
		Op:     op,
		Detail: "stream is locked",
	}
}

// Unsupported creates an unsupported-capability error.
func Unsupported(op, what string) *Error {
	return &Error{
		Kind:   KindUnsupported,
		Op:     op,
		Detail: what,
	}
}

// Exhausted creates an already-finished error.
func Exhausted(op string) *Error {
	return &Error{
		Kind:   KindExhausted,
		Op:     op,
		Detail: "already finished",
	}
}

// Overlap creates an overlapping-invocation contract violation error.
func Overlap(op string) *Error {
	return &Error{
		Kind:   KindOverlap,
		Op:     op,
		Detail: "overlapping host invocation",
	}
}

// Fault wraps a recovered panic value from user-supplied logic.
func Fault(op string, recovered any) *Error {
	return &Error{
		Kind:   KindFault,
		Op:     op,
		Detail: fmt.Sprintf("panic: %v", recovered),
		Reason: recovered,
	}
}

// Host wraps an opaque host failure reason. If the reason already is an
// error, it is kept as the cause so errors.Is/As keep working through it.
func Host(op string, reason any) *Error {
	e := &Error{
		Kind:   KindHost,
		Op:     op,
		Reason: reason,
	}
	if cause, ok := reason.(error); ok {
		e.Cause = cause
		e.Reason = nil
	}
	return e
}

// IsLocked reports whether err is an already-locked error.
func IsLocked(err error) bool {
	return is(err, KindLocked)
}

// IsUnsupported reports whether err is an unsupported-capability error.
func IsUnsupported(err error) bool {
	return is(err, KindUnsupported)
}

// IsExhausted reports whether err is an already-finished error.
func IsExhausted(err error) bool {
	return is(err, KindExhausted)
}

func is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// HostReason extracts the original host failure reason from err, unwinding
// the KindHost wrapper if present. For any other error the error itself is
// the reason.
func HostReason(err error) any {
	if e, ok := err.(*Error); ok && e.Kind == KindHost {
		if e.Reason != nil {
			return e.Reason
		}
		if e.Cause != nil {
			return e.Cause
		}
	}
	return err
}
