package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	err := Locked("get_reader")
	msg := err.Error()
	if !strings.Contains(msg, "locked") || !strings.Contains(msg, "get_reader") {
		t.Errorf("unexpected message: %s", msg)
	}
}

func TestIsMatchesByKind(t *testing.T) {
	err := Unsupported("get_byob_reader", "byte streams")
	if !stderrors.Is(err, &Error{Kind: KindUnsupported}) {
		t.Error("expected Is to match on kind")
	}
	if stderrors.Is(err, &Error{Kind: KindLocked}) {
		t.Error("expected Is not to match a different kind")
	}
}

func TestHostWrapsErrorAsCause(t *testing.T) {
	cause := fmt.Errorf("sink exploded")
	err := Host("write", cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected host error to unwrap to its cause")
	}
	if HostReason(err) != cause {
		t.Errorf("expected HostReason to return the cause, got %v", HostReason(err))
	}
}

func TestHostWrapsArbitraryReason(t *testing.T) {
	err := Host("read", 42)
	if got := HostReason(err); got != 42 {
		t.Errorf("expected reason 42, got %v", got)
	}
	if !strings.Contains(err.Error(), "42") {
		t.Errorf("expected message to render reason, got %s", err.Error())
	}
}

func TestKindPredicates(t *testing.T) {
	if !IsLocked(Locked("tee")) {
		t.Error("IsLocked")
	}
	if !IsUnsupported(Unsupported("x", "y")) {
		t.Error("IsUnsupported")
	}
	if !IsExhausted(Exhausted("next")) {
		t.Error("IsExhausted")
	}
	if IsLocked(Exhausted("next")) {
		t.Error("cross-kind predicate must not match")
	}
	if IsLocked(nil) {
		t.Error("nil must not match")
	}
}

func TestFaultCarriesRecoveredValue(t *testing.T) {
	err := Fault("pull", "boom")
	if err.Reason != "boom" {
		t.Errorf("expected recovered value, got %v", err.Reason)
	}
	if !strings.Contains(err.Error(), "panic") {
		t.Errorf("expected panic marker in message, got %s", err.Error())
	}
}
