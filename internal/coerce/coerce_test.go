package coerce

import (
	"math"
	"testing"
)

func TestClampToUint32(t *testing.T) {
	if got := ClampToUint32(-1); got != 0 {
		t.Errorf("expected 0 for negative length, got %d", got)
	}
	if got := ClampToUint32(1024); got != 1024 {
		t.Errorf("expected 1024, got %d", got)
	}
	if math.MaxInt > math.MaxUint32 {
		if got := ClampToUint32(math.MaxInt); got != math.MaxUint32 {
			t.Errorf("expected saturation at MaxUint32, got %d", got)
		}
	}
}

func TestCheckedToUint32(t *testing.T) {
	if got := CheckedToUint32(0); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := CheckedToUint32(65536); got != 65536 {
		t.Errorf("expected 65536, got %d", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic for negative length")
		}
	}()
	CheckedToUint32(-1)
}

func TestCheckedToInt(t *testing.T) {
	if got := CheckedToInt(42); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}
