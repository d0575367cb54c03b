package host

import "testing"

func TestBufferViewBasics(t *testing.T) {
	v := NewBufferView(8)
	if v.ByteLength() != 8 || v.ByteOffset() != 0 {
		t.Fatalf("unexpected geometry: len=%d off=%d", v.ByteLength(), v.ByteOffset())
	}
	n := v.CopyFrom([]byte{1, 2, 3})
	if n != 3 {
		t.Fatalf("expected 3 bytes copied, got %d", n)
	}
	dst := make([]byte, 8)
	v.CopyTo(dst)
	if dst[0] != 1 || dst[2] != 3 {
		t.Errorf("unexpected contents: %v", dst)
	}
}

func TestSubarrayGeometry(t *testing.T) {
	v := NewBufferView(10)
	sub := v.Subarray(2, 6)
	if sub.ByteOffset() != 2 || sub.ByteLength() != 4 {
		t.Errorf("unexpected subarray geometry: off=%d len=%d", sub.ByteOffset(), sub.ByteLength())
	}
	sub.CopyFrom([]byte{9, 9, 9, 9})
	if v.Bytes()[2] != 9 || v.Bytes()[5] != 9 {
		t.Error("subarray must alias the parent view")
	}
}

func TestTransferDetachesViews(t *testing.T) {
	v := NewBufferView(4)
	v.CopyFrom([]byte{1, 2, 3, 4})

	moved := v.Buffer().Transfer()
	if !v.Detached() {
		t.Fatal("view must be detached after transfer")
	}
	if moved.Detached() {
		t.Fatal("transferred buffer must be usable")
	}

	// Reconstructing a view on the transferred buffer sees the same bytes.
	next := ViewOf(moved, 0, 4)
	if next.Bytes()[3] != 4 {
		t.Errorf("expected contents to survive transfer, got %v", next.Bytes())
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic on access to detached view")
		}
	}()
	_ = v.Bytes()
}
