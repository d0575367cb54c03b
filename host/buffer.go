package host

// Buffer is host-owned byte storage with transfer semantics, modeled after
// transferable array buffers. Once transferred, the original Buffer is
// detached: its views report Detached and must not be used for I/O again.
type Buffer struct {
	data     []byte
	detached bool
}

// NewBuffer allocates a Buffer of the given length.
func NewBuffer(length int) *Buffer {
	return &Buffer{data: make([]byte, length)}
}

// ByteLength returns the buffer's length, or 0 when detached.
func (b *Buffer) ByteLength() int {
	if b.detached {
		return 0
	}
	return len(b.data)
}

// Detached reports whether the buffer has been transferred away.
func (b *Buffer) Detached() bool {
	return b.detached
}

// Transfer moves the backing storage into a fresh Buffer and detaches the
// receiver. Every view anchored on the receiver becomes unusable.
func (b *Buffer) Transfer() *Buffer {
	if b.detached {
		panic("host: transfer of detached buffer")
	}
	next := &Buffer{data: b.data}
	b.data = nil
	b.detached = true
	return next
}

// BufferView is a typed window over a Buffer, modeled after Uint8Array.
// Identity matters: after the backing Buffer is transferred, the view is
// detached and any subsequent use must go through a view reconstructed on
// the transferred Buffer.
type BufferView struct {
	buf    *Buffer
	offset int
	length int
}

// NewBufferView allocates a fresh Buffer of the given length and returns a
// view covering all of it.
func NewBufferView(length int) *BufferView {
	return &BufferView{buf: NewBuffer(length), length: length}
}

// ViewOf returns a view of length bytes at offset into buf.
func ViewOf(buf *Buffer, offset, length int) *BufferView {
	if offset < 0 || length < 0 || offset+length > len(buf.data) {
		panic("host: view out of buffer range")
	}
	return &BufferView{buf: buf, offset: offset, length: length}
}

// Buffer returns the backing Buffer.
func (v *BufferView) Buffer() *Buffer {
	return v.buf
}

// ByteOffset returns the view's offset into its backing Buffer.
func (v *BufferView) ByteOffset() int {
	return v.offset
}

// ByteLength returns the view's length in bytes.
func (v *BufferView) ByteLength() int {
	return v.length
}

// Detached reports whether the backing Buffer has been transferred away.
func (v *BufferView) Detached() bool {
	return v.buf.detached
}

// Subarray returns a new view on the same Buffer spanning [begin, end)
// relative to this view.
func (v *BufferView) Subarray(begin, end int) *BufferView {
	if begin < 0 || end < begin || end > v.length {
		panic("host: subarray out of view range")
	}
	return &BufferView{buf: v.buf, offset: v.offset + begin, length: end - begin}
}

// Bytes returns the view's window into the backing storage. The slice
// aliases host memory and is invalidated by a transfer.
func (v *BufferView) Bytes() []byte {
	if v.buf.detached {
		panic("host: access to detached view")
	}
	return v.buf.data[v.offset : v.offset+v.length]
}

// CopyTo copies min(len(dst), ByteLength) bytes out of the view.
func (v *BufferView) CopyTo(dst []byte) int {
	return copy(dst, v.Bytes())
}

// CopyFrom copies min(len(src), ByteLength) bytes into the view.
func (v *BufferView) CopyFrom(src []byte) int {
	return copy(v.Bytes(), src)
}
