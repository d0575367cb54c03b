package coerce

import "math"

// ClampToUint32 converts a Go length to the host's 32-bit length domain,
// saturating at MaxUint32. Lossy by design: sizing hints larger than the
// host can express are capped, never wrapped.
func ClampToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if uint64(n) > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n)
}

// CheckedToUint32 converts a Go length that the adapter itself guarantees
// fits the host's 32-bit domain. A violation is a bug in the adapter, not
// a recoverable condition.
func CheckedToUint32(n int) uint32 {
	if n < 0 || uint64(n) > math.MaxUint32 {
		panic("coerce: length out of 32-bit host range")
	}
	return uint32(n)
}

// CheckedToInt converts a host 32-bit length back to a Go int. On 32-bit
// platforms a host length can exceed the int range; the host never hands
// out views larger than what the adapter requested, so overflow here is a
// contract violation.
func CheckedToInt(n uint32) int {
	if uint64(n) > uint64(math.MaxInt) {
		panic("coerce: host length out of int range")
	}
	return int(n)
}
