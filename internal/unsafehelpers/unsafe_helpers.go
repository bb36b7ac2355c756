// Package unsafehelpers centralises **all** unavoidable usage of the
// `unsafe` standard-library package so that the rest of tmem stays clean and
// easier to audit. Every helper is documented with clear pre-/post-
// conditions.
//
// ⚠️  DISCLAIMER  These helpers deliberately break the Go memory-safety
// model for the sake of zero-allocation conversions. Use ONLY inside this
// repository; they are not part of the public API and may change without
// notice. Misuse will lead to subtle data-races or garbage-collector
// corruption.
//
// All functions are go:linkname-free, cgo-free and pure Go 1.24.
//
// © 2025 arena-cache authors. MIT License.
package unsafehelpers

import "unsafe"

/* -------------------------------------------------------------------------
   1. Zero-copy string/[]byte conversions
   ------------------------------------------------------------------------- */

// BytesToString converts a byte slice to an immutable string without
// allocating. The caller must guarantee that b will never be modified for
// the lifetime of the resulting string; otherwise the program exhibits
// undefined behaviour.
//
// Used by internal/store to key its per-shard map by exact key bytes without
// paying for a copy on every Get (the map lookup does not retain the
// returned string beyond the call). spec.md guarantees key_bytes is never
// empty (1..KEY_MAX), so the nil-pointer edge case of a zero-length slice
// never needs to be reached on that path; we still guard it here rather
// than carry the donor's unguarded panic on b[0] of an empty slice forward.
func BytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

// StringToBytes re-interprets string data as a byte slice using unsafe.Pointer.
// The slice MUST remain read-only; writing to it mutates immutable string
// storage and will crash.
func StringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	strHdr := (*[2]uintptr)(unsafe.Pointer(&s))
	return unsafe.Slice((*byte)(unsafe.Pointer(strHdr[0])), strHdr[1])
}

/* -------------------------------------------------------------------------
   2. Alignment helpers
   ------------------------------------------------------------------------- */

// AlignUp rounds x up to the nearest multiple of align (which must be a
// power of two). Used by pkg/tmem/config.go to round a caller-supplied
// scratch buffer size up to a whole number of PageBytes.
func AlignUp(x, align uintptr) uintptr {
	return (x + align - 1) &^ (align - 1)
}

// IsPowerOfTwo returns true if x is a power of two (exactly one bit set).
// Used by pkg/tmem/config.go to validate an overridden shard count.
func IsPowerOfTwo(x uintptr) bool {
	return x != 0 && (x&(x-1)) == 0
}
