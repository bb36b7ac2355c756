package tmem

// errors.go re-exports the error-kind sentinels of internal/errs (§7) as the
// public API surface, so callers check errors with errors.Is(err,
// tmem.ErrBusy) etc. without importing an internal package. This mirrors
// the donor's config.go sentinel style (errInvalidCap, errInvalidTTL, ...),
// scaled up to the full error taxonomy spec.md §7 requires.
//
// © 2025 arena-cache authors. MIT License.

import "github.com/Voskan/tmem/internal/errs"

var (
	// ErrNotFound is returned by GET on an absent key. The request plane
	// itself never returns this to callers that go through Handle.Get —
	// it is coerced to a zero-length success (§7) — but it is exposed for
	// callers that talk to a Backend directly.
	ErrNotFound = errs.NotFound

	// ErrOutOfMemory signals an allocation failure while servicing PUT.
	ErrOutOfMemory = errs.OutOfMemory

	// ErrCapacityExhausted signals a PUT that would exceed the pool's byte
	// ceiling on a non-updating insertion.
	ErrCapacityExhausted = errs.CapacityExhausted

	// ErrOverflow signals a PUT whose value_len exceeds TMEM_MAX.
	ErrOverflow = errs.Overflow

	// ErrTransientAbort signals a failed copy across the trust boundary,
	// or (after coercion) a Remote backend transport failure. Callers may
	// retry.
	ErrTransientAbort = errs.TransientAbort

	// ErrBusy signals a non-blocking lock acquisition failure: either the
	// request-plane's per-handle command lock, or re-Open of an
	// already-open Handle.
	ErrBusy = errs.Busy

	// ErrTransportError is the Remote backend's raw transport failure,
	// before the request plane coerces it to ErrTransientAbort.
	ErrTransportError = errs.TransportError

	// ErrInvalidCommand signals an unrecognised command code.
	ErrInvalidCommand = errs.InvalidCommand
)
