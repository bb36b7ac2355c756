// Package errs centralises the error-kind sentinels shared by
// internal/store, internal/backend and pkg/tmem (§7). Keeping them in one
// leaf package lets every layer return and check the *same* sentinel value
// with errors.Is, without internal/store or internal/backend importing the
// public pkg/tmem package (which would create an import cycle, since
// pkg/tmem imports both).
//
// pkg/tmem re-exports each of these as a public var of the same name so
// callers never need to import this package directly.
package errs

import "errors"

var (
	// NotFound is returned by Store.Get/backend Get on an absent key.
	NotFound = errors.New("tmem: not found")

	// OutOfMemory is returned when an allocation needed to service a PUT
	// fails. State is left unchanged.
	OutOfMemory = errors.New("tmem: out of memory")

	// CapacityExhausted is returned when a PUT would insert a new entry
	// past the pool's byte ceiling (§3 invariants, §4.B).
	CapacityExhausted = errors.New("tmem: capacity exhausted")

	// Overflow is returned when a request's value_len exceeds TMEM_MAX.
	Overflow = errors.New("tmem: value exceeds scratch buffer")

	// TransientAbort is returned when a copy across the trust boundary
	// fails; callers may retry. Also used to surface remote transport
	// failures to the request plane (§7).
	TransientAbort = errors.New("tmem: transient abort, retry")

	// Busy is returned when a non-blocking lock acquisition fails (request
	// plane serialization, or an already-opened handle).
	Busy = errors.New("tmem: busy")

	// TransportError is returned by the Remote backend's opaque transport
	// call. The request plane coerces this to TransientAbort (§7).
	TransportError = errors.New("tmem: transport error")

	// InvalidCommand is returned for an unrecognised command code.
	InvalidCommand = errors.New("tmem: invalid command")
)
