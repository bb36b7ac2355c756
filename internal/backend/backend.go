// Package backend implements the four-operation trait of spec.md §4.C and
// its concrete implementations: Local (§4.D), Pointer (§4.E), Remote
// (§4.F), and Null/Sleep (§4.G).
//
// The donor's equivalent indirection point is pkg/metrics.go's metricsSink
// interface (a tiny trait with a noop and a "real" implementation selected
// once at construction time) — Backend generalizes that shape to the four
// tmem operations and adds a name-keyed Registry so a process can hold
// several candidate backends and select one at start-up (SPEC_FULL.md
// supplemented feature 2), instead of the donor's single global sink.
//
// © 2025 arena-cache authors. MIT License.
package backend

// Backend is the four-operation trait every implementation satisfies
// identically (§4.C). Get writes into out and returns the logical length;
// NotFound is a permitted error (propagated as errs.NotFound).
type Backend interface {
	Put(key, value []byte) error
	Get(key []byte, out []byte) (valueLen int, err error)
	Invalidate(key []byte)
	InvalidateAll()

	// Name identifies the backend for the dispatch-count metric and for
	// Registry lookups (SPEC_FULL.md supplemented feature 2).
	Name() string
}
