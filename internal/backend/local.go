package backend

// local.go is the thin adapter over internal/store described in §4.D: byte
// copies in both directions, invalidate forwarded unchanged. It plays the
// role the donor's shard type plays directly on Cache — here pulled behind
// the Backend trait so Local is interchangeable with Pointer/Remote/Null/
// Sleep at the request plane.
//
// © 2025 arena-cache authors. MIT License.

import (
	"github.com/Voskan/tmem/internal/store"
)

// Local is a Backend implementation over a Store, with byte-copy semantics.
type Local struct {
	store *store.Store
}

// NewLocal wraps an existing Store. The Store is exposed separately (rather
// than constructed inside NewLocal) so callers can size the pool
// independently and share introspection (Len/CurrentBytes) with the backend.
func NewLocal(s *store.Store) *Local {
	return &Local{store: s}
}

func (l *Local) Name() string { return "local" }

func (l *Local) Put(key, value []byte) error {
	_, err := l.store.Put(key, value)
	return err
}

func (l *Local) Get(key []byte, out []byte) (int, error) {
	n, err := l.store.Get(key, out)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (l *Local) Invalidate(key []byte) {
	l.store.Invalidate(key)
}

func (l *Local) InvalidateAll() {
	l.store.InvalidateAll()
}

// Store exposes the underlying Store for diagnostics (Len, CurrentBytes).
func (l *Local) Store() *store.Store { return l.store }

var _ Backend = (*Local)(nil)
