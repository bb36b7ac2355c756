// Package store implements the sharded, lock-protected hash index described
// in spec.md §3/§4.B: fingerprint -> Entry, a capacity ceiling, and
// idempotent upsert/lookup/evict semantics.
//
// The donor (github.com/Voskan/arena-cache) shards a map[uint64]*entry per
// shard and relies on a manual key == key check to break hash collisions.
// Here the per-shard index is keyed by the *exact* key bytes
// (map[string]*Entry using an unsafe zero-copy string view of the key) so
// that Go's native map equality — which compares length and bytes — closes
// the prefix-collision hazard spec.md §4.B calls out by construction: two
// keys where one is a prefix of the other can never land on the same map
// slot. The fingerprint hash is only used to pick a shard.
//
// © 2025 arena-cache authors. MIT License.
package store

import (
	"sync"
	"sync/atomic"

	"github.com/Voskan/tmem/internal/errs"
	"github.com/Voskan/tmem/internal/fingerprint"
	"github.com/Voskan/tmem/internal/unsafehelpers"
)

// PageBytes is the fixed payload ceiling per entry (§6).
const PageBytes = 4096

// DefaultShardCount is used when New is given a non-positive shard count.
const DefaultShardCount = 64

type shard struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// Store is the sharded hash index of Entries (§3).
type Store struct {
	shards       []*shard
	shardMask    uint64
	poolBytes    int64
	currentBytes atomic.Int64

	// allocValue is overridable in tests to simulate OutOfMemory on the
	// value-buffer allocation step of put, exercising the transactional
	// cleanup mandated by §4.B / SPEC_FULL.md open question 3.
	allocValue func(n int) ([]byte, error)
}

// New constructs an empty Store with the given pool byte ceiling and shard
// count. shards must be a power of two; New falls back to
// DefaultShardCount otherwise, mirroring the donor's strict power-of-two
// shard validation in pkg/config.go (here relaxed to a safe default instead
// of a constructor error, since the shard count is an internal tuning knob,
// not caller-observable API).
func New(poolBytes int64, shards int) *Store {
	if shards <= 0 || !unsafehelpers.IsPowerOfTwo(uintptr(shards)) {
		shards = DefaultShardCount
	}
	s := &Store{
		shards:    make([]*shard, shards),
		shardMask: uint64(shards - 1),
		poolBytes: poolBytes,
	}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]*Entry)}
	}
	s.allocValue = func(n int) ([]byte, error) {
		return make([]byte, n, PageBytes), nil
	}
	return s
}

// SetAllocHook overrides the value-buffer allocator. Test-only; see
// store_test.go for the induced-OOM transactional test.
func (s *Store) SetAllocHook(fn func(n int) ([]byte, error)) {
	if fn == nil {
		fn = func(n int) ([]byte, error) { return make([]byte, n, PageBytes), nil }
	}
	s.allocValue = fn
}

func (s *Store) shardFor(h uint64) *shard {
	return s.shards[h&s.shardMask]
}

// CurrentBytes reports the sum of PageBytes per present entry (§3 invariant).
func (s *Store) CurrentBytes() int64 { return s.currentBytes.Load() }

// Len returns the total number of entries across all shards. It takes each
// shard lock in turn; the result is a point-in-time approximation under
// concurrent mutation, matching the donor's shard.len() contract.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}

// PutResult reports which of the two successful Put outcomes occurred.
type PutResult uint8

const (
	Inserted PutResult = iota + 1
	Updated
)

// Put implements §4.B put. Key and value are copied; the caller's buffers
// may be reused or mutated immediately after the call returns.
func (s *Store) Put(key, value []byte) (PutResult, error) {
	fp := fingerprint.Of(key)
	sh := s.shardFor(fp.Hash)
	keyStr := unsafehelpers.BytesToString(fp.Key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if ent, ok := sh.entries[keyStr]; ok {
		ent.copyValue(value)
		return Updated, nil
	}

	// Insertion path: admission check happens before any allocation so a
	// refusal never mutates currentBytes (§4.B failure semantics).
	if s.currentBytes.Load()+PageBytes > s.poolBytes {
		return 0, errs.CapacityExhausted
	}

	valBuf, err := s.allocValue(min(len(value), PageBytes))
	if err != nil {
		// Nothing was inserted or reserved yet; state is untouched.
		return 0, errs.OutOfMemory
	}
	n := copy(valBuf, value)
	valBuf = valBuf[:n]

	ent := &Entry{
		KeyBytes:   fp.Key,
		ValueBytes: valBuf,
		ValueLen:   n,
	}
	sh.entries[keyStr] = ent
	s.currentBytes.Add(PageBytes)
	return Inserted, nil
}

// Get implements §4.B get: copies up to min(value_len, PageBytes) bytes into
// out and returns the logical length. out must have capacity >= PageBytes
// for the copy to be lossless; a shorter out truncates silently, matching
// the "copy up to len(out)" contract callers opt into.
func (s *Store) Get(key []byte, out []byte) (int, error) {
	fp := fingerprint.Of(key)
	sh := s.shardFor(fp.Hash)
	keyStr := unsafehelpers.BytesToString(fp.Key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	ent, ok := sh.entries[keyStr]
	if !ok {
		return 0, errs.NotFound
	}
	n := copy(out, ent.ValueBytes[:ent.ValueLen])
	return n, nil
}

// Invalidate implements §4.B invalidate: idempotent, absent key is a silent
// success.
func (s *Store) Invalidate(key []byte) {
	fp := fingerprint.Of(key)
	sh := s.shardFor(fp.Hash)
	keyStr := unsafehelpers.BytesToString(fp.Key)

	sh.mu.Lock()
	if _, ok := sh.entries[keyStr]; ok {
		delete(sh.entries, keyStr)
		s.currentBytes.Add(-PageBytes)
	}
	sh.mu.Unlock()
}

// InvalidateAll implements §4.B invalidate_all: every entry across every
// shard is dropped and currentBytes reset to zero.
func (s *Store) InvalidateAll() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		n := len(sh.entries)
		sh.entries = make(map[string]*Entry)
		sh.mu.Unlock()
		if n > 0 {
			s.currentBytes.Add(-int64(n) * PageBytes)
		}
	}
}
