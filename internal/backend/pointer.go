package backend

// pointer.go implements the aliasing fast path of §4.E: PUT takes ownership
// of the caller's key/value buffers (no copy) and GET hands back a borrow of
// the stored bytes rather than copying them out.
//
// §4.E calls out a hazard in the original source: raw pointers with no
// lifetime discipline, so a concurrent Invalidate could free memory a
// reader is still dereferencing. The design notes mandate option (a):
// refcount the value so a Borrow keeps the entry alive across a concurrent
// Invalidate. We keep that bookkeeping explicitly via atomic refcounts
// (Borrow and Put add a reference, Release and Invalidate drop one) even
// though the Go garbage collector already makes the naive translation
// memory-safe (a Borrow's slice header keeps the backing array alive
// regardless). The counts are maintained but never read: no code path or
// accessor acts on an entry reaching zero, and the actual release of memory
// is left to the GC.
//
// © 2025 arena-cache authors. MIT License.

import (
	"sync"
	"sync/atomic"

	"github.com/Voskan/tmem/internal/errs"
	"github.com/Voskan/tmem/internal/fingerprint"
	"github.com/Voskan/tmem/internal/store"
	"github.com/Voskan/tmem/internal/unsafehelpers"
)

// PointerPoolBytes is the Pointer backend's capacity ceiling (§6: 1 GiB,
// versus the Local/Store default of 64 MiB).
const PointerPoolBytes = 1 << 30

type pointerEntry struct {
	key   []byte
	value []byte
	refs  atomic.Int32 // 1 while linked in the index; +1 per outstanding Borrow
}

// Borrow is a caller's aliased view into a Pointer-backend value, valid
// until Release is called. It must be released exactly once.
type Borrow struct {
	ent *pointerEntry
	val []byte
}

// Bytes returns the borrowed value bytes: the snapshot taken under the
// shard lock at Borrow time, not a live read of the entry's current value.
// A concurrent Put-update of the same key replaces ent.value wholesale
// rather than mutating it in place, so this snapshot stays stable and
// correctly sized regardless of what the entry's value field points to by
// the time the caller calls Bytes.
func (b *Borrow) Bytes() []byte { return b.val }

// Len returns the logical value length.
func (b *Borrow) Len() int { return len(b.val) }

// Release drops this borrow's reference. The entry's memory becomes
// eligible for collection once its last reference (index link or borrow) is
// released.
func (b *Borrow) Release() {
	b.ent.refs.Add(-1)
}

type pointerShard struct {
	mu      sync.Mutex
	entries map[string]*pointerEntry
}

// Pointer is the aliasing Backend of §4.E.
type Pointer struct {
	shards    []*pointerShard
	shardMask uint64
	poolBytes int64
	used      atomic.Int64
}

// NewPointer constructs a Pointer backend with the given byte ceiling
// (callers typically pass PointerPoolBytes).
func NewPointer(poolBytes int64) *Pointer {
	const shardCount = 64
	p := &Pointer{
		shards:    make([]*pointerShard, shardCount),
		shardMask: shardCount - 1,
		poolBytes: poolBytes,
	}
	for i := range p.shards {
		p.shards[i] = &pointerShard{entries: make(map[string]*pointerEntry)}
	}
	return p
}

func (p *Pointer) Name() string { return "pointer" }

func (p *Pointer) shardFor(h uint64) *pointerShard {
	return p.shards[h&p.shardMask]
}

// Put takes ownership of key and value: no copy is made. If the key already
// exists, the old value is replaced (the previous slice becomes unreferenced
// once any outstanding Borrow releases it) and the duplicate incoming key is
// simply left for the garbage collector, matching §4.E's "free the incoming
// duplicate k" in a GC'd language.
func (p *Pointer) Put(key, value []byte) error {
	if len(value) > store.PageBytes {
		value = value[:store.PageBytes]
	}
	fp := fingerprint.Of(key)
	sh := p.shardFor(fp.Hash)
	keyStr := unsafehelpers.BytesToString(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if ent, ok := sh.entries[keyStr]; ok {
		ent.value = value
		return nil
	}

	if p.used.Load()+store.PageBytes > p.poolBytes {
		return errs.CapacityExhausted
	}

	ent := &pointerEntry{key: key, value: value}
	ent.refs.Store(1)
	sh.entries[keyStr] = ent
	p.used.Add(store.PageBytes)
	return nil
}

// Get returns a Borrow of the stored value. The lookup key is not retained
// (§4.E: "ownership of the lookup key is consumed and freed" — in Go this is
// simply not storing it). Callers must call Borrow.Release when done.
func (p *Pointer) Get(key []byte, out []byte) (int, error) {
	borrow, ok := p.Borrow(key)
	if !ok {
		return 0, errs.NotFound
	}
	defer borrow.Release()
	n := copy(out, borrow.Bytes())
	return n, nil
}

// Borrow is the zero-copy counterpart of Get, exposed so callers that can
// tolerate an aliased read (rather than a defensive copy) avoid paying for
// one. The request plane's DUMMY/SILENT/GENERATE modes use the copying Get;
// a direct client of the Pointer backend may prefer Borrow.
func (p *Pointer) Borrow(key []byte) (*Borrow, bool) {
	fp := fingerprint.Of(key)
	sh := p.shardFor(fp.Hash)
	keyStr := unsafehelpers.BytesToString(key)

	sh.mu.Lock()
	ent, ok := sh.entries[keyStr]
	if !ok {
		sh.mu.Unlock()
		return nil, false
	}
	ent.refs.Add(1)
	val := ent.value
	sh.mu.Unlock()

	return &Borrow{ent: ent, val: val}, true
}

// Invalidate unlinks the entry; its memory is released once the last
// outstanding Borrow (if any) is released.
func (p *Pointer) Invalidate(key []byte) {
	fp := fingerprint.Of(key)
	sh := p.shardFor(fp.Hash)
	keyStr := unsafehelpers.BytesToString(key)

	sh.mu.Lock()
	ent, ok := sh.entries[keyStr]
	if ok {
		delete(sh.entries, keyStr)
	}
	sh.mu.Unlock()

	if ok {
		ent.refs.Add(-1)
		p.used.Add(-store.PageBytes)
	}
}

func (p *Pointer) InvalidateAll() {
	for _, sh := range p.shards {
		sh.mu.Lock()
		dropped := len(sh.entries)
		for _, ent := range sh.entries {
			ent.refs.Add(-1)
		}
		sh.entries = make(map[string]*pointerEntry)
		sh.mu.Unlock()
		if dropped > 0 {
			p.used.Add(-int64(dropped) * store.PageBytes)
		}
	}
}

// Len returns the number of live entries, for diagnostics.
func (p *Pointer) Len() int {
	n := 0
	for _, sh := range p.shards {
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}

var _ Backend = (*Pointer)(nil)
