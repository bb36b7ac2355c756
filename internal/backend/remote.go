package backend

// remote.go implements §4.F: every call populates a single shared control
// region with a tagged request and invokes an opaque transport primitive.
// The hypervisor/transport itself is out of scope (spec.md §1); Transport
// is the seam spec.md calls send_control(op, control_page).
//
// Two things generalize the donor's patterns here:
//   - the single mutex serializing all calls mirrors pkg/config.go's
//     single-writer discipline, just applied to a shared struct instead of
//     a config object;
//   - concurrent GETs for the same key are deduplicated with
//     golang.org/x/sync/singleflight, generalizing pkg/loader.go's
//     loaderGroup from "cache-miss loader" to "transport-call
//     deduplicator" — both exist to stop N goroutines from redundantly
//     paying for the same expensive, serialized operation.
//
// © 2025 arena-cache authors. MIT License.

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Voskan/tmem/internal/errs"
)

// OpCode tags the request shape currently populating a ControlRegion.
type OpCode uint8

const (
	OpPut OpCode = iota + 1
	OpGet
	OpInvalidate
)

// ControlRegion is the one-page shared record described in §6: "One page;
// starts with a Request record at offset 0." We model the "page" as a Go
// struct rather than a literal byte buffer since nothing in this module
// dereferences raw physical addresses; AddressTranslator is the seam where
// a real implementation would convert Go-visible buffers into whatever
// addressing the transport expects.
type ControlRegion struct {
	Op OpCode

	// PUT / INVALIDATE
	Key   []byte
	Value []byte

	// GET: the transport is expected to write the retrieved length into
	// ValueLen and copy bytes into Value (sized by the caller to TMEM_MAX).
	ValueLen int
}

// AddressTranslator converts a caller-visible buffer into whatever
// addressing the Transport expects (§4.F's to_remote_addr collaborator).
// The default Transport implementations in this package ignore it; it
// exists so a real hypervisor transport can be plugged in without changing
// Remote's call sites.
type AddressTranslator interface {
	ToRemoteAddr(buf []byte) uintptr
}

// IdentityTranslator is a no-op AddressTranslator suitable for in-process
// transports (LoopbackTransport, tests).
type IdentityTranslator struct{}

func (IdentityTranslator) ToRemoteAddr(buf []byte) uintptr {
	if len(buf) == 0 {
		return 0
	}
	return uintptr(len(buf)) // placeholder: no real out-of-process addressing
}

// Transport is the opaque primitive spec.md calls send_control(op,
// control_phys_addr): it services one ControlRegion in place and returns a
// non-nil error on failure, which Remote reports as errs.TransportError.
type Transport interface {
	Send(region *ControlRegion) error
}

// Remote is the Backend implementation of §4.F.
type Remote struct {
	mu         sync.Mutex // serializes all calls through the control region
	region     ControlRegion
	transport  Transport
	translator AddressTranslator
	getGroup   singleflight.Group
}

// NewRemote constructs a Remote backend over the given transport. translator
// may be nil, in which case IdentityTranslator is used.
func NewRemote(transport Transport, translator AddressTranslator) *Remote {
	if translator == nil {
		translator = IdentityTranslator{}
	}
	return &Remote{transport: transport, translator: translator}
}

func (r *Remote) Name() string { return "remote" }

func (r *Remote) Put(key, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.region = ControlRegion{Op: OpPut, Key: key, Value: value}
	_ = r.translator.ToRemoteAddr(key)
	_ = r.translator.ToRemoteAddr(value)

	if err := r.transport.Send(&r.region); err != nil {
		return errs.TransportError
	}
	return nil
}

// Get is deduplicated across concurrent callers requesting the same key:
// only one goroutine actually serializes through the control region and
// transport; the rest share its result. This does not change the linearized
// ordering guarantee of §5 (a PUT that completed before these GETs began is
// still visible to all of them), it only collapses redundant transport
// round trips.
func (r *Remote) Get(key []byte, out []byte) (int, error) {
	dedupKey := string(key)

	type result struct {
		n   int
		buf []byte
	}

	v, err, _ := r.getGroup.Do(dedupKey, func() (any, error) {
		r.mu.Lock()
		defer r.mu.Unlock()

		r.region = ControlRegion{Op: OpGet, Key: key, Value: make([]byte, len(out))}
		_ = r.translator.ToRemoteAddr(key)

		if sendErr := r.transport.Send(&r.region); sendErr != nil {
			return nil, errs.TransportError
		}
		if r.region.ValueLen == 0 {
			return nil, errs.NotFound
		}
		buf := make([]byte, r.region.ValueLen)
		copy(buf, r.region.Value)
		return result{n: r.region.ValueLen, buf: buf}, nil
	})
	if err != nil {
		return 0, err
	}

	res := v.(result)
	n := copy(out, res.buf)
	return n, nil
}

func (r *Remote) Invalidate(key []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.region = ControlRegion{Op: OpInvalidate, Key: key}
	_ = r.translator.ToRemoteAddr(key)
	_ = r.transport.Send(&r.region) // invalidate is fire-and-forget per §4.B
}

// InvalidateAll is not part of the wire request shapes enumerated in §4.F.
// Remote has no key enumeration to loop over locally, so it relies on the
// transport honoring OpInvalidate with a nil Key as "clear everything" —
// documented here since §4.F's three request shapes do not name an
// explicit bulk form.
func (r *Remote) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.region = ControlRegion{Op: OpInvalidate, Key: nil}
	_ = r.transport.Send(&r.region)
}

var _ Backend = (*Remote)(nil)
