package tmem

// handle.go implements the request plane of §4.H: a file-like handle with a
// closed → opened → {command loop} → closed state machine, one scratch
// buffer per handle, and non-blocking command serialization (Busy on
// contention). This generalizes the donor's non-blocking-lock idiom
// (sync.Mutex.TryLock, as used for the single global command lock the
// spec's correctness floor describes) to a per-handle lock, which the spec
// explicitly permits ("a conforming implementation may use per-handle state
// and drop this global lock").
//
// © 2025 arena-cache authors. MIT License.

import (
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Voskan/tmem/internal/errs"
)

const (
	handleClosed int32 = iota
	handleOpen
)

var errHandleNotOpen = errors.New("tmem: handle not open")

// Handle is a caller's opened session against the request plane (§4.H, §9
// glossary). Not safe for concurrent command calls beyond what the
// serialization guarantees: concurrent callers race for the command lock,
// the loser observing Busy, never a torn operation.
type Handle struct {
	sys *System

	state      atomic.Int32
	cmdLock    sync.Mutex
	scratch    []byte
	keyScratch []byte

	// local per-handle counters (SPEC_FULL.md supplemented feature 1),
	// reset whenever the handle is (re-)opened.
	puts, gets, invalidates, controls, generates, busy atomic.Uint64

	// faultHook simulates a copy-across-trust-boundary failure. Test-only;
	// nil means copies never fail.
	faultHook func() error
}

// Open allocates the scratch buffer and transitions closed → opened. A
// second Open on an already-open handle returns Busy (§8 scenario E6)
// without blocking.
func (h *Handle) Open() error {
	if !h.state.CompareAndSwap(handleClosed, handleOpen) {
		return ErrBusy
	}
	scratch, err := h.sys.allocScratch(h.sys.cfg.tmemMax)
	if err != nil {
		h.state.Store(handleClosed)
		return ErrOutOfMemory
	}
	h.scratch = scratch
	h.keyScratch = make([]byte, h.sys.cfg.keyMax)
	h.resetStats()
	return nil
}

// Close frees the scratch buffer and transitions to closed. Idempotent.
func (h *Handle) Close() {
	h.cmdLock.Lock()
	defer h.cmdLock.Unlock()
	h.state.Store(handleClosed)
	h.scratch = nil
	h.keyScratch = nil
	h.resetStats()
}

func (h *Handle) resetStats() {
	h.puts.Store(0)
	h.gets.Store(0)
	h.invalidates.Store(0)
	h.controls.Store(0)
	h.generates.Store(0)
	h.busy.Store(0)
}

// Stats returns a point-in-time snapshot of this handle's local command
// counters (SPEC_FULL.md supplemented feature 1), distinct from System's
// process-wide totals. Reset whenever the handle transitions through Open
// or Close.
func (h *Handle) Stats() Stats {
	return Stats{
		Puts:        h.puts.Load(),
		Gets:        h.gets.Load(),
		Invalidates: h.invalidates.Load(),
		Controls:    h.controls.Load(),
		Generates:   h.generates.Load(),
		Busy:        h.busy.Load(),
		BackendName: h.sys.active.Name(),
	}
}

// SetFaultHook installs a copy-in/copy-out fault simulator. Test-only.
func (h *Handle) SetFaultHook(fn func() error) { h.faultHook = fn }

// enter acquires the per-handle command lock without blocking (§4.H
// "Returns Busy if currently held") and checks the handle is open.
func (h *Handle) enter() error {
	if h.state.Load() != handleOpen {
		return errHandleNotOpen
	}
	if !h.cmdLock.TryLock() {
		h.sys.busy.Add(1)
		h.busy.Add(1)
		h.sys.metrics.incBusy()
		return ErrBusy
	}
	return nil
}

func (h *Handle) exit() { h.cmdLock.Unlock() }

// resolveMode implements "the per-call flags, if non-zero, overrides the
// process-wide ModeRegister for that call only" (§4.H).
func (h *Handle) resolveMode(flags Mode) Mode {
	if flags != 0 {
		return flags
	}
	return h.sys.ModeSnapshot()
}

func (h *Handle) copyFault() error {
	if h.faultHook == nil {
		return nil
	}
	return h.faultHook()
}

func (h *Handle) sleep() {
	time.Sleep(jitter(h.sys.cfg.sleepMicros))
}

// jitter returns a duration around micros microseconds, jittered by up to
// 10% either way, mirroring internal/backend.Sleep's jitter.
func jitter(micros int64) time.Duration {
	if micros <= 0 {
		return 0
	}
	spread := micros / 10
	if spread <= 0 {
		return time.Duration(micros) * time.Microsecond
	}
	delta := rand.Int64N(2*spread+1) - spread
	return time.Duration(micros+delta) * time.Microsecond
}

func (h *Handle) checkKey(key []byte) error {
	if len(key) == 0 || len(key) > h.sys.cfg.keyMax {
		return ErrOverflow
	}
	return nil
}

// coerceTransportError implements §7's "TransportError ... surfaced as
// TransientAbort at the request plane": a Remote backend's opaque transport
// failure is indistinguishable, from a caller's point of view, from a
// failed copy across the trust boundary. Other backend errors pass through
// unchanged.
func coerceTransportError(err error) error {
	if errors.Is(err, errs.TransportError) {
		return ErrTransientAbort
	}
	return err
}

// Put implements the PUT command (§4.H). Key and value are copied into the
// handle's scratch buffers before any mode logic runs, except that GENERATE
// skips the value copy-in and persists whatever the scratch buffer already
// holds (§9 open question 2).
func (h *Handle) Put(req PutRequest) error {
	if err := h.enter(); err != nil {
		return err
	}
	defer h.exit()

	if err := h.checkKey(req.Key); err != nil {
		return err
	}
	if len(req.Value) > len(h.scratch) {
		return ErrOverflow
	}
	if err := h.copyFault(); err != nil {
		return ErrTransientAbort
	}

	key := append(h.keyScratch[:0], req.Key...)
	mode := h.resolveMode(req.Flags)

	var value []byte
	if mode&Generate != 0 {
		n := min(len(req.Value), len(h.scratch))
		value = h.scratch[:n]
		h.sys.generates.Add(1)
		h.generates.Add(1)
		h.sys.metrics.incGenerate()
	} else {
		n := copy(h.scratch, req.Value)
		value = h.scratch[:n]
	}

	h.sys.puts.Add(1)
	h.puts.Add(1)
	h.sys.metrics.incPut()

	if mode&Dummy != 0 {
		return nil
	}
	if mode&Sleepy != 0 {
		h.sleep()
	}

	h.sys.backendCalls.Add(1)
	h.sys.metrics.incDispatch(h.sys.active.Name())
	return coerceTransportError(h.sys.active.Put(key, value))
}

// Get implements the GET command (§4.H). DUMMY wins over GENERATE when both
// are set (§9 open question 1): the backend is not queried and the scratch
// buffer is not touched in either case, so checking DUMMY first is
// sufficient to reproduce that precedence.
func (h *Handle) Get(req GetRequest) (int, error) {
	if err := h.enter(); err != nil {
		return 0, err
	}
	defer h.exit()

	if err := h.checkKey(req.Key); err != nil {
		return 0, err
	}
	if err := h.copyFault(); err != nil {
		return 0, ErrTransientAbort
	}

	key := append(h.keyScratch[:0], req.Key...)
	mode := h.resolveMode(req.Flags)

	h.sys.gets.Add(1)
	h.gets.Add(1)
	h.sys.metrics.incGet()

	if mode&Dummy != 0 {
		return 0, nil
	}

	if mode&Generate != 0 {
		h.sys.generates.Add(1)
		h.generates.Add(1)
		h.sys.metrics.incGenerate()
		n := min(int(h.sys.generateSize.Load()), len(req.Out), len(h.scratch))
		copy(req.Out[:n], h.scratch[:n])
		return n, nil
	}

	if mode&Sleepy != 0 {
		h.sleep()
	}

	h.sys.backendCalls.Add(1)
	h.sys.metrics.incDispatch(h.sys.active.Name())

	n, err := h.sys.active.Get(key, h.scratch)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return 0, nil
		}
		return 0, coerceTransportError(err)
	}

	if mode&Silent != 0 {
		return 0, nil
	}

	copy(req.Out, h.scratch[:n])
	return n, nil
}

// Invalidate implements the INVALIDATE command (§4.H).
func (h *Handle) Invalidate(req InvalRequest) error {
	if err := h.enter(); err != nil {
		return err
	}
	defer h.exit()

	if err := h.checkKey(req.Key); err != nil {
		return err
	}
	if err := h.copyFault(); err != nil {
		return ErrTransientAbort
	}

	key := append(h.keyScratch[:0], req.Key...)
	mode := h.resolveMode(req.Flags)

	h.sys.invalidates.Add(1)
	h.invalidates.Add(1)
	h.sys.metrics.incInvalidate()

	if mode&Dummy != 0 {
		return nil
	}
	if mode&Sleepy != 0 {
		h.sleep()
	}

	h.sys.backendCalls.Add(1)
	h.sys.metrics.incDispatch(h.sys.active.Name())
	h.sys.active.Invalidate(key)
	return nil
}

// InvalidateAll forwards bulk invalidation to the active backend.
func (h *Handle) InvalidateAll() error {
	if err := h.enter(); err != nil {
		return err
	}
	defer h.exit()

	h.sys.invalidates.Add(1)
	h.invalidates.Add(1)
	h.sys.metrics.incInvalidate()
	h.sys.backendCalls.Add(1)
	h.sys.metrics.incDispatch(h.sys.active.Name())
	h.sys.active.InvalidateAll()
	return nil
}

// Control implements the CONTROL command: toggles the given mode bits in
// the process-wide ModeRegister.
func (h *Handle) Control(bits Mode) error {
	if err := h.enter(); err != nil {
		return err
	}
	defer h.exit()
	h.sys.Control(bits)
	h.controls.Add(1)
	return nil
}

// SetGenerateSize implements the GENERATE_SIZE command.
func (h *Handle) SetGenerateSize(n uint64) error {
	if err := h.enter(); err != nil {
		return err
	}
	defer h.exit()
	h.sys.SetGenerateSize(n)
	h.controls.Add(1)
	return nil
}
