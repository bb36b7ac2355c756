// Package tmem implements the transcendent-memory cache core of spec.md: a
// concurrent in-memory store for fixed-size page payloads (internal/store),
// a swappable backend trait (internal/backend), and the request/control
// plane (this package) that drives PUT/GET/INVALIDATE/INVALIDATE_ALL plus
// mode-bit control.
//
// System is the single ambient value §9's design notes mandate in place of
// free-floating process statics: one constructed value holds the Store (via
// its active Backend), the ModeRegister default, GenerateSize, and the
// backend registry, and is threaded explicitly to every Handle.
//
// © 2025 arena-cache authors. MIT License.
package tmem

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Voskan/tmem/internal/backend"
	"github.com/Voskan/tmem/internal/store"
)

// Stats is the Observable Counters surface of §6: puts, gets, invalidates,
// controls, generates, busy, and a single total of backend dispatches
// (BackendCalls) across every backend that has been active; per-backend
// dispatch counts are kept only by the Prometheus sink. System.Stats values
// increase monotonically; Handle.Stats values reset on Open and Close.
type Stats struct {
	Puts         uint64
	Gets         uint64
	Invalidates  uint64
	Controls     uint64
	Generates    uint64
	Busy         uint64
	BackendName  string
	BackendCalls uint64
}

// System is the process-wide ambient state described in §9.
type System struct {
	cfg *config

	registry *backend.Registry
	active   backend.Backend

	logger  *zap.Logger
	metrics metricsSink

	mode         atomic.Uint32
	generateSize atomic.Uint64

	puts, gets, invalidates, controls, generates, busy, backendCalls atomic.Uint64

	// allocScratch allocates a Handle's scratch buffer. Overridable by tests
	// via SetScratchAllocHook to exercise Open's OutOfMemory path, mirroring
	// internal/store.Store.SetAllocHook.
	allocScratch func(n int) ([]byte, error)
}

// New constructs a System. Unless WithBackend is supplied, a Local backend
// over a freshly created Store (sized per WithPoolBytes/WithShards) is
// registered and activated — the common case of "just give me a working
// cache" — while still enforcing the registry's first-writer-wins-per-name
// discipline (SPEC_FULL.md supplemented feature 2).
func New(opts ...Option) (*System, error) {
	cfg := defaultConfig()
	if err := applyOptions(cfg, opts); err != nil {
		return nil, err
	}

	sys := &System{
		cfg:      cfg,
		registry: backend.NewRegistry(),
		logger:   cfg.logger,
		metrics:  newMetricsSink(cfg.registry),
		allocScratch: func(n int) ([]byte, error) {
			return make([]byte, n), nil
		},
	}

	active := cfg.backend
	if active == nil {
		st := store.New(cfg.poolBytes, cfg.shards)
		active = backend.NewLocal(st)
	}
	if err := sys.registry.Register(active); err != nil {
		return nil, err
	}
	sys.active = active

	sys.logCommandTable()
	sys.logger.Info("tmem system initialized",
		zap.String("backend", active.Name()),
		zap.Int64("pool_bytes", cfg.poolBytes),
		zap.Int("tmem_max", cfg.tmemMax),
	)
	return sys, nil
}

// logCommandTable emits the stable command-code table once, at construction
// (§6: "logged at init for diagnostic purposes").
func (s *System) logCommandTable() {
	for _, c := range commandTable {
		s.logger.Info("tmem command code", zap.Uint8("code", uint8(c)), zap.String("name", c.String()))
	}
}

// RegisterBackend adds an additional named backend to the registry without
// making it active (SPEC_FULL.md supplemented feature 2: a process may hold
// several candidate backends — Local, Pointer, Remote, Null, Sleep — and
// pick one at start-up). The registry's first-writer-wins-per-name
// discipline still applies: re-registering a name already taken is an
// error.
func (s *System) RegisterBackend(b backend.Backend) error {
	return s.registry.Register(b)
}

// SelectBackend switches the active backend to the named, already
// registered candidate. Intended to be called once at start-up, after the
// desired candidates have been registered; nothing in the implementation
// prevents a later call, but mid-traffic swaps are the caller's
// responsibility to reason about.
func (s *System) SelectBackend(name string) error {
	b, err := s.registry.Select(name)
	if err != nil {
		return err
	}
	s.active = b
	s.logger.Info("tmem backend selected", zap.String("backend", name))
	return nil
}

// BackendNames lists every backend known to the registry (active and
// candidate).
func (s *System) BackendNames() []string { return s.registry.Names() }

// ActiveBackendName returns the name of the backend servicing dispatch.
func (s *System) ActiveBackendName() string { return s.active.Name() }

// NewHandle returns a new, closed Handle bound to this System. Call Open
// before issuing commands.
func (s *System) NewHandle() *Handle {
	return &Handle{sys: s}
}

// SetScratchAllocHook overrides the allocator used by Handle.Open to build
// the per-handle scratch buffer. Test-only.
func (s *System) SetScratchAllocHook(fn func(n int) ([]byte, error)) {
	s.allocScratch = fn
}

// SetGenerateSize sets GenerateSize (§3), used by GET when the GENERATE mode
// bit is set. Implements the GENERATE_SIZE command (§4.H).
func (s *System) SetGenerateSize(n uint64) {
	s.generateSize.Store(n)
	s.controls.Add(1)
	s.metrics.incControl()
}

// Control toggles the given mode bits in the process-wide ModeRegister
// (§4.H: "CONTROL: bitset; toggles mode bits"). Implements the CONTROL
// command.
func (s *System) Control(bits Mode) {
	for {
		old := s.mode.Load()
		if s.mode.CompareAndSwap(old, old^uint32(bits)) {
			break
		}
	}
	s.controls.Add(1)
	s.metrics.incControl()
}

// ModeSnapshot returns the current process-wide ModeRegister value.
func (s *System) ModeSnapshot() Mode { return Mode(s.mode.Load()) }

// Stats returns a point-in-time snapshot of the Observable Counters.
func (s *System) Stats() Stats {
	return Stats{
		Puts:         s.puts.Load(),
		Gets:         s.gets.Load(),
		Invalidates:  s.invalidates.Load(),
		Controls:     s.controls.Load(),
		Generates:    s.generates.Load(),
		Busy:         s.busy.Load(),
		BackendName:  s.active.Name(),
		BackendCalls: s.backendCalls.Load(),
	}
}
