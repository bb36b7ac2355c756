package tmem

// config.go defines System's internal configuration object and the
// functional options that influence it, directly in the shape of the
// donor's pkg/config.go: defaults computed in defaultConfig(), options
// applied and validated in applyOptions(), sentinel errors for invalid
// input.
//
// © 2025 arena-cache authors. MIT License.

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Voskan/tmem/internal/backend"
	"github.com/Voskan/tmem/internal/store"
	"github.com/Voskan/tmem/internal/unsafehelpers"
)

// Compile-time-constant defaults published in §6.
const (
	// PageBytes is the fixed per-entry payload ceiling (PAGE_BYTES).
	PageBytes = store.PageBytes

	// DefaultPoolBytes is the Local/Store backend's default pool ceiling
	// (POOL_BYTES = 64 MiB).
	DefaultPoolBytes = 64 << 20

	// PointerPoolBytes is the Pointer backend's default pool ceiling
	// (POOL_BYTES = 1 GiB for that backend).
	PointerPoolBytes = backend.PointerPoolBytes

	// DefaultTmemMax is the minimum and default scratch-buffer size per
	// handle (TMEM_MAX >= PAGE_BYTES).
	DefaultTmemMax = PageBytes

	// DefaultSleepMicros is SLEEP_USECS (~10,000).
	DefaultSleepMicros = backend.DefaultSleepMicros

	// DefaultKeyMax bounds key_bytes length (1..KEY_MAX). The original
	// driver does not publish a fixed KEY_MAX; 256 bytes is ample for any
	// realistic opaque key and keeps Overflow reachable in tests without
	// huge fixtures.
	DefaultKeyMax = 256
)

// config bundles every knob influencing System behaviour. Immutable once
// System is constructed, matching the donor's "no live mutation" stance.
type config struct {
	poolBytes   int64
	keyMax      int
	tmemMax     int
	sleepMicros int64
	shards      int

	logger   *zap.Logger
	registry *prometheus.Registry
	backend  backend.Backend
}

func defaultConfig() *config {
	return &config{
		poolBytes:   DefaultPoolBytes,
		keyMax:      DefaultKeyMax,
		tmemMax:     DefaultTmemMax,
		sleepMicros: DefaultSleepMicros,
		shards:      store.DefaultShardCount,
		logger:      zap.NewNop(),
	}
}

// Option is a functional option for New.
type Option func(*config)

// WithLogger plugs an external zap.Logger. The request plane never logs on
// the hot path; only slow/diagnostic events (§9 ambient stack).
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables Prometheus metrics collection. Passing nil disables
// metrics (default), matching the donor's WithMetrics.
func WithMetrics(reg *prometheus.Registry) Option {
	return func(c *config) {
		c.registry = reg
	}
}

// WithPoolBytes overrides POOL_BYTES for the default Local backend that New
// builds over a fresh Store; it has no effect when WithBackend supplies the
// backend. Tests use this to build a tiny pool and exercise
// CapacityExhausted without allocating 64 MiB.
func WithPoolBytes(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.poolBytes = n
		}
	}
}

// WithKeyMax overrides KEY_MAX.
func WithKeyMax(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.keyMax = n
		}
	}
}

// WithScratchSize overrides TMEM_MAX. The value is rounded up to a whole
// number of PageBytes via unsafehelpers.AlignUp, then floored at PageBytes
// (§6: TMEM_MAX >= PAGE_BYTES).
func WithScratchSize(n int) Option {
	return func(c *config) {
		if n <= 0 {
			return
		}
		aligned := int(unsafehelpers.AlignUp(uintptr(n), PageBytes))
		if aligned < PageBytes {
			aligned = PageBytes
		}
		c.tmemMax = aligned
	}
}

// WithSleepMicros overrides SLEEP_USECS for the SLEEPY mode bit. It does
// not affect a Sleep backend, whose delay is fixed by backend.NewSleep.
func WithSleepMicros(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.sleepMicros = n
		}
	}
}

// WithBackend overrides the default Local-over-Store backend with a
// caller-supplied one (Pointer, Remote, Null, Sleep, or a custom
// implementation). The registry still enforces first-writer-wins per
// backend name at System construction.
func WithBackend(b backend.Backend) Option {
	return func(c *config) {
		if b != nil {
			c.backend = b
		}
	}
}

// WithShards overrides the Store's internal shard count. Must be a power of
// two; invalid values are ignored (falls back to store.DefaultShardCount).
func WithShards(n int) Option {
	return func(c *config) {
		if n > 0 && unsafehelpers.IsPowerOfTwo(uintptr(n)) {
			c.shards = n
		}
	}
}

func applyOptions(cfg *config, opts []Option) error {
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.poolBytes <= 0 {
		return errInvalidPoolBytes
	}
	if cfg.keyMax <= 0 {
		return errInvalidKeyMax
	}
	if cfg.tmemMax < PageBytes {
		return errInvalidTmemMax
	}
	return nil
}

var (
	errInvalidPoolBytes = errors.New("tmem: pool bytes must be > 0")
	errInvalidKeyMax    = errors.New("tmem: key max must be > 0")
	errInvalidTmemMax   = errors.New("tmem: scratch size must be >= PageBytes")
)
