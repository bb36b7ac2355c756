package backend

// null.go and sleep.go implement §4.G: A/B benchmark harnesses that persist
// no state, grounded on the donor's noopMetrics (pkg/metrics.go) — the same
// "always-succeed, do-nothing" shape, here satisfying the four-operation
// Backend trait instead of metricsSink.
//
// © 2025 arena-cache authors. MIT License.

// Null returns success for Put/Invalidate and value_len = 0 for Get. It
// exists purely so the request plane's overhead can be measured in
// isolation from any real storage.
type Null struct{}

func NewNull() *Null { return &Null{} }

func (Null) Name() string                            { return "null" }
func (Null) Put(key, value []byte) error             { return nil }
func (Null) Get(key []byte, out []byte) (int, error) { return 0, nil }
func (Null) Invalidate(key []byte)                   {}
func (Null) InvalidateAll()                          {}

var _ Backend = Null{}
