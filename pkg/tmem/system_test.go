package tmem_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Voskan/tmem/internal/backend"
	"github.com/Voskan/tmem/pkg/tmem"
)

func newHandle(t *testing.T, opts ...tmem.Option) (*tmem.System, *tmem.Handle) {
	t.Helper()
	sys, err := tmem.New(opts...)
	require.NoError(t, err)
	h := sys.NewHandle()
	require.NoError(t, h.Open())
	t.Cleanup(h.Close)
	return sys, h
}

// E1
func TestE1_PutGetRoundTrip(t *testing.T) {
	_, h := newHandle(t)
	require.NoError(t, h.Put(tmem.PutRequest{Key: []byte("foo"), Value: []byte("hello")}))

	out := make([]byte, tmem.PageBytes)
	n, err := h.Get(tmem.GetRequest{Key: []byte("foo"), Out: out})
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out[:n]))
}

// E2
func TestE2_SecondPutOverwrites(t *testing.T) {
	_, h := newHandle(t)
	require.NoError(t, h.Put(tmem.PutRequest{Key: []byte("foo"), Value: []byte("hello")}))
	require.NoError(t, h.Put(tmem.PutRequest{Key: []byte("foo"), Value: []byte("world!")}))

	out := make([]byte, tmem.PageBytes)
	n, err := h.Get(tmem.GetRequest{Key: []byte("foo"), Out: out})
	require.NoError(t, err)
	assert.Equal(t, "world!", string(out[:n]))
}

// E3
func TestE3_InvalidateThenGetIsZeroLength(t *testing.T) {
	_, h := newHandle(t)
	require.NoError(t, h.Put(tmem.PutRequest{Key: []byte("foo"), Value: []byte("x")}))
	require.NoError(t, h.Invalidate(tmem.InvalRequest{Key: []byte("foo")}))

	out := make([]byte, tmem.PageBytes)
	n, err := h.Get(tmem.GetRequest{Key: []byte("foo"), Out: out})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

// E4
func TestE4_NoPrefixCollision(t *testing.T) {
	_, h := newHandle(t)
	require.NoError(t, h.Put(tmem.PutRequest{Key: []byte("a"), Value: []byte("1")}))
	require.NoError(t, h.Put(tmem.PutRequest{Key: []byte("aa"), Value: []byte("22")}))

	out := make([]byte, tmem.PageBytes)
	n, err := h.Get(tmem.GetRequest{Key: []byte("a"), Out: out})
	require.NoError(t, err)
	assert.Equal(t, "1", string(out[:n]))

	n, err = h.Get(tmem.GetRequest{Key: []byte("aa"), Out: out})
	require.NoError(t, err)
	assert.Equal(t, "22", string(out[:n]))
}

// E5
func TestE5_CapacityExhaustedOnOverflowInsert(t *testing.T) {
	_, h := newHandle(t, tmem.WithPoolBytes(tmem.PageBytes*2))

	val := make([]byte, tmem.PageBytes)
	require.NoError(t, h.Put(tmem.PutRequest{Key: []byte("a"), Value: val}))
	require.NoError(t, h.Put(tmem.PutRequest{Key: []byte("b"), Value: val}))

	err := h.Put(tmem.PutRequest{Key: []byte("c"), Value: val})
	assert.ErrorIs(t, err, tmem.ErrCapacityExhausted)
}

// E6
func TestE6_SecondOpenIsBusy(t *testing.T) {
	sys, err := tmem.New()
	require.NoError(t, err)
	h := sys.NewHandle()
	require.NoError(t, h.Open())
	defer h.Close()

	assert.ErrorIs(t, h.Open(), tmem.ErrBusy)
}

// Mode-bit scenario 1: DUMMY.
func TestModeBit_DummySkipsBackend(t *testing.T) {
	sys, h := newHandle(t)
	require.NoError(t, h.Control(tmem.Dummy))

	require.NoError(t, h.Put(tmem.PutRequest{Key: []byte("abc"), Value: []byte("xx")}))

	out := make([]byte, tmem.PageBytes)
	n, err := h.Get(tmem.GetRequest{Key: []byte("abc"), Out: out})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, uint64(0), sys.Stats().BackendCalls)
}

// Mode-bit scenario 2: GENERATE.
func TestModeBit_GenerateFabricatesLength(t *testing.T) {
	sys, h := newHandle(t)
	require.NoError(t, h.Control(tmem.Generate))
	require.NoError(t, h.SetGenerateSize(7))

	out := make([]byte, tmem.PageBytes)
	n, err := h.Get(tmem.GetRequest{Key: []byte("anything"), Out: out})
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, uint64(0), sys.Stats().BackendCalls)
}

// Mode-bit scenario 3: SILENT, then toggling it back off to observe the
// stashed value (spec.md calls the second control "ANSWER"; this
// implementation models it as re-toggling SILENT off via CONTROL, since
// ModeRegister only names DUMMY/SILENT/SLEEPY/GENERATE).
func TestModeBit_SilentThenToggleOffRevealsValue(t *testing.T) {
	_, h := newHandle(t)
	require.NoError(t, h.Control(tmem.Silent))
	require.NoError(t, h.Put(tmem.PutRequest{Key: []byte("k"), Value: []byte("V")}))

	out := make([]byte, tmem.PageBytes)
	n, err := h.Get(tmem.GetRequest{Key: []byte("k"), Out: out})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, h.Control(tmem.Silent)) // toggle SILENT back off
	n, err = h.Get(tmem.GetRequest{Key: []byte("k"), Out: out})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "V", string(out[:n]))
}

// Mode-bit scenario 4: SLEEPY.
func TestModeBit_SleepyDelaysAtLeastNineMilliseconds(t *testing.T) {
	_, h := newHandle(t, tmem.WithSleepMicros(10_000))
	require.NoError(t, h.Control(tmem.Sleepy))

	start := time.Now()
	require.NoError(t, h.Put(tmem.PutRequest{Key: []byte("k"), Value: []byte("v")}))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed.Milliseconds(), int64(9))
}

func TestOverflow_ValueExceedsScratchSize(t *testing.T) {
	_, h := newHandle(t, tmem.WithScratchSize(tmem.PageBytes))
	big := make([]byte, tmem.PageBytes+1)
	err := h.Put(tmem.PutRequest{Key: []byte("k"), Value: big})
	assert.ErrorIs(t, err, tmem.ErrOverflow)
}

func TestTransientAbort_OnCopyFault(t *testing.T) {
	_, h := newHandle(t)
	h.SetFaultHook(func() error { return tmem.ErrTransientAbort })

	err := h.Put(tmem.PutRequest{Key: []byte("k"), Value: []byte("v")})
	assert.ErrorIs(t, err, tmem.ErrTransientAbort)
}

// failingTransport always fails, modeling an unreachable hypervisor/remote
// channel for the Remote backend.
type failingTransport struct{}

func (failingTransport) Send(region *backend.ControlRegion) error {
	return errors.New("induced transport failure")
}

// TestTransientAbort_OnRemoteTransportFailure exercises §7's "TransportError
// ... surfaced as TransientAbort at the request plane" at the Handle level,
// not just within the Remote backend itself (see internal/backend/remote_test.go
// for the backend-level case).
func TestTransientAbort_OnRemoteTransportFailure(t *testing.T) {
	remote := backend.NewRemote(failingTransport{}, nil)
	sys, err := tmem.New(tmem.WithBackend(remote))
	require.NoError(t, err)

	h := sys.NewHandle()
	require.NoError(t, h.Open())
	defer h.Close()

	err = h.Put(tmem.PutRequest{Key: []byte("k"), Value: []byte("v")})
	assert.ErrorIs(t, err, tmem.ErrTransientAbort)

	_, err = h.Get(tmem.GetRequest{Key: []byte("k"), Out: make([]byte, tmem.PageBytes)})
	assert.ErrorIs(t, err, tmem.ErrTransientAbort)
}

func TestOpen_OutOfMemoryPropagates(t *testing.T) {
	sys, err := tmem.New()
	require.NoError(t, err)
	sys.SetScratchAllocHook(func(n int) ([]byte, error) {
		return nil, tmem.ErrOutOfMemory
	})

	h := sys.NewHandle()
	assert.ErrorIs(t, h.Open(), tmem.ErrOutOfMemory)
}

func TestSystem_RegisterAndSelectBackend(t *testing.T) {
	sys, err := tmem.New()
	require.NoError(t, err)

	require.NoError(t, sys.RegisterBackend(backend.NewNull()))
	assert.Contains(t, sys.BackendNames(), "null")

	require.NoError(t, sys.SelectBackend("null"))
	assert.Equal(t, "null", sys.ActiveBackendName())
}

func TestSystem_SelectBackendUnknownNameErrors(t *testing.T) {
	sys, err := tmem.New()
	require.NoError(t, err)
	assert.Error(t, sys.SelectBackend("does-not-exist"))
}

func TestHandle_StatsCountsCommandsAndResetsOnClose(t *testing.T) {
	sys, err := tmem.New()
	require.NoError(t, err)
	h := sys.NewHandle()
	require.NoError(t, h.Open())

	require.NoError(t, h.Put(tmem.PutRequest{Key: []byte("k"), Value: []byte("v")}))
	out := make([]byte, tmem.PageBytes)
	_, err = h.Get(tmem.GetRequest{Key: []byte("k"), Out: out})
	require.NoError(t, err)

	stats := h.Stats()
	assert.Equal(t, uint64(1), stats.Puts)
	assert.Equal(t, uint64(1), stats.Gets)

	h.Close()
	require.NoError(t, h.Open())
	t.Cleanup(h.Close)
	assert.Equal(t, uint64(0), h.Stats().Puts)
}

func TestConcurrentCommands_LoserObservesBusy(t *testing.T) {
	_, h := newHandle(t)
	done := make(chan struct{})
	blocked := make(chan struct{})
	h.SetFaultHook(func() error {
		close(blocked)
		<-done
		return nil
	})
	go func() {
		_ = h.Put(tmem.PutRequest{Key: []byte("k"), Value: []byte("v")})
	}()
	<-blocked
	err := h.Invalidate(tmem.InvalRequest{Key: []byte("k")})
	assert.ErrorIs(t, err, tmem.ErrBusy)
	close(done)
}
