package backend_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Voskan/tmem/internal/backend"
	"github.com/Voskan/tmem/internal/errs"
	"github.com/Voskan/tmem/internal/store"
)

func newLoopbackRemote() *backend.Remote {
	local := backend.NewLocal(store.New(64<<20, 0))
	transport := backend.NewLoopbackTransport(local)
	return backend.NewRemote(transport, nil)
}

func TestRemote_PutGetRoundTrip(t *testing.T) {
	r := newLoopbackRemote()
	require.NoError(t, r.Put([]byte("foo"), []byte("hello")))

	out := make([]byte, 4096)
	n, err := r.Get([]byte("foo"), out)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out[:n]))
}

func TestRemote_GetNotFound(t *testing.T) {
	r := newLoopbackRemote()
	_, err := r.Get([]byte("missing"), make([]byte, 4096))
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestRemote_InvalidateAll(t *testing.T) {
	r := newLoopbackRemote()
	require.NoError(t, r.Put([]byte("a"), []byte("1")))
	require.NoError(t, r.Put([]byte("b"), []byte("2")))

	r.InvalidateAll()

	_, err := r.Get([]byte("a"), make([]byte, 4096))
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestRemote_ConcurrentGetsDeduped(t *testing.T) {
	r := newLoopbackRemote()
	require.NoError(t, r.Put([]byte("k"), []byte("v")))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := make([]byte, 4096)
			n, err := r.Get([]byte("k"), out)
			assert.NoError(t, err)
			assert.Equal(t, "v", string(out[:n]))
		}()
	}
	wg.Wait()
}

type failingTransport struct{}

func (failingTransport) Send(region *backend.ControlRegion) error {
	return errInducedTransportFailure
}

var errInducedTransportFailure = errors.New("induced transport failure")

func TestRemote_TransportFailureSurfaced(t *testing.T) {
	r := backend.NewRemote(failingTransport{}, nil)
	err := r.Put([]byte("k"), []byte("v"))
	assert.ErrorIs(t, err, errs.TransportError)
}
