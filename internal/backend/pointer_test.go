package backend_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Voskan/tmem/internal/backend"
)

func TestPointer_PutGetRoundTrip(t *testing.T) {
	p := backend.NewPointer(backend.PointerPoolBytes)
	require.NoError(t, p.Put([]byte("foo"), []byte("hello")))

	out := make([]byte, 4096)
	n, err := p.Get([]byte("foo"), out)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out[:n]))
}

func TestPointer_BorrowSurvivesConcurrentInvalidate(t *testing.T) {
	p := backend.NewPointer(backend.PointerPoolBytes)
	require.NoError(t, p.Put([]byte("k"), []byte("stable-bytes")))

	borrow, ok := p.Borrow([]byte("k"))
	require.True(t, ok)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Invalidate([]byte("k"))
	}()
	wg.Wait()

	// The borrow must still observe stable bytes after the concurrent
	// invalidate, until it is released.
	assert.Equal(t, "stable-bytes", string(borrow.Bytes()))
	borrow.Release()

	_, err := p.Get([]byte("k"), make([]byte, 4096))
	assert.Error(t, err)
}

func TestPointer_InvalidateAbsentKeyIsSilentSuccess(t *testing.T) {
	p := backend.NewPointer(backend.PointerPoolBytes)
	p.Invalidate([]byte("never-existed"))
	assert.Zero(t, p.Len())
}

func TestPointer_UpdateReplacesValue(t *testing.T) {
	p := backend.NewPointer(backend.PointerPoolBytes)
	require.NoError(t, p.Put([]byte("k"), []byte("v1")))
	require.NoError(t, p.Put([]byte("k"), []byte("v2")))

	out := make([]byte, 4096)
	n, err := p.Get([]byte("k"), out)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(out[:n]))
	assert.Equal(t, 1, p.Len())
}
