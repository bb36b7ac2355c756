package backend_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Voskan/tmem/internal/backend"
)

func TestNull_AlwaysEmptySuccess(t *testing.T) {
	n := backend.NewNull()
	require.NoError(t, n.Put([]byte("k"), []byte("v")))

	length, err := n.Get([]byte("k"), make([]byte, 4096))
	require.NoError(t, err)
	assert.Zero(t, length)

	n.Invalidate([]byte("k"))
	n.InvalidateAll()
}

func TestSleep_DelaysAtLeastNineMilliseconds(t *testing.T) {
	s := backend.NewSleep(backend.DefaultSleepMicros)
	start := time.Now()
	require.NoError(t, s.Put([]byte("k"), []byte("v")))
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 9*time.Millisecond)
}
