package backend_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Voskan/tmem/internal/backend"
)

func TestRegistry_FirstWriterWinsPerName(t *testing.T) {
	reg := backend.NewRegistry()
	require.NoError(t, reg.Register(backend.NewNull()))

	err := reg.Register(backend.NewNull())
	assert.Error(t, err, "re-registering the same name must fail")
}

func TestRegistry_SelectUnknownNameErrors(t *testing.T) {
	reg := backend.NewRegistry()
	_, err := reg.Select("does-not-exist")
	assert.Error(t, err)
}

func TestRegistry_SelectRegistered(t *testing.T) {
	reg := backend.NewRegistry()
	n := backend.NewNull()
	require.NoError(t, reg.Register(n))

	got, err := reg.Select("null")
	require.NoError(t, err)
	assert.Same(t, n, got)
}
