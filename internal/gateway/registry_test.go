package gateway

import (
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBinding(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	r := NewRegistry()
	a := newConnection("S1", 1, logger)
	b := newConnection("S1", 1, logger)
	other := newConnection("S2", 1, logger)

	assert.Error(t, r.Bind(a, "x"), "unregistered connections cannot bind")

	r.Add(a)
	r.Add(b)
	r.Add(other)
	assert.Equal(t, 3, r.Len())

	require.NoError(t, r.Bind(a, "x"))
	require.NoError(t, r.Bind(a, "x"))
	assert.Error(t, r.Bind(a, "y"))
	require.NoError(t, r.Bind(other, "x"))

	assert.True(t, r.SessionPresent("x", "S1"))
	assert.False(t, r.SessionPresent("y", "S1"))
	assert.ElementsMatch(t, []*Connection{other}, r.InRoom("x", a))

	r.Unbind(a)
	_, bound := r.RoomOf(a)
	assert.False(t, bound)
	assert.False(t, r.SessionPresent("x", "S1"))

	require.NoError(t, r.Bind(b, "x"))
	assert.Equal(t, "x", r.Remove(b))
	assert.Equal(t, "", r.Remove(b))
	assert.Equal(t, 2, r.Len())
}
