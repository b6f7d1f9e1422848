package app

import (
	"testing"

	"github.com/dkeye/Lobbyhub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLimits(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.BindSignal(session("A", ""), newFakeConn("h1"), 2, 1))

	err := r.BindSignal(session("B", ""), newFakeConn("h1"), 2, 1)
	assert.ErrorIs(t, err, domain.ErrLimit)

	b := session("B", "")
	b.Address = "h2"
	require.NoError(t, r.BindSignal(b, newFakeConn("h2"), 2, 1))

	c := session("C", "")
	c.Address = "h3"
	assert.ErrorIs(t, r.BindSignal(c, newFakeConn("h3"), 2, 1), domain.ErrLimit)
	assert.Equal(t, 2, r.Count())
}

func TestRegistryClosingHidesSignal(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.BindSignal(session("A", ""), newFakeConn("h"), 0, 0))

	_, ok := r.Signal("A")
	assert.True(t, ok)

	_, first := r.MarkClosing("A")
	assert.True(t, first)
	_, again := r.MarkClosing("A")
	assert.False(t, again)

	_, ok = r.Signal("A")
	assert.False(t, ok)
	_, ok = r.GetSession("A")
	assert.True(t, ok, "session stays readable until unbound")

	r.Unbind("A")
	_, ok = r.GetSession("A")
	assert.False(t, ok)
	assert.Equal(t, 0, r.CountByAddress("127.0.0.1"))
}

func TestRegistryUpdateGameOnce(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.BindSignal(session("A", ""), newFakeConn("h"), 0, 0))

	s, err := r.UpdateGame("A", "chess")
	require.NoError(t, err)
	assert.Equal(t, "chess", s.GameID)

	_, err = r.UpdateGame("A", "go")
	assert.ErrorIs(t, err, domain.ErrLocked)

	_, err = r.UpdateGame("missing", "go")
	assert.ErrorIs(t, err, domain.ErrDataNotFound)
}
