package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLobby() Lobby {
	return Lobby{
		ID:           "lob1",
		Owner:        "A",
		GameID:       "g1",
		IsVisible:    true,
		Data:         Data{{Key: "mode", Value: "ranked"}},
		Participants: []SessionID{"A"},
	}
}

func TestLobbyVisibility(t *testing.T) {
	l := sampleLobby()
	owner := Session{ID: "A", GameID: "g1"}
	other := Session{ID: "B", GameID: "g1"}
	foreign := Session{ID: "C", GameID: "g2"}

	assert.True(t, l.IsVisibleTo(owner))
	assert.True(t, l.IsVisibleTo(other))
	assert.False(t, l.IsVisibleTo(foreign))

	l.IsVisible = false
	assert.True(t, l.IsVisibleTo(owner))
	assert.False(t, l.IsVisibleTo(other))
}

func TestLobbyJoinable(t *testing.T) {
	l := sampleLobby()

	assert.ErrorIs(t, l.RequireJoinableBy(Session{ID: "A"}), ErrLocked)
	require.NoError(t, l.RequireJoinableBy(Session{ID: "B"}))

	l.Participants = append(l.Participants, "B")
	assert.ErrorIs(t, l.RequireJoinableBy(Session{ID: "B"}), ErrLocked)

	l.IsLocked = true
	assert.ErrorIs(t, l.RequireJoinableBy(Session{ID: "C"}), ErrLocked)
}

func TestLobbyModifiable(t *testing.T) {
	l := sampleLobby()
	require.NoError(t, l.RequireModifiableBy(Session{ID: "A"}))

	err := l.RequireModifiableBy(Session{ID: "B"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestLobbyCloneIsDetached(t *testing.T) {
	l := sampleLobby()
	c := l.Clone()
	c.Participants[0] = "X"
	c.Data[0].Value = "casual"

	assert.Equal(t, SessionID("A"), l.Participants[0])
	v, _ := l.Data.Get("mode")
	assert.Equal(t, "ranked", v)
}

func TestDataFilter(t *testing.T) {
	d := Data{}.Set("a", "1").Set("b", "2").Set("c", "3")

	assert.Equal(t, d, d.Filter(nil))
	assert.Empty(t, d.Filter([]string{}))
	assert.Equal(t, Data{{Key: "c", Value: "3"}, {Key: "a", Value: "1"}}, d.Filter([]string{"c", "missing", "a"}))
}

func TestDataSetKeepsPosition(t *testing.T) {
	d := Data{}.Set("a", "1").Set("b", "2").Set("a", "3")
	assert.Equal(t, Data{{Key: "a", Value: "3"}, {Key: "b", Value: "2"}}, d)
}

func TestErrorKinds(t *testing.T) {
	err := Errorf(KindLimit, "too many: %d", 3)
	assert.Equal(t, "too many: 3", err.Error())
	assert.True(t, errors.Is(err, ErrLimit))
	assert.False(t, errors.Is(err, ErrLocked))
	assert.Equal(t, KindGeneric, KindOf(errors.New("boom")))
}

func TestNewID(t *testing.T) {
	assert.Len(t, NewID(8), 8)
	assert.Len(t, NewID(100), MaxIDLen)
	assert.NotEqual(t, NewID(12), NewID(12))
}
