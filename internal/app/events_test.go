package app

import (
	"errors"
	"testing"

	"github.com/dkeye/Lobbyhub/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestEventBusOrderAndIsolation(t *testing.T) {
	bus := NewEventBus()
	var calls []string

	bus.Subscribe(ChannelSessionClose, "first", func(Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	bus.Subscribe(ChannelSessionClose, "second", func(Event) error {
		calls = append(calls, "second")
		panic("worse")
	})
	On(bus, "third", func(e SessionClosed) error {
		calls = append(calls, "third:"+string(e.Session.ID))
		return nil
	})

	assert.NotPanics(t, func() { bus.Publish(SessionClosed{Session: session("A", "")}) })
	assert.Equal(t, []string{"first", "second", "third:A"}, calls)
}

func TestEventBusChannelsAreSeparate(t *testing.T) {
	bus := NewEventBus()
	created := 0
	On(bus, "count", func(LobbyCreated) error { created++; return nil })

	bus.Publish(LobbyDeleted{Lobby: domain.Lobby{ID: "L"}})
	bus.Publish(LobbyCreated{Lobby: domain.Lobby{ID: "L"}})
	assert.Equal(t, 1, created)
}

func TestEventBusNoSubscribers(t *testing.T) {
	assert.NotPanics(t, func() { NewEventBus().Publish(SessionOpened{}) })
}
