package app

import (
	"fmt"
	"sync"

	"github.com/dkeye/Lobbyhub/internal/domain"
	"github.com/rs/zerolog/log"
)

type Channel string

const (
	ChannelLobbyCreate  Channel = "lobby-create"
	ChannelLobbyChange  Channel = "lobby-change"
	ChannelLobbyDelete  Channel = "lobby-delete"
	ChannelLobbyStart   Channel = "lobby-start"
	ChannelSessionOpen  Channel = "session-open"
	ChannelSessionClose Channel = "session-close"
)

// Event is a lifecycle notification. Events carry snapshots, never live entities.
type Event interface {
	Channel() Channel
}

type LobbyCreated struct{ Lobby domain.Lobby }

type LobbyChanged struct{ From, To domain.Lobby }

type LobbyDeleted struct{ Lobby domain.Lobby }

type LobbyStarted struct {
	Lobby        domain.Lobby
	Participants []domain.SessionID
}

type SessionOpened struct{ Session domain.Session }

type SessionClosed struct{ Session domain.Session }

func (LobbyCreated) Channel() Channel  { return ChannelLobbyCreate }
func (LobbyChanged) Channel() Channel  { return ChannelLobbyChange }
func (LobbyDeleted) Channel() Channel  { return ChannelLobbyDelete }
func (LobbyStarted) Channel() Channel  { return ChannelLobbyStart }
func (SessionOpened) Channel() Channel { return ChannelSessionOpen }
func (SessionClosed) Channel() Channel { return ChannelSessionClose }

type subscriber struct {
	name string
	fn   func(Event) error
}

// EventBus delivers events synchronously, in subscription order, on the
// publisher's goroutine. A failing subscriber is logged and skipped.
type EventBus struct {
	mu   sync.RWMutex
	subs map[Channel][]subscriber
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[Channel][]subscriber)}
}

// Subscribe registers fn on ch. The name only shows up in logs.
func (b *EventBus) Subscribe(ch Channel, name string, fn func(Event) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = append(b.subs[ch], subscriber{name: name, fn: fn})
	log.Debug().Str("module", "app.events").Str("channel", string(ch)).Str("subscriber", name).Msg("subscribed")
}

// On is the typed form of Subscribe; the channel comes from E.
func On[E Event](b *EventBus, name string, fn func(E) error) {
	var zero E
	b.Subscribe(zero.Channel(), name, func(e Event) error {
		typed, ok := e.(E)
		if !ok {
			return fmt.Errorf("unexpected event %T on %s", e, zero.Channel())
		}
		return fn(typed)
	})
}

// Publish runs every subscriber of e's channel before returning.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	subs := append([]subscriber(nil), b.subs[e.Channel()]...)
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(s, e)
	}
}

func (b *EventBus) deliver(s subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "app.events").Str("channel", string(e.Channel())).Str("subscriber", s.name).
				Interface("panic", r).Msg("subscriber panicked")
		}
	}()
	if err := s.fn(e); err != nil {
		log.Error().Err(err).Str("module", "app.events").Str("channel", string(e.Channel())).Str("subscriber", s.name).
			Msg("subscriber failed")
	}
}
