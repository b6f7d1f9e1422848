package orch

import (
	"github.com/dkeye/Lobbyhub/internal/app"
	"github.com/dkeye/Lobbyhub/internal/config"
	"github.com/dkeye/Lobbyhub/internal/core"
	"github.com/dkeye/Lobbyhub/internal/domain"
	"github.com/rs/zerolog/log"
)

// Orchestrator holds the modules of one hub and the reactions between them.
type Orchestrator struct {
	Bus      *app.EventBus
	Games    *app.GameRegistry
	Sessions *app.SessionManager
	Lobbies  *app.LobbyManager
	Router   *app.Router
}

// New builds every module from cfg. Call Attach before serving connections.
func New(cfg *config.Config) *Orchestrator {
	bus := app.NewEventBus()
	games := app.NewGameRegistry(cfg.Games)
	reg := app.NewRegistry()
	lobbies := app.NewLobbyManager(core.NewLobbyRepository(), bus, cfg.Lobbies)

	return &Orchestrator{
		Bus:      bus,
		Games:    games,
		Sessions: app.NewSessionManager(reg, lobbies.Lookup(), games, bus, cfg.Sessions),
		Lobbies:  lobbies,
		Router:   app.NewRouter(reg, app.PolicyFor(cfg.TCP.SlowConsumer)),
	}
}

// Attach subscribes the cross-module reactions. Session-close reactions run
// in the order they are listed here.
func (o *Orchestrator) Attach() {
	app.On(o.Bus, "lobbies.remove-owned", func(e app.SessionClosed) error {
		for _, l := range o.Lobbies.RemoveLobbiesOf(e.Session.ID) {
			o.Bus.Publish(app.LobbyDeleted{Lobby: l})
		}
		return nil
	})
	app.On(o.Bus, "lobbies.prune-participant", func(e app.SessionClosed) error {
		o.Lobbies.PruneParticipant(e.Session.ID)
		return nil
	})
	app.On(o.Bus, "signaling.kickoff", func(e app.LobbyStarted) error {
		o.Kickoff(e.Lobby, e.Participants)
		return nil
	})
	log.Info().Str("module", "orch").Msg("reactions attached")
}

// OnDisconnect is called by transports once a connection is gone.
func (o *Orchestrator) OnDisconnect(sid domain.SessionID) {
	o.Sessions.Close(sid)
}

// Session returns the current snapshot of sid.
func (o *Orchestrator) Session(sid domain.SessionID) (domain.Session, error) {
	s, ok := o.Sessions.Get(sid)
	if !ok {
		return domain.Session{}, domain.Errorf(domain.KindDataNotFound, "Unknown session#%s!", sid)
	}
	return s, nil
}

type Stats struct {
	Sessions int `json:"sessions"`
	Lobbies  int `json:"lobbies"`
	Games    int `json:"games"`
}

func (o *Orchestrator) Stats() Stats {
	return Stats{
		Sessions: o.Sessions.Count(),
		Lobbies:  o.Lobbies.Count(),
		Games:    len(o.Games.List()),
	}
}
