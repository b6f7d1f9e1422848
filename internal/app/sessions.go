package app

import (
	"github.com/dkeye/Lobbyhub/internal/config"
	"github.com/dkeye/Lobbyhub/internal/core"
	"github.com/dkeye/Lobbyhub/internal/domain"
	"github.com/rs/zerolog/log"
)

// SessionManager mediates session lifecycle and per-game binding.
type SessionManager struct {
	Registry *Registry
	lobbies  core.LobbyLookup
	games    *GameRegistry
	bus      *EventBus
	cfg      config.Sessions
}

func NewSessionManager(reg *Registry, lobbies core.LobbyLookup, games *GameRegistry, bus *EventBus, cfg config.Sessions) *SessionManager {
	return &SessionManager{Registry: reg, lobbies: lobbies, games: games, bus: bus, cfg: cfg}
}

// Open allocates a session for conn, or fails with a LimitError when a quota is used up.
func (m *SessionManager) Open(conn core.SignalConnection) (domain.Session, error) {
	address := conn.RemoteAddr()
	log.Info().Str("module", "app.sessions").Str("address", address).Msg("opening session")

	sess := domain.Session{
		ID:      domain.SessionID(domain.NewID(m.cfg.IDLength)),
		GameID:  m.cfg.DefaultGameID,
		Address: address,
	}
	if err := m.Registry.BindSignal(sess, conn, m.cfg.MaxCount, m.cfg.MaxPerAddress); err != nil {
		log.Warn().Err(err).Str("module", "app.sessions").Str("address", address).Msg("session rejected")
		return domain.Session{}, err
	}
	m.bus.Publish(SessionOpened{Session: sess})
	log.Info().Str("module", "app.sessions").Str("sid", string(sess.ID)).Msg("created session")
	return sess, nil
}

// Close publishes session-close, then removes the session. Only the first
// call for a session does anything.
func (m *SessionManager) Close(sid domain.SessionID) {
	sess, first := m.Registry.MarkClosing(sid)
	if !first {
		return
	}
	log.Info().Str("module", "app.sessions").Str("sid", string(sid)).Msg("closing session")
	m.bus.Publish(SessionClosed{Session: sess})
	m.Registry.Unbind(sid)
	log.Info().Str("module", "app.sessions").Str("sid", string(sid)).Msg("closed session")
}

// SetGame binds the session to gameID once, and never while it takes part in a lobby.
func (m *SessionManager) SetGame(sid domain.SessionID, gameID string) (domain.Session, error) {
	sess, ok := m.Registry.GetSession(sid)
	if !ok {
		return domain.Session{}, domain.Errorf(domain.KindDataNotFound, "Unknown session#%s!", sid)
	}
	if sess.HasGame() {
		return sess, domain.Errorf(domain.KindLocked, "Session already has a game set!")
	}
	if m.lobbies.ExistsBySession(sid) {
		return sess, domain.Errorf(domain.KindLocked, "Session already has active lobbies!")
	}
	if _, known := m.games.Find(gameID); !known && !m.cfg.ArbitraryGameID {
		if _, err := m.games.Require(gameID); err != nil {
			return sess, err
		}
	}
	return m.Registry.UpdateGame(sid, gameID)
}

func (m *SessionManager) Get(sid domain.SessionID) (domain.Session, bool) {
	return m.Registry.GetSession(sid)
}

func (m *SessionManager) Count() int { return m.Registry.Count() }
