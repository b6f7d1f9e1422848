package app

import (
	"sync"

	"github.com/dkeye/Lobbyhub/internal/config"
	"github.com/dkeye/Lobbyhub/internal/core"
	"github.com/dkeye/Lobbyhub/internal/domain"
	"github.com/rs/zerolog/log"
)

// LobbyManager enforces the lobby state machine. Every read-modify-write on
// the repository happens under mu; events go out after mu is released.
type LobbyManager struct {
	mu   sync.Mutex
	repo core.LobbyRepository
	bus  *EventBus
	cfg  config.Lobbies
}

func NewLobbyManager(repo core.LobbyRepository, bus *EventBus, cfg config.Lobbies) *LobbyManager {
	return &LobbyManager{repo: repo, bus: bus, cfg: cfg}
}

func (m *LobbyManager) Lookup() core.LobbyLookup { return m.repo }

func (m *LobbyManager) Count() int { return m.repo.Count() }

func (m *LobbyManager) Create(address string, data domain.Data, s domain.Session) (domain.Lobby, error) {
	log.Info().Str("module", "app.lobbies").Str("sid", string(s.ID)).Str("address", address).Int("data", data.Len()).Msg("creating lobby")

	if !s.HasGame() && !m.cfg.EnableGameless {
		return domain.Lobby{}, domain.Errorf(domain.KindInvalidCommand, "Can't create lobbies without a game!")
	}
	if err := m.checkDataSize(data); err != nil {
		return domain.Lobby{}, err
	}

	m.mu.Lock()
	if m.cfg.MaxCount > 0 && m.repo.Count() >= m.cfg.MaxCount {
		m.mu.Unlock()
		return domain.Lobby{}, domain.Errorf(domain.KindLimit, "Can't host more than %d active lobbies on this instance!", m.cfg.MaxCount)
	}
	if m.cfg.MaxPerSession > 0 && m.repo.CountBySession(s.ID) >= m.cfg.MaxPerSession {
		m.mu.Unlock()
		return domain.Lobby{}, domain.Errorf(domain.KindLimit, "Session can't have more than %d active lobbies!", m.cfg.MaxPerSession)
	}
	lobby := domain.Lobby{
		ID:           m.newID(),
		Owner:        s.ID,
		GameID:       s.GameID,
		Address:      address,
		IsVisible:    true,
		Data:         data.Clone(),
		Participants: []domain.SessionID{s.ID},
	}
	if lobby.Data == nil {
		lobby.Data = domain.Data{}
	}
	m.repo.Add(lobby)
	m.mu.Unlock()

	m.bus.Publish(LobbyCreated{Lobby: lobby.Clone()})
	log.Info().Str("module", "app.lobbies").Str("sid", string(s.ID)).Str("lobby", string(lobby.ID)).Msg("lobby created")
	return lobby, nil
}

// newID must run under mu so two creates cannot pick the same id.
func (m *LobbyManager) newID() domain.LobbyID {
	for {
		id := domain.LobbyID(domain.NewID(m.cfg.IDLength))
		if _, taken := m.repo.Find(id); !taken {
			return id
		}
	}
}

func (m *LobbyManager) checkDataSize(data domain.Data) error {
	if m.cfg.MaxDataEntries > 0 && data.Len() > m.cfg.MaxDataEntries {
		return domain.Errorf(domain.KindLimit, "Lobbies can't have more than %d data entries!", m.cfg.MaxDataEntries)
	}
	return nil
}

func (m *LobbyManager) Require(id domain.LobbyID) (domain.Lobby, error) {
	l, ok := m.repo.Find(id)
	if !ok {
		return domain.Lobby{}, domain.Errorf(domain.KindDataNotFound, "Unknown lobby#%s!", id)
	}
	return l, nil
}

// RequireInGame finds a lobby of the given game; lobbies of other games do not exist for the caller.
func (m *LobbyManager) RequireInGame(id domain.LobbyID, gameID string) (domain.Lobby, error) {
	l, ok := m.repo.Find(id)
	if !ok || l.GameID != gameID {
		return domain.Lobby{}, domain.Errorf(domain.KindDataNotFound, "Unknown lobby#%s!", id)
	}
	return l, nil
}

// Get returns a lobby visible to s with its data filtered by properties.
func (m *LobbyManager) Get(id domain.LobbyID, s domain.Session, properties []string) (domain.Lobby, error) {
	l, ok := m.repo.Find(id)
	if !ok || !l.IsVisibleTo(s) {
		return domain.Lobby{}, domain.Errorf(domain.KindDataNotFound, "Unknown lobby#%s!", id)
	}
	l.Data = l.Data.Filter(properties)
	return l, nil
}

// List returns every lobby visible to s, oldest first, with filtered data.
func (m *LobbyManager) List(s domain.Session, properties []string) []domain.Lobby {
	var out []domain.Lobby
	for _, l := range m.repo.List() {
		if !l.IsVisibleTo(s) {
			continue
		}
		l.Data = l.Data.Filter(properties)
		out = append(out, l)
	}
	log.Debug().Str("module", "app.lobbies").Str("sid", string(s.ID)).Int("count", len(out)).Msg("listed lobbies")
	return out
}

// Delete removes an owned lobby. Deleting an unknown lobby is a no-op.
func (m *LobbyManager) Delete(id domain.LobbyID, s domain.Session) error {
	m.mu.Lock()
	l, ok := m.repo.Find(id)
	if !ok {
		m.mu.Unlock()
		log.Info().Str("module", "app.lobbies").Str("lobby", string(id)).Msg("lobby doesn't exist, doing nothing")
		return nil
	}
	if err := l.RequireModifiableBy(s); err != nil {
		m.mu.Unlock()
		return err
	}
	m.repo.Remove(id)
	m.mu.Unlock()

	m.bus.Publish(LobbyDeleted{Lobby: l})
	log.Info().Str("module", "app.lobbies").Str("sid", string(s.ID)).Str("lobby", string(id)).Msg("lobby deleted")
	return nil
}

// Join appends s to the participants and returns the rendezvous address.
func (m *LobbyManager) Join(id domain.LobbyID, s domain.Session) (string, []domain.SessionID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, err := m.RequireInGame(id, s.GameID)
	if err != nil {
		return "", nil, err
	}
	if err := l.RequireJoinableBy(s); err != nil {
		return "", nil, err
	}
	l.Participants = append(l.Participants, s.ID)
	m.repo.Update(l)
	log.Info().Str("module", "app.lobbies").Str("sid", string(s.ID)).Str("lobby", string(id)).Msg("joined lobby")
	return l.Address, l.Participants, nil
}

// Leave removes s from the participants if present. The owner stays in its
// own lobby; leaving never deletes a lobby or moves ownership.
func (m *LobbyManager) Leave(id domain.LobbyID, s domain.Session) ([]domain.SessionID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, err := m.RequireInGame(id, s.GameID)
	if err != nil {
		return nil, err
	}
	if l.IsOwnedBy(s.ID) || !l.HasParticipant(s.ID) {
		return l.Participants, nil
	}
	kept := make([]domain.SessionID, 0, len(l.Participants))
	for _, p := range l.Participants {
		if p != s.ID {
			kept = append(kept, p)
		}
	}
	l.Participants = kept
	m.repo.Update(l)
	log.Info().Str("module", "app.lobbies").Str("sid", string(s.ID)).Str("lobby", string(id)).Msg("left lobby")
	return l.Participants, nil
}

func (m *LobbyManager) SetData(id domain.LobbyID, data domain.Data, s domain.Session) error {
	if err := m.checkDataSize(data); err != nil {
		return err
	}
	_, _, err := m.mutate(id, s, func(l *domain.Lobby) {
		l.Data = data.Clone()
		if l.Data == nil {
			l.Data = domain.Data{}
		}
	})
	return err
}

func (m *LobbyManager) Lock(id domain.LobbyID, s domain.Session) error {
	return m.transition(id, s, func(l *domain.Lobby) { l.IsLocked = true })
}

func (m *LobbyManager) Unlock(id domain.LobbyID, s domain.Session) error {
	return m.transition(id, s, func(l *domain.Lobby) { l.IsLocked = false })
}

func (m *LobbyManager) Hide(id domain.LobbyID, s domain.Session) error {
	return m.transition(id, s, func(l *domain.Lobby) { l.IsVisible = false })
}

func (m *LobbyManager) Publish(id domain.LobbyID, s domain.Session) error {
	return m.transition(id, s, func(l *domain.Lobby) { l.IsVisible = true })
}

// Start announces the lobby's participants on behalf of its owner. It changes
// no lobby state.
func (m *LobbyManager) Start(id domain.LobbyID, s domain.Session) ([]domain.SessionID, error) {
	l, err := m.Require(id)
	if err != nil {
		return nil, err
	}
	if err := l.RequireModifiableBy(s); err != nil {
		return nil, err
	}
	return m.announce(l, s), nil
}

// Announce announces the lobby's participants for any session of its game that
// can see the lobby or takes part in it.
func (m *LobbyManager) Announce(id domain.LobbyID, s domain.Session) ([]domain.SessionID, error) {
	l, ok := m.repo.Find(id)
	if !ok || l.GameID != s.GameID || !(l.IsVisibleTo(s) || l.HasParticipant(s.ID)) {
		return nil, domain.Errorf(domain.KindDataNotFound, "Unknown lobby#%s!", id)
	}
	return m.announce(l, s), nil
}

func (m *LobbyManager) announce(l domain.Lobby, s domain.Session) []domain.SessionID {
	log.Info().Str("module", "app.lobbies").Str("sid", string(s.ID)).Str("lobby", string(l.ID)).
		Int("participants", len(l.Participants)).Msg("lobby started")
	participants := append([]domain.SessionID(nil), l.Participants...)
	m.bus.Publish(LobbyStarted{Lobby: l.Clone(), Participants: participants})
	return participants
}

func (m *LobbyManager) transition(id domain.LobbyID, s domain.Session, fn func(*domain.Lobby)) error {
	from, to, err := m.mutate(id, s, fn)
	if err != nil {
		return err
	}
	m.bus.Publish(LobbyChanged{From: from, To: to})
	return nil
}

// mutate applies fn to an owned lobby and stores the result.
func (m *LobbyManager) mutate(id domain.LobbyID, s domain.Session, fn func(*domain.Lobby)) (domain.Lobby, domain.Lobby, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	from, err := m.Require(id)
	if err != nil {
		return domain.Lobby{}, domain.Lobby{}, err
	}
	if err := from.RequireModifiableBy(s); err != nil {
		return domain.Lobby{}, domain.Lobby{}, err
	}
	to := from.Clone()
	fn(&to)
	m.repo.Update(to)
	log.Info().Str("module", "app.lobbies").Str("sid", string(s.ID)).Str("lobby", string(id)).Msg("lobby updated")
	return from, to.Clone(), nil
}

// RemoveLobbiesOf deletes every lobby owned by sid and returns them.
func (m *LobbyManager) RemoveLobbiesOf(sid domain.SessionID) []domain.Lobby {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := m.repo.RemoveOwnedBy(sid)
	log.Info().Str("module", "app.lobbies").Str("sid", string(sid)).Int("count", len(removed)).Msg("removed lobbies of session")
	return removed
}

// PruneParticipant drops sid from the lobbies it joined but does not own.
func (m *LobbyManager) PruneParticipant(sid domain.SessionID) []domain.Lobby {
	m.mu.Lock()
	defer m.mu.Unlock()
	changed := m.repo.RemoveParticipant(sid)
	if len(changed) > 0 {
		log.Info().Str("module", "app.lobbies").Str("sid", string(sid)).Int("count", len(changed)).Msg("pruned stale participant")
	}
	return changed
}
