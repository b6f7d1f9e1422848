package core

import (
	"slices"
	"sync"

	"github.com/dkeye/Lobbyhub/internal/domain"
	"github.com/rs/zerolog/log"
)

// LobbyLookup is the read-only view other modules get of the lobby table.
type LobbyLookup interface {
	Find(id domain.LobbyID) (domain.Lobby, bool)
	ExistsBySession(sid domain.SessionID) bool
	Count() int
}

// LobbyRepository owns the lobby table. It stores and returns copies only,
// so no caller ever holds a live reference to a stored lobby.
type LobbyRepository interface {
	LobbyLookup
	Add(l domain.Lobby)
	Update(l domain.Lobby) bool
	Remove(id domain.LobbyID) (domain.Lobby, bool)
	CountBySession(sid domain.SessionID) int
	List() []domain.Lobby
	RemoveOwnedBy(sid domain.SessionID) []domain.Lobby
	RemoveParticipant(sid domain.SessionID) []domain.Lobby
}

// lobbyRepo is a threadsafe in-memory lobby table, iterated in creation order.
type lobbyRepo struct {
	mu      sync.RWMutex
	lobbies map[domain.LobbyID]domain.Lobby
	order   []domain.LobbyID
}

func NewLobbyRepository() LobbyRepository {
	return &lobbyRepo{lobbies: make(map[domain.LobbyID]domain.Lobby)}
}

func (r *lobbyRepo) Add(l domain.Lobby) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lobbies[l.ID]; !ok {
		r.order = append(r.order, l.ID)
	}
	r.lobbies[l.ID] = l.Clone()
	log.Debug().Str("module", "core.lobbies").Str("lobby", string(l.ID)).Msg("lobby stored")
}

func (r *lobbyRepo) Update(l domain.Lobby) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lobbies[l.ID]; !ok {
		return false
	}
	r.lobbies[l.ID] = l.Clone()
	return true
}

func (r *lobbyRepo) Remove(id domain.LobbyID) (domain.Lobby, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(id)
}

func (r *lobbyRepo) removeLocked(id domain.LobbyID) (domain.Lobby, bool) {
	l, ok := r.lobbies[id]
	if !ok {
		return domain.Lobby{}, false
	}
	delete(r.lobbies, id)
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	log.Debug().Str("module", "core.lobbies").Str("lobby", string(id)).Msg("lobby removed")
	return l, true
}

func (r *lobbyRepo) Find(id domain.LobbyID) (domain.Lobby, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lobbies[id]
	if !ok {
		return domain.Lobby{}, false
	}
	return l.Clone(), true
}

func (r *lobbyRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lobbies)
}

func (r *lobbyRepo) CountBySession(sid domain.SessionID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, l := range r.lobbies {
		if l.Owner == sid {
			n++
		}
	}
	return n
}

func (r *lobbyRepo) ExistsBySession(sid domain.SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.lobbies {
		if l.Owner == sid || l.HasParticipant(sid) {
			return true
		}
	}
	return false
}

func (r *lobbyRepo) List() []domain.Lobby {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Lobby, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.lobbies[id].Clone())
	}
	return out
}

func (r *lobbyRepo) RemoveOwnedBy(sid domain.SessionID) []domain.Lobby {
	r.mu.Lock()
	defer r.mu.Unlock()
	var owned []domain.LobbyID
	for _, id := range r.order {
		if r.lobbies[id].Owner == sid {
			owned = append(owned, id)
		}
	}
	out := make([]domain.Lobby, 0, len(owned))
	for _, id := range owned {
		if l, ok := r.removeLocked(id); ok {
			out = append(out, l)
		}
	}
	return out
}

// RemoveParticipant drops sid from every participant list it does not own
// and returns the lobbies that changed.
func (r *lobbyRepo) RemoveParticipant(sid domain.SessionID) []domain.Lobby {
	r.mu.Lock()
	defer r.mu.Unlock()
	var changed []domain.Lobby
	for _, id := range r.order {
		l := r.lobbies[id]
		i := slices.Index(l.Participants, sid)
		if i < 0 || l.Owner == sid {
			continue
		}
		l = l.Clone()
		l.Participants = slices.Delete(l.Participants, i, i+1)
		r.lobbies[id] = l
		changed = append(changed, l.Clone())
	}
	return changed
}
