package app

import (
	"sync"

	"github.com/dkeye/Lobbyhub/internal/core"
	"github.com/dkeye/Lobbyhub/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Session core.SignalConnection
	Meta    domain.Session
	Closing bool
}

// Registry is the table of live sessions, keyed by id and counted by address.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[domain.SessionID]*sessionEntry
	byAddress map[string]int
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:  make(map[domain.SessionID]*sessionEntry),
		byAddress: make(map[string]int),
	}
}

// BindSignal stores a new session unless a quota is already used up.
// A zero quota means unlimited.
func (r *Registry) BindSignal(meta domain.Session, conn core.SignalConnection, maxCount, maxPerAddress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if maxCount > 0 && len(r.sessions) >= maxCount {
		return domain.Errorf(domain.KindLimit, "Can't have more than %d active sessions!", maxCount)
	}
	if maxPerAddress > 0 && r.byAddress[meta.Address] >= maxPerAddress {
		return domain.Errorf(domain.KindLimit, "Can't have more than %d active sessions per address!", maxPerAddress)
	}
	if _, taken := r.sessions[meta.ID]; taken {
		return domain.Errorf(domain.KindLocked, "Session#%s already exists!", meta.ID)
	}
	r.sessions[meta.ID] = &sessionEntry{Session: conn, Meta: meta}
	r.byAddress[meta.Address]++
	log.Info().Str("module", "app.registry").Str("sid", string(meta.ID)).Str("address", meta.Address).Msg("bound session")
	return nil
}

// MarkClosing flags sid as closing and reports whether the caller is the first to do so.
func (r *Registry) MarkClosing(sid domain.SessionID) (domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok || e.Closing {
		return domain.Session{}, false
	}
	e.Closing = true
	return e.Meta, true
}

func (r *Registry) Unbind(sid domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return
	}
	delete(r.sessions, sid)
	if r.byAddress[e.Meta.Address] <= 1 {
		delete(r.byAddress, e.Meta.Address)
	} else {
		r.byAddress[e.Meta.Address]--
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
}

func (r *Registry) GetSession(sid domain.SessionID) (domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Meta, true
	}
	return domain.Session{}, false
}

// Signal returns the live connection of sid; closing sessions have none.
func (r *Registry) Signal(sid domain.SessionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.Closing || e.Session == nil {
		return nil, false
	}
	return e.Session, true
}

// UpdateGame binds gameID once; a session that already has a game is locked.
func (r *Registry) UpdateGame(sid domain.SessionID, gameID string) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return domain.Session{}, domain.Errorf(domain.KindDataNotFound, "Unknown session#%s!", sid)
	}
	if e.Meta.HasGame() {
		return e.Meta, domain.Errorf(domain.KindLocked, "Session already has a game set!")
	}
	e.Meta.GameID = gameID
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("game", gameID).Msg("updated game")
	return e.Meta, nil
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) CountByAddress(address string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byAddress[address]
}
