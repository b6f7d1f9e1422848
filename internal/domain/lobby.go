package domain

type LobbyID string

// Lobby is a rendezvous point owned by a single session.
// Values handed out by repositories are snapshots; mutating them changes nothing.
type Lobby struct {
	ID           LobbyID     `json:"id"`
	Owner        SessionID   `json:"owner"`
	GameID       string      `json:"game_id,omitempty"`
	Address      string      `json:"address"`
	IsVisible    bool        `json:"visible"`
	IsLocked     bool        `json:"locked"`
	Data         Data        `json:"data"`
	Participants []SessionID `json:"participants"`
}

// Clone deep-copies the slices so the copy shares nothing with l.
func (l Lobby) Clone() Lobby {
	c := l
	c.Data = l.Data.Clone()
	if l.Participants != nil {
		c.Participants = append([]SessionID(nil), l.Participants...)
	}
	return c
}

func (l Lobby) HasParticipant(sid SessionID) bool {
	for _, p := range l.Participants {
		if p == sid {
			return true
		}
	}
	return false
}

// Host is the designated handshake host, the first participant.
func (l Lobby) Host() SessionID {
	if len(l.Participants) == 0 {
		return l.Owner
	}
	return l.Participants[0]
}

func (l Lobby) IsOwnedBy(sid SessionID) bool { return l.Owner == sid }

// IsVisibleTo reports whether s may see l in listings.
func (l Lobby) IsVisibleTo(s Session) bool {
	if l.GameID != s.GameID {
		return false
	}
	return l.IsVisible || l.Owner == s.ID
}

// RequireModifiableBy fails unless s owns l.
func (l Lobby) RequireModifiableBy(s Session) error {
	if l.Owner != s.ID {
		return Errorf(KindUnauthorized, "Lobby#%s can't be modified in session#%s!", l.ID, s.ID)
	}
	return nil
}

// RequireJoinableBy fails with a LockedError if s may not join l.
func (l Lobby) RequireJoinableBy(s Session) error {
	if l.IsLocked {
		return Errorf(KindLocked, "Can't join locked lobby#%s!", l.ID)
	}
	if l.Owner == s.ID {
		return Errorf(KindLocked, "Can't join your own lobby - you're already there!")
	}
	if l.HasParticipant(s.ID) {
		return Errorf(KindLocked, "Can't join your current lobby - you're already there!")
	}
	return nil
}

// MetricLabels returns the lock and visibility labels used by lobby gauges.
func (l Lobby) MetricLabels() (locked, visibility string) {
	locked, visibility = "open", "visible"
	if l.IsLocked {
		locked = "locked"
	}
	if !l.IsVisible {
		visibility = "hidden"
	}
	return locked, visibility
}
