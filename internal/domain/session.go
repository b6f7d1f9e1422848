// Package domain contains entities without transport, just meta-data and the
// rules that can be checked on a single entity.
package domain

import (
	"strings"

	"github.com/google/uuid"
)

const MaxIDLen = 32

type SessionID string

// Session is the server-side state of one live connection.
// The transport handle lives in the registry, never here.
type Session struct {
	ID      SessionID `json:"id"`
	GameID  string    `json:"game_id,omitempty"`
	Address string    `json:"address"`
}

func (s Session) HasGame() bool { return s.GameID != "" }

// NewID returns an unpredictable hex id of the given length, capped at MaxIDLen.
// It is a correlation handle, not a credential.
func NewID(length int) string {
	if length <= 0 || length > MaxIDLen {
		length = MaxIDLen
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:length]
}
