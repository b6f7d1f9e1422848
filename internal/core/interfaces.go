package core

import (
	"errors"

	"github.com/dkeye/Lobbyhub/internal/protocol"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// SignalConnection abstracts the command transport of one session.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// Send queues cmd without blocking. Request commands without an id get one
	// and the returned exchange resolves with the peer's reply.
	Send(cmd protocol.Command) (*Exchange, error)
	RemoteAddr() string
	Close()
}
