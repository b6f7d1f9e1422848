package app

import "github.com/dkeye/Lobbyhub/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	Disconnect
)

// Policy decides what happens to a session whose send queue is full.
type Policy interface {
	OnBackpressure(sid domain.SessionID) BackpressureAction
}

type SimplePolicy struct {
	DisconnectSlow bool
}

func (p SimplePolicy) OnBackpressure(domain.SessionID) BackpressureAction {
	if p.DisconnectSlow {
		return Disconnect
	}
	return DropFrame
}

// PolicyFor maps the tcp.slow_consumer setting.
func PolicyFor(slowConsumer string) Policy {
	return SimplePolicy{DisconnectSlow: slowConsumer == "disconnect"}
}
