package app

import (
	"sync"

	"github.com/dkeye/Lobbyhub/internal/config"
	"github.com/dkeye/Lobbyhub/internal/core"
	"github.com/dkeye/Lobbyhub/internal/domain"
	"github.com/dkeye/Lobbyhub/internal/protocol"
)

type fakeConn struct {
	mu     sync.Mutex
	addr   string
	sent   []protocol.Command
	full   bool
	closed bool
}

func newFakeConn(addr string) *fakeConn { return &fakeConn{addr: addr} }

func (c *fakeConn) Send(cmd protocol.Command) (*core.Exchange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, core.ErrConnClosed
	}
	if c.full {
		return nil, core.ErrBackpressure
	}
	c.sent = append(c.sent, cmd)
	return core.NewExchange("", cmd.ID), nil
}

func (c *fakeConn) RemoteAddr() string { return c.addr }

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) Sent() []protocol.Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Command(nil), c.sent...)
}

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func lobbyConfig() config.Lobbies {
	return config.Lobbies{IDLength: 8, EnableGameless: true, MaxCount: 100, MaxPerSession: 4, MaxDataEntries: 8}
}

func sessionConfig() config.Sessions {
	return config.Sessions{IDLength: 12, ArbitraryGameID: true, MaxCount: 100, MaxPerAddress: 10}
}

func session(id, game string) domain.Session {
	return domain.Session{ID: domain.SessionID(id), GameID: game, Address: "127.0.0.1"}
}
