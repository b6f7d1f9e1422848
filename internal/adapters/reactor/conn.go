package reactor

import (
	"net"
	"sync"
	"time"

	"github.com/dkeye/Lobbyhub/internal/core"
	"github.com/dkeye/Lobbyhub/internal/domain"
	"github.com/dkeye/Lobbyhub/internal/protocol"
	"github.com/rs/zerolog/log"
)

const (
	writeTimeout     = 5 * time.Second
	exchangeIDLength = 10
)

// Conn is the TCP side of one session. Frames are queued by Send and
// written by writePump, so no caller ever blocks on a slow peer.
type Conn struct {
	nc   net.Conn
	addr string
	send chan []byte
	done chan struct{}

	mu      sync.Mutex
	sid     domain.SessionID
	closed  bool
	pending map[string]*core.Exchange
}

func newConn(nc net.Conn, queue int) *Conn {
	if queue <= 0 {
		queue = 1
	}
	return &Conn{
		nc:      nc,
		addr:    hostOf(nc.RemoteAddr()),
		send:    make(chan []byte, queue),
		done:    make(chan struct{}),
		pending: make(map[string]*core.Exchange),
	}
}

func hostOf(a net.Addr) string {
	if a == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(a.String())
	if err != nil {
		return a.String()
	}
	return host
}

func (c *Conn) bind(sid domain.SessionID) {
	c.mu.Lock()
	c.sid = sid
	c.mu.Unlock()
}

func (c *Conn) RemoteAddr() string { return c.addr }

// Send queues cmd. Requests without an id get a fresh one and are tracked
// until the peer answers.
func (c *Conn) Send(cmd protocol.Command) (*core.Exchange, error) {
	if cmd.Kind == protocol.KindRequest && cmd.ID == "" {
		cmd.ID = domain.NewID(exchangeIDLength)
	}
	frame, err := protocol.Encode(cmd)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, core.ErrConnClosed
	}
	x := core.NewExchange(c.sid, "")
	if cmd.IsRequest() {
		x = core.NewExchange(c.sid, cmd.ID)
	}
	select {
	case c.send <- frame:
	default:
		return nil, core.ErrBackpressure
	}
	if cmd.IsRequest() {
		c.pending[cmd.ID] = x
	}
	return x, nil
}

// resolve hands a response frame to the outbound exchange it answers.
func (c *Conn) resolve(cmd protocol.Command) bool {
	c.mu.Lock()
	x, ok := c.pending[cmd.ID]
	delete(c.pending, cmd.ID)
	c.mu.Unlock()
	if !ok {
		return false
	}
	return x.Resolve(cmd)
}

// Close is idempotent. Outbound requests still waiting for an answer fail
// with core.ErrConnClosed.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	_ = c.nc.Close()
	for _, x := range pending {
		x.Fail(core.ErrConnClosed)
	}
}

// goodbye writes cmd directly, skipping the queue, then closes the connection.
func (c *Conn) goodbye(cmd protocol.Command) {
	if frame, err := protocol.Encode(cmd); err == nil {
		_ = c.nc.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := c.nc.Write(frame); err != nil {
			log.Warn().Err(err).Str("module", "reactor").Str("address", c.addr).Msg("goodbye write error")
		}
	}
	c.Close()
}

func (c *Conn) writePump(done <-chan struct{}) {
	for {
		select {
		case <-done:
			c.Close()
			return
		case <-c.done:
			return
		case frame := <-c.send:
			if err := c.nc.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				log.Error().Err(err).Str("module", "reactor").Str("sid", string(c.sid)).Msg("writePump set deadline")
				c.Close()
				return
			}
			if _, err := c.nc.Write(frame); err != nil {
				log.Error().Err(err).Str("module", "reactor").Str("sid", string(c.sid)).Msg("writePump write error")
				c.Close()
				return
			}
		}
	}
}
