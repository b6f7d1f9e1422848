package reactor

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/dkeye/Lobbyhub/internal/adapters/rtc"
	"github.com/dkeye/Lobbyhub/internal/app/orch"
	"github.com/dkeye/Lobbyhub/internal/config"
	"github.com/dkeye/Lobbyhub/internal/protocol"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

func testConfig() *config.Config {
	return &config.Config{
		TCP: config.TCP{CommandBufferSize: 256, SendQueue: 64, SlowConsumer: "drop"},
		Lobbies: config.Lobbies{
			IDLength: 8, EnableGameless: true, MaxCount: 100, MaxPerSession: 4, MaxDataEntries: 16,
		},
		Sessions: config.Sessions{IDLength: 12, ArbitraryGameID: true, MaxCount: 100, MaxPerAddress: 100},
	}
}

type countingObserver struct {
	calls []string
}

func (o *countingObserver) ObserveCommand(name string, err error) {
	o.calls = append(o.calls, name)
}

type hub struct {
	orch   *orch.Orchestrator
	server *Server
	ctx    context.Context
}

func newHub(t *testing.T, cfg *config.Config) *hub {
	t.Helper()
	o := orch.New(cfg)
	o.Attach()
	ice, err := rtc.NewICE([]string{"stun:stun.example.com:3478", "turn:alice:s3cret@turn.example.com:3478"})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return &hub{
		orch:   o,
		server: NewServer(o, NewController(o, ice, nil), cfg.TCP),
		ctx:    ctx,
	}
}

type client struct {
	t       *testing.T
	conn    net.Conn
	in      chan protocol.Command
	backlog []protocol.Command
	seq     int
}

func (h *hub) connect(t *testing.T) *client {
	t.Helper()
	server, conn := net.Pipe()
	go h.server.ServeConn(h.ctx, server)

	c := &client{t: t, conn: conn, in: make(chan protocol.Command, 128)}
	go func() {
		defer close(c.in)
		r := protocol.NewReader(conn, 4096)
		for {
			cmd, err := r.ReadCommand()
			if err != nil {
				return
			}
			c.in <- cmd
		}
	}()
	t.Cleanup(func() { _ = conn.Close() })
	return c
}

func (c *client) write(line string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(waitTimeout))
	_, err := c.conn.Write([]byte(line + "\n"))
	require.NoError(c.t, err)
}

func (c *client) send(cmd protocol.Command) {
	c.t.Helper()
	frame, err := protocol.Encode(cmd)
	require.NoError(c.t, err)
	_ = c.conn.SetWriteDeadline(time.Now().Add(waitTimeout))
	_, err = c.conn.Write(frame)
	require.NoError(c.t, err)
}

// call sends a request and waits for its reply or error.
func (c *client) call(name string, params ...string) protocol.Command {
	c.t.Helper()
	return c.callCmd(protocol.Command{Name: name, Params: params})
}

func (c *client) callCmd(cmd protocol.Command) protocol.Command {
	c.t.Helper()
	c.seq++
	cmd.Kind, cmd.ID = protocol.KindRequest, fmt.Sprintf("r%d", c.seq)
	c.send(cmd)
	return c.next(func(got protocol.Command) bool {
		return got.ID == cmd.ID && (got.Kind == protocol.KindReply || got.Kind == protocol.KindError)
	})
}

// stream sends a request and collects its chunks until end-of-stream.
func (c *client) stream(name string, params ...string) []protocol.Command {
	c.t.Helper()
	c.seq++
	id := fmt.Sprintf("r%d", c.seq)
	c.send(protocol.Command{Name: name, Kind: protocol.KindRequest, ID: id, Params: params})
	var chunks []protocol.Command
	for {
		got := c.next(func(got protocol.Command) bool {
			return got.ID == id && (got.Kind == protocol.KindStream || got.Kind == protocol.KindStreamEnd || got.Kind == protocol.KindError)
		})
		if got.Kind != protocol.KindStream {
			require.Equal(c.t, protocol.KindStreamEnd, got.Kind, "stream failed: %v", got.Params)
			return chunks
		}
		chunks = append(chunks, got)
	}
}

func (c *client) event(name string) protocol.Command {
	c.t.Helper()
	return c.next(func(got protocol.Command) bool { return got.Kind == protocol.KindEvent && got.Name == name })
}

func (c *client) next(match func(protocol.Command) bool) protocol.Command {
	c.t.Helper()
	for i, cmd := range c.backlog {
		if match(cmd) {
			c.backlog = append(c.backlog[:i], c.backlog[i+1:]...)
			return cmd
		}
	}
	timeout := time.After(waitTimeout)
	for {
		select {
		case cmd, ok := <-c.in:
			if !ok {
				require.FailNow(c.t, "connection closed while waiting")
			}
			if match(cmd) {
				return cmd
			}
			c.backlog = append(c.backlog, cmd)
		case <-timeout:
			require.FailNow(c.t, "timed out waiting for frame")
		}
	}
}

// closed waits for the server to hang up.
func (c *client) closed() bool {
	timeout := time.After(waitTimeout)
	for {
		select {
		case cmd, ok := <-c.in:
			if !ok {
				return true
			}
			c.backlog = append(c.backlog, cmd)
		case <-timeout:
			return false
		}
	}
}

func (c *client) id() string {
	c.t.Helper()
	reply := c.call("getid")
	require.Equal(c.t, protocol.KindReply, reply.Kind)
	return reply.Text
}

func requireOK(t *testing.T, reply protocol.Command) {
	t.Helper()
	require.Equal(t, protocol.KindReply, reply.Kind, "got error %v", reply.Params)
	require.Equal(t, "ok", reply.Text)
}

func requireError(t *testing.T, reply protocol.Command, kind string) {
	t.Helper()
	require.Equal(t, protocol.KindError, reply.Kind, "expected %s, got reply %v", kind, reply)
	got, _ := reply.Param(0)
	require.Equal(t, kind, got)
}
