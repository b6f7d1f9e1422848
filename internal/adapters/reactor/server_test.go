package reactor

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Lobbyhub/internal/core"
	"github.com/dkeye/Lobbyhub/internal/domain"
	"github.com/dkeye/Lobbyhub/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHiddenLobbyScenario(t *testing.T) {
	h := newHub(t, testConfig())
	a, b := h.connect(t), h.connect(t)
	requireOK(t, a.call("session/set-game", "chess"))
	requireOK(t, b.call("session/set-game", "chess"))

	created := a.callCmd(protocol.Command{Name: "lobby/create", Params: []string{"addr"}, KV: []protocol.Pair{{Key: "mode", Value: "ranked"}}})
	require.Equal(t, protocol.KindReply, created.Kind)
	lobbyID, _ := created.Param(0)

	listed := b.stream("lobby/list")
	require.Len(t, listed, 1)
	got := protocol.DecodeLobby(listed[0])
	assert.Equal(t, domain.LobbyID(lobbyID), got.ID)
	assert.Equal(t, domain.Data{{Key: "mode", Value: "ranked"}}, got.Data)

	requireOK(t, a.call("lobby/hide", lobbyID))
	assert.Empty(t, b.stream("lobby/list"))

	own := a.stream("lobby/list")
	require.Len(t, own, 1)
	assert.False(t, protocol.DecodeLobby(own[0]).IsVisible)
}

func TestStartScenario(t *testing.T) {
	h := newHub(t, testConfig())
	a, b := h.connect(t), h.connect(t)
	aid, bid := a.id(), b.id()

	created := a.call("lobby/create", "rendezvous")
	lobbyID, _ := created.Param(0)

	joined := b.call("lobby/join", lobbyID)
	require.Equal(t, protocol.KindReply, joined.Kind)
	addr, _ := joined.Param(0)
	assert.Equal(t, "rendezvous", addr)

	reply := a.call("webrtc/lobby/start", lobbyID)
	require.Equal(t, protocol.KindReply, reply.Kind)
	assert.Equal(t, []string{aid, bid}, reply.Params)

	for _, c := range []*client{a, b} {
		ev := c.event("webrtc/lobby/start")
		host, _ := ev.Value("host")
		players, _ := ev.Value("players")
		assert.Equal(t, aid, host)
		assert.Equal(t, aid+", "+bid, players)
	}
}

func TestParticipantStartsHandshake(t *testing.T) {
	h := newHub(t, testConfig())
	a, b, c := h.connect(t), h.connect(t), h.connect(t)
	aid, bid := a.id(), b.id()

	lobbyID, _ := a.call("lobby/create", "rendezvous").Param(0)
	require.Equal(t, protocol.KindReply, b.call("lobby/join", lobbyID).Kind)

	reply := b.call("webrtc/lobby/start", lobbyID)
	require.Equal(t, protocol.KindReply, reply.Kind, "got error %v", reply.Params)
	assert.Equal(t, []string{aid, bid}, reply.Params)

	for _, cl := range []*client{a, b} {
		ev := cl.event("webrtc/lobby/start")
		host, _ := ev.Value("host")
		players, _ := ev.Value("players")
		gotLobby, _ := ev.Value("lobbyId")
		assert.Equal(t, aid, host)
		assert.Equal(t, aid+", "+bid, players)
		assert.Equal(t, lobbyID, gotLobby)
	}

	requireOK(t, a.call("lobby/hide", lobbyID))
	requireError(t, c.call("webrtc/lobby/start", lobbyID), string(domain.KindDataNotFound))
}

func TestLobbyStartCommandTriggersKickoff(t *testing.T) {
	h := newHub(t, testConfig())
	a := h.connect(t)
	aid := a.id()
	lobbyID, _ := a.call("lobby/create", "addr").Param(0)

	requireOK(t, a.call("lobby/start", lobbyID))
	ev := a.event("webrtc/lobby/start")
	host, _ := ev.Value("host")
	assert.Equal(t, aid, host)
}

func TestOwnerOnlyCommands(t *testing.T) {
	h := newHub(t, testConfig())
	a, b := h.connect(t), h.connect(t)
	lobbyID, _ := a.call("lobby/create", "addr").Param(0)

	for _, name := range []string{"lobby/lock", "lobby/unlock", "lobby/hide", "lobby/publish", "lobby/set-data", "lobby/start", "lobby/delete"} {
		requireError(t, b.call(name, lobbyID), string(domain.KindUnauthorized))
	}
	requireOK(t, a.call("lobby/delete", lobbyID))
	requireOK(t, a.call("lobby/delete", lobbyID))
}

func TestJoinAndLeave(t *testing.T) {
	h := newHub(t, testConfig())
	a, b := h.connect(t), h.connect(t)
	lobbyID, _ := a.call("lobby/create", "addr").Param(0)

	requireError(t, a.call("lobby/join", lobbyID), string(domain.KindLocked))
	requireError(t, b.call("lobby/join", "nope"), string(domain.KindDataNotFound))

	requireOK(t, a.call("lobby/lock", lobbyID))
	requireError(t, b.call("lobby/join", lobbyID), string(domain.KindLocked))
	requireOK(t, a.call("lobby/unlock", lobbyID))

	require.Equal(t, protocol.KindReply, b.call("lobby/join", lobbyID).Kind)
	requireError(t, b.call("lobby/join", lobbyID), string(domain.KindLocked))

	requireOK(t, b.call("lobby/leave", lobbyID))
	requireOK(t, b.call("lobby/leave", lobbyID))
	requireOK(t, a.call("lobby/leave", lobbyID))

	got := a.call("lobby/get", lobbyID)
	require.Equal(t, protocol.KindReply, got.Kind)
}

func TestGetWithPropertyFilter(t *testing.T) {
	h := newHub(t, testConfig())
	a := h.connect(t)
	created := a.callCmd(protocol.Command{
		Name:   "lobby/create",
		Params: []string{"addr"},
		KV:     []protocol.Pair{{Key: "mode", Value: "ranked"}, {Key: "map", Value: "dust 2"}},
	})
	lobbyID, _ := created.Param(0)

	got := protocol.DecodeLobby(a.call("lobby/get", lobbyID, "map"))
	assert.Equal(t, domain.Data{{Key: "map", Value: "dust 2"}}, got.Data)

	requireOK(t, a.callCmd(protocol.Command{
		Name:   "lobby/set-data",
		Params: []string{lobbyID},
		KV:     []protocol.Pair{{Key: "mode", Value: "casual"}},
	}))
	got = protocol.DecodeLobby(a.call("lobby/get", lobbyID))
	assert.Equal(t, domain.Data{{Key: "mode", Value: "casual"}}, got.Data)
}

func TestPerSessionLimit(t *testing.T) {
	h := newHub(t, testConfig())
	a := h.connect(t)
	for i := 0; i < 4; i++ {
		require.Equal(t, protocol.KindReply, a.call("lobby/create", "addr").Kind)
	}
	requireError(t, a.call("lobby/create", "addr"), string(domain.KindLimit))
}

func TestRelayToDisconnectedSession(t *testing.T) {
	h := newHub(t, testConfig())
	a, b := h.connect(t), h.connect(t)
	aid, bid := a.id(), b.id()

	requireOK(t, a.callCmd(protocol.Command{
		Name:   "webrtc/offer",
		Params: []string{bid},
		KV:     []protocol.Pair{{Key: "sdp", Value: "v=0\r\no=- 1"}},
	}))
	ev := b.event("webrtc/get/offer")
	from, _ := ev.Param(0)
	sdp, _ := ev.Value("sdp")
	assert.Equal(t, aid, from)
	assert.Equal(t, "v=0\r\no=- 1", sdp)

	a.send(protocol.Command{Name: "webrtc/candidate", Kind: protocol.KindEvent, Params: []string{aid}, KV: []protocol.Pair{{Key: "candidate", Value: "x"}}})
	a.event("webrtc/get/candidate")

	requireError(t, a.call("webrtc/answer", "ghost"), string(domain.KindDataNotFound))
	assert.Equal(t, aid, a.id())
}

func TestSessionCloseCleansUp(t *testing.T) {
	h := newHub(t, testConfig())
	a, b := h.connect(t), h.connect(t)
	bid := b.id()
	own, _ := a.call("lobby/create", "a").Param(0)
	other, _ := b.call("lobby/create", "b").Param(0)
	require.Equal(t, protocol.KindReply, a.call("lobby/join", other).Kind)

	require.NoError(t, a.conn.Close())
	require.Eventually(t, func() bool { return h.orch.Stats().Sessions == 1 }, waitTimeout, 10*time.Millisecond)

	_, err := h.orch.Lobbies.Require(domain.LobbyID(own))
	assert.ErrorIs(t, err, domain.ErrDataNotFound)
	l, err := h.orch.Lobbies.Require(domain.LobbyID(other))
	require.NoError(t, err)
	assert.Equal(t, []domain.SessionID{domain.SessionID(bid)}, l.Participants)
}

func TestErrorsKeepConnectionOpen(t *testing.T) {
	h := newHub(t, testConfig())
	a := h.connect(t)

	requireError(t, a.call("lobby/dance"), string(domain.KindUnknownCommand))

	a.send(protocol.Command{Name: "lobby/create", Kind: protocol.KindEvent, Params: []string{"addr"}})
	ev := a.event("error")
	kind, _ := ev.Param(0)
	assert.Equal(t, string(domain.KindInvalidCommand), kind)

	requireError(t, a.call("lobby/lock"), string(domain.KindInvalidCommand))

	a.write(`lobby/get?x "unterminated`)
	a.write("lobby/create?y " + strings.Repeat("x", 512))
	a.write("")

	assert.NotEmpty(t, a.id())
}

func TestControlCommands(t *testing.T) {
	h := newHub(t, testConfig())
	a := h.connect(t)

	reply := a.call("whereami")
	addr, _ := reply.Param(0)
	assert.Equal(t, "pipe", addr)

	a.send(protocol.Event("whereami"))
	ev := a.event("youarehere")
	addr, _ = ev.Param(0)
	assert.Equal(t, "pipe", addr)

	assert.Equal(t, protocol.KindReply, a.call("ping").Kind)
}

func TestICEServersCarryTURNCredentials(t *testing.T) {
	h := newHub(t, testConfig())
	a := h.connect(t)

	servers := a.stream("webrtc/ice-servers")
	require.Len(t, servers, 2)
	assert.Equal(t, []string{"stun:stun.example.com:3478"}, servers[0].Params)
	assert.Empty(t, servers[0].KV)

	assert.Equal(t, []string{"turn:turn.example.com:3478"}, servers[1].Params)
	user, _ := servers[1].Value("username")
	credential, _ := servers[1].Value("credential")
	assert.Equal(t, "alice", user)
	assert.Equal(t, "s3cret", credential)
}

func TestGreetLobby(t *testing.T) {
	h := newHub(t, testConfig())
	a := h.connect(t)
	lobbyID, _ := a.call("lobby/create", "addr").Param(0)

	requireOK(t, a.call("signaling/greet/lobby", lobbyID))
	assert.Equal(t, "Hi!", a.event("signaling/greet").Text)
}

func TestOpenSessionLimitSaysGoodbye(t *testing.T) {
	cfg := testConfig()
	cfg.Sessions.MaxCount = 1
	h := newHub(t, cfg)
	a := h.connect(t)
	a.id()

	b := h.connect(t)
	ev := b.event("error")
	kind, _ := ev.Param(0)
	assert.Equal(t, string(domain.KindLimit), kind)
	assert.True(t, b.closed())
	assert.Equal(t, 1, h.orch.Stats().Sessions)
}

func TestOutboundExchangeAwaitsReply(t *testing.T) {
	h := newHub(t, testConfig())
	a := h.connect(t)
	aid := domain.SessionID(a.id())

	x, err := h.orch.Router.Unicast(aid, protocol.Command{Name: "confirm", Kind: protocol.KindRequest})
	require.NoError(t, err)

	req := a.next(func(c protocol.Command) bool { return c.Name == "confirm" })
	require.Equal(t, protocol.KindRequest, req.Kind)
	a.send(protocol.Command{Kind: protocol.KindReply, ID: req.ID, Text: "done"})

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	reply, err := x.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "done", reply.Text)
}

func TestOutboundExchangeFailsWhenPeerLeaves(t *testing.T) {
	h := newHub(t, testConfig())
	a := h.connect(t)
	aid := domain.SessionID(a.id())

	x, err := h.orch.Router.Unicast(aid, protocol.Command{Name: "confirm", Kind: protocol.KindRequest})
	require.NoError(t, err)
	a.next(func(c protocol.Command) bool { return c.Name == "confirm" })
	require.NoError(t, a.conn.Close())

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	_, err = x.Await(ctx)
	assert.ErrorIs(t, err, core.ErrConnClosed)
}

func TestCommandsAreObserved(t *testing.T) {
	cfg := testConfig()
	h := newHub(t, cfg)
	obs := &countingObserver{}
	h.server.Ctl.Observer = obs
	a := h.connect(t)

	a.id()
	a.call("nope")
	assert.Equal(t, []string{"getid", "unknown"}, obs.calls)
}

func TestServeStopsOnCancel(t *testing.T) {
	h := newHub(t, testConfig())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.server.Serve(ctx, ln) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("server did not stop")
	}
}
