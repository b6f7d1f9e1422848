package app

import (
	"errors"

	"github.com/dkeye/Lobbyhub/internal/core"
	"github.com/dkeye/Lobbyhub/internal/domain"
	"github.com/dkeye/Lobbyhub/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Delivery is the per-target outcome of a broadcast. Err is set when the
// frame could not even be queued; Exchange can be awaited for request frames.
type Delivery struct {
	Exchange *core.Exchange
	Err      error
}

// Router resolves session ids to live connections. Sends never block.
type Router struct {
	sessions *Registry
	policy   Policy
}

func NewRouter(sessions *Registry, policy Policy) *Router {
	if policy == nil {
		policy = SimplePolicy{}
	}
	return &Router{sessions: sessions, policy: policy}
}

// Unicast queues cmd for sid, failing with DataNotFoundError when sid has no live connection.
func (r *Router) Unicast(sid domain.SessionID, cmd protocol.Command) (*core.Exchange, error) {
	conn, ok := r.sessions.Signal(sid)
	if !ok {
		return nil, domain.Errorf(domain.KindDataNotFound, "No connection to session#%s!", sid)
	}
	x, err := conn.Send(cmd)
	switch {
	case err == nil:
		return x, nil
	case errors.Is(err, core.ErrConnClosed):
		return nil, domain.Errorf(domain.KindDataNotFound, "No connection to session#%s!", sid)
	case errors.Is(err, core.ErrBackpressure):
		r.onBackpressure(sid, conn)
	}
	return x, err
}

func (r *Router) onBackpressure(sid domain.SessionID, conn core.SignalConnection) {
	switch r.policy.OnBackpressure(sid) {
	case Disconnect:
		log.Warn().Str("module", "app.router").Str("sid", string(sid)).Msg("slow consumer, disconnecting")
		conn.Close()
	case DropFrame:
		log.Warn().Str("module", "app.router").Str("sid", string(sid)).Msg("slow consumer, frame dropped")
	case NoAction:
	}
}

// Broadcast unicasts cmd to every participant of lobby. Participants without
// a live session are skipped and missing from the result.
func (r *Router) Broadcast(lobby domain.Lobby, cmd protocol.Command) map[domain.SessionID]Delivery {
	out := make(map[domain.SessionID]Delivery, len(lobby.Participants))
	for _, sid := range lobby.Participants {
		if _, ok := r.sessions.Signal(sid); !ok {
			log.Debug().Str("module", "app.router").Str("lobby", string(lobby.ID)).Str("sid", string(sid)).Msg("skipping stale participant")
			continue
		}
		x, err := r.Unicast(sid, cmd)
		out[sid] = Delivery{Exchange: x, Err: err}
	}
	log.Debug().Str("module", "app.router").Str("lobby", string(lobby.ID)).Str("command", cmd.Name).Int("sent_to", len(out)).Msg("broadcast result")
	return out
}
