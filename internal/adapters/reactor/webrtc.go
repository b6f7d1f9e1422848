package reactor

import (
	"fmt"

	"github.com/dkeye/Lobbyhub/internal/app/orch"
	"github.com/dkeye/Lobbyhub/internal/domain"
	"github.com/dkeye/Lobbyhub/internal/protocol"
)

func (ctl *Controller) registerWebRTC() {
	ctl.on(orch.CmdLobbyStart, func(x *Exchange) error {
		if err := x.RequireRequest(); err != nil {
			return err
		}
		id, err := x.RequireParam(missingLobbyID)
		if err != nil {
			return err
		}
		participants, err := ctl.Orch.StartLobby(domain.LobbyID(id), x.Session)
		if err != nil {
			return err
		}
		params := make([]string, 0, len(participants))
		for _, p := range participants {
			params = append(params, string(p))
		}
		x.Reply(protocol.Command{Params: params})
		return nil
	})

	for _, kind := range []orch.RelayKind{orch.RelayOffer, orch.RelayAnswer, orch.RelayCandidate} {
		ctl.on("webrtc/"+string(kind), ctl.relay(kind))
	}

	ctl.on("webrtc/ice-servers", func(x *Exchange) error {
		if err := x.RequireRequest(); err != nil {
			return err
		}
		if ctl.ICE != nil {
			for _, server := range ctl.ICE.Configuration().ICEServers {
				chunk := protocol.Command{Params: server.URLs}
				if server.Username != "" {
					chunk.KV = []protocol.Pair{
						{Key: "username", Value: server.Username},
						{Key: "credential", Value: fmt.Sprint(server.Credential)},
					}
				}
				x.Stream(chunk)
			}
		}
		x.EndStream()
		return nil
	})

	ctl.on("signaling/greet/lobby", func(x *Exchange) error {
		id, err := x.RequireParam(missingLobbyID)
		if err != nil {
			return err
		}
		if err := ctl.Orch.Greet(domain.LobbyID(id), x.Session); err != nil {
			return err
		}
		x.ReplyText("ok")
		return nil
	})
}

// relay forwards the payload verbatim. Requests get "ok" once the frame is queued.
func (ctl *Controller) relay(kind orch.RelayKind) Handler {
	return func(x *Exchange) error {
		target, err := x.RequireParam("Missing target session ID!")
		if err != nil {
			return err
		}
		if err := ctl.Orch.Relay(kind, x.Session.ID, domain.SessionID(target), x.Cmd.KV); err != nil {
			return err
		}
		x.ReplyText("ok")
		return nil
	}
}
