package orch

import (
	"strings"

	"github.com/dkeye/Lobbyhub/internal/domain"
	"github.com/dkeye/Lobbyhub/internal/protocol"
	"github.com/rs/zerolog/log"
)

const (
	CmdLobbyStart = "webrtc/lobby/start"
	cmdGetPrefix  = "webrtc/get/"
	cmdGreet      = "signaling/greet"
)

// RelayKind names the handshake message being forwarded between peers.
type RelayKind string

const (
	RelayOffer     RelayKind = "offer"
	RelayAnswer    RelayKind = "answer"
	RelayCandidate RelayKind = "candidate"
)

// StartLobby starts the handshake for any session that can see the lobby, not
// only its owner. The kickoff broadcast happens in the lobby-start reaction;
// the participants are returned for the reply.
func (o *Orchestrator) StartLobby(id domain.LobbyID, s domain.Session) ([]domain.SessionID, error) {
	return o.Lobbies.Announce(id, s)
}

// Kickoff tells every participant who hosts the handshake and who takes part.
func (o *Orchestrator) Kickoff(lobby domain.Lobby, participants []domain.SessionID) {
	players := make([]string, 0, len(participants))
	for _, p := range participants {
		players = append(players, string(p))
	}
	cmd := protocol.Event(CmdLobbyStart)
	cmd.KV = []protocol.Pair{
		{Key: "host", Value: string(lobby.Host())},
		{Key: "lobbyId", Value: string(lobby.ID)},
		{Key: "players", Value: strings.Join(players, ", ")},
	}

	target := lobby.Clone()
	target.Participants = participants
	res := o.Router.Broadcast(target, cmd)
	log.Info().Str("module", "orch.signaling").Str("lobby", string(lobby.ID)).
		Str("host", string(lobby.Host())).Int("notified", len(res)).Msg("lobby kickoff")
}

// Relay forwards payload from one session to another without looking at it.
func (o *Orchestrator) Relay(kind RelayKind, from, to domain.SessionID, payload []protocol.Pair) error {
	cmd := protocol.Event(cmdGetPrefix + string(kind))
	cmd.Params = []string{string(from)}
	cmd.KV = payload

	if _, err := o.Router.Unicast(to, cmd); err != nil {
		log.Warn().Err(err).Str("module", "orch.signaling").Str("sid", string(from)).Str("target", string(to)).
			Str("kind", string(kind)).Msg("relay failed")
		return err
	}
	log.Debug().Str("module", "orch.signaling").Str("sid", string(from)).Str("target", string(to)).
		Str("kind", string(kind)).Msg("relayed")
	return nil
}

// Greet broadcasts a greeting to a lobby of the caller's game.
func (o *Orchestrator) Greet(id domain.LobbyID, s domain.Session) error {
	l, err := o.Lobbies.RequireInGame(id, s.GameID)
	if err != nil {
		return err
	}
	cmd := protocol.Event(cmdGreet)
	cmd.Text = "Hi!"
	o.Router.Broadcast(l, cmd)
	return nil
}
