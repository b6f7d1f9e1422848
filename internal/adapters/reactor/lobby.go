package reactor

import (
	"github.com/dkeye/Lobbyhub/internal/domain"
	"github.com/dkeye/Lobbyhub/internal/protocol"
)

const missingLobbyID = "Missing lobby ID!"

func (ctl *Controller) registerLobby() {
	lobbies := ctl.Orch.Lobbies

	ctl.on("lobby/create", func(x *Exchange) error {
		if err := x.RequireRequest(); err != nil {
			return err
		}
		address, err := x.RequireParam("Missing lobby address!")
		if err != nil {
			return err
		}
		l, err := lobbies.Create(address, protocol.DataOf(x.Cmd), x.Session)
		if err != nil {
			return err
		}
		x.Reply(protocol.EncodeLobby(l))
		return nil
	})

	ctl.on("lobby/get", func(x *Exchange) error {
		if err := x.RequireRequest(); err != nil {
			return err
		}
		id, err := x.RequireParam(missingLobbyID)
		if err != nil {
			return err
		}
		var properties []string
		if len(x.Cmd.Params) > 1 {
			properties = x.Cmd.Params[1:]
		}
		l, err := lobbies.Get(domain.LobbyID(id), x.Session, properties)
		if err != nil {
			return err
		}
		x.Reply(protocol.EncodeLobby(l))
		return nil
	})

	ctl.on("lobby/list", func(x *Exchange) error {
		if err := x.RequireRequest(); err != nil {
			return err
		}
		var properties []string
		if len(x.Cmd.Params) > 0 {
			properties = x.Cmd.Params
		}
		for _, l := range lobbies.List(x.Session, properties) {
			x.Stream(protocol.EncodeLobby(l))
		}
		x.EndStream()
		return nil
	})

	ctl.on("lobby/delete", func(x *Exchange) error {
		if err := x.RequireRequest(); err != nil {
			return err
		}
		return ctl.withLobby(x, func(id domain.LobbyID) error { return lobbies.Delete(id, x.Session) })
	})

	ctl.on("lobby/join", func(x *Exchange) error {
		if err := x.RequireRequest(); err != nil {
			return err
		}
		id, err := x.RequireText(missingLobbyID)
		if err != nil {
			return err
		}
		address, _, err := lobbies.Join(domain.LobbyID(id), x.Session)
		if err != nil {
			return err
		}
		x.Reply(protocol.Command{Params: []string{address}})
		return nil
	})

	ctl.on("lobby/set-data", func(x *Exchange) error {
		if err := x.RequireRequest(); err != nil {
			return err
		}
		return ctl.withLobby(x, func(id domain.LobbyID) error {
			return lobbies.SetData(id, protocol.DataOf(x.Cmd), x.Session)
		})
	})

	ctl.on("lobby/lock", func(x *Exchange) error {
		if err := x.RequireRequest(); err != nil {
			return err
		}
		return ctl.withLobby(x, func(id domain.LobbyID) error { return lobbies.Lock(id, x.Session) })
	})
	ctl.on("lobby/unlock", func(x *Exchange) error {
		return ctl.withLobby(x, func(id domain.LobbyID) error { return lobbies.Unlock(id, x.Session) })
	})
	ctl.on("lobby/hide", func(x *Exchange) error {
		return ctl.withLobby(x, func(id domain.LobbyID) error { return lobbies.Hide(id, x.Session) })
	})
	ctl.on("lobby/publish", func(x *Exchange) error {
		return ctl.withLobby(x, func(id domain.LobbyID) error { return lobbies.Publish(id, x.Session) })
	})
	ctl.on("lobby/start", func(x *Exchange) error {
		return ctl.withLobby(x, func(id domain.LobbyID) error {
			_, err := lobbies.Start(id, x.Session)
			return err
		})
	})
	ctl.on("lobby/leave", func(x *Exchange) error {
		return ctl.withLobby(x, func(id domain.LobbyID) error {
			_, err := lobbies.Leave(id, x.Session)
			return err
		})
	})
}

// withLobby runs fn on the lobby id param and replies "ok".
func (ctl *Controller) withLobby(x *Exchange, fn func(domain.LobbyID) error) error {
	id, err := x.RequireParam(missingLobbyID)
	if err != nil {
		return err
	}
	if err := fn(domain.LobbyID(id)); err != nil {
		return err
	}
	x.ReplyText("ok")
	return nil
}
