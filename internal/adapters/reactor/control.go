package reactor

import "github.com/dkeye/Lobbyhub/internal/protocol"

func (ctl *Controller) registerControl() {
	ctl.on("ping", func(x *Exchange) error {
		x.ReplyOrSend("pong", protocol.Command{})
		return nil
	})
	ctl.on("whereami", func(x *Exchange) error {
		x.ReplyOrSend("youarehere", protocol.Command{Params: []string{x.Session.Address}})
		return nil
	})
	ctl.on("getid", func(x *Exchange) error {
		x.ReplyText(string(x.Session.ID))
		return nil
	})
}
