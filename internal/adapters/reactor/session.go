package reactor

func (ctl *Controller) registerSession() {
	ctl.on("session/set-game", func(x *Exchange) error {
		if err := x.RequireRequest(); err != nil {
			return err
		}
		gameID, err := x.RequireParam("Missing Game ID!")
		if err != nil {
			return err
		}
		if _, err := ctl.Orch.Sessions.SetGame(x.Session.ID, gameID); err != nil {
			return err
		}
		x.ReplyText("ok")
		return nil
	})
}
