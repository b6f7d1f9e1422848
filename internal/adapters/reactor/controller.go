package reactor

import (
	"context"
	"fmt"

	"github.com/dkeye/Lobbyhub/internal/adapters/rtc"
	"github.com/dkeye/Lobbyhub/internal/app/orch"
	"github.com/dkeye/Lobbyhub/internal/domain"
	"github.com/dkeye/Lobbyhub/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Handler processes one inbound command. A returned error is reported to
// the sender; the connection stays open.
type Handler func(x *Exchange) error

type CommandObserver interface {
	ObserveCommand(name string, err error)
}

// Controller routes commands by name to their handler.
type Controller struct {
	Orch     *orch.Orchestrator
	ICE      *rtc.ICE
	Observer CommandObserver

	handlers map[string]Handler
}

func NewController(o *orch.Orchestrator, ice *rtc.ICE, observer CommandObserver) *Controller {
	ctl := &Controller{Orch: o, ICE: ice, Observer: observer, handlers: make(map[string]Handler)}
	ctl.registerControl()
	ctl.registerSession()
	ctl.registerLobby()
	ctl.registerWebRTC()
	return ctl
}

func (ctl *Controller) on(name string, h Handler) {
	ctl.handlers[name] = h
}

// Dispatch runs cmd to completion and answers failures on the same connection.
func (ctl *Controller) Dispatch(ctx context.Context, sid domain.SessionID, conn *Conn, cmd protocol.Command) {
	x := &Exchange{ctx: ctx, Cmd: cmd, conn: conn}
	h, known := ctl.handlers[cmd.Name]

	err := ctl.run(x, sid, h, known)
	if ctl.Observer != nil {
		label := cmd.Name
		if !known {
			label = "unknown"
		}
		ctl.Observer.ObserveCommand(label, err)
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "reactor").Str("sid", string(sid)).Str("command", cmd.Name).
			Str("kind", string(domain.KindOf(err))).Msg("command failed")
		x.Fail(err)
	}
}

func (ctl *Controller) run(x *Exchange, sid domain.SessionID, h Handler, known bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "reactor").Str("sid", string(sid)).Str("command", x.Cmd.Name).
				Interface("panic", r).Msg("handler panicked")
			err = fmt.Errorf("failed to process %s", x.Cmd.Name)
		}
	}()
	if !known {
		return domain.Errorf(domain.KindUnknownCommand, "Unknown command: %s", x.Cmd.Name)
	}
	x.Session, err = ctl.Orch.Session(sid)
	if err != nil {
		return err
	}
	log.Debug().Str("module", "reactor").Str("sid", string(sid)).Str("command", x.Cmd.Name).Msg("dispatch")
	return h(x)
}
