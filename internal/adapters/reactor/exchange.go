package reactor

import (
	"context"
	"errors"

	"github.com/dkeye/Lobbyhub/internal/core"
	"github.com/dkeye/Lobbyhub/internal/domain"
	"github.com/dkeye/Lobbyhub/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Exchange is one inbound command together with the means to answer it.
type Exchange struct {
	Cmd     protocol.Command
	Session domain.Session

	ctx  context.Context
	conn *Conn
}

func (x *Exchange) Context() context.Context { return x.ctx }

func (x *Exchange) send(c protocol.Command) {
	if _, err := x.conn.Send(c); err != nil && !errors.Is(err, core.ErrConnClosed) {
		log.Warn().Err(err).Str("module", "reactor").Str("sid", string(x.Session.ID)).Str("command", x.Cmd.Name).Msg("answer dropped")
	}
}

// Reply answers a request. Events have nobody waiting, so nothing is sent.
func (x *Exchange) Reply(c protocol.Command) {
	if !x.Cmd.IsRequest() {
		return
	}
	x.send(withBody(protocol.Reply(x.Cmd.ID), c))
}

// withBody copies the payload of body onto the framing of head.
func withBody(head, body protocol.Command) protocol.Command {
	head.Params, head.KV, head.Text = body.Params, body.KV, body.Text
	return head
}

func (x *Exchange) ReplyText(text string) {
	x.Reply(protocol.Command{Text: text})
}

// ReplyOrSend replies to a request, or sends c as event name otherwise.
func (x *Exchange) ReplyOrSend(name string, c protocol.Command) {
	if x.Cmd.IsRequest() {
		x.Reply(c)
		return
	}
	x.send(withBody(protocol.Event(name), c))
}

func (x *Exchange) Stream(c protocol.Command) {
	if !x.Cmd.IsRequest() {
		return
	}
	x.send(withBody(protocol.Stream(x.Cmd.ID), c))
}

func (x *Exchange) EndStream() {
	if !x.Cmd.IsRequest() {
		return
	}
	x.send(protocol.StreamEnd(x.Cmd.ID))
}

// Fail reports err as an error reply, or as an "error" event for non-requests.
func (x *Exchange) Fail(err error) {
	id := ""
	if x.Cmd.IsRequest() {
		id = x.Cmd.ID
	}
	x.send(protocol.Failure(id, string(domain.KindOf(err)), err.Error()))
}

func (x *Exchange) RequireRequest() error {
	if !x.Cmd.IsRequest() {
		return domain.Errorf(domain.KindInvalidCommand, "Command %s must be a request!", x.Cmd.Name)
	}
	return nil
}

// RequireParam returns the first positional param or fails with msg.
func (x *Exchange) RequireParam(msg string) (string, error) {
	v, ok := x.Cmd.Param(0)
	if !ok || v == "" {
		return "", domain.Errorf(domain.KindInvalidCommand, "%s", msg)
	}
	return v, nil
}

// RequireText returns the single-token body or fails with msg.
func (x *Exchange) RequireText(msg string) (string, error) {
	if x.Cmd.Text == "" {
		return "", domain.Errorf(domain.KindInvalidCommand, "%s", msg)
	}
	return x.Cmd.Text, nil
}
