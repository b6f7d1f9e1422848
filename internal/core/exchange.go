package core

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/Lobbyhub/internal/domain"
	"github.com/dkeye/Lobbyhub/internal/protocol"
)

var ErrNoReply = errors.New("exchange expects no reply")

// Exchange is the handle of one outbound send. Only request sends can be
// awaited; everything else is fire-and-forget.
type Exchange struct {
	ID      string
	Target  domain.SessionID
	replies chan protocol.Command

	once   sync.Once
	failed chan struct{}
	err    error
}

func NewExchange(target domain.SessionID, id string) *Exchange {
	x := &Exchange{ID: id, Target: target}
	if id != "" {
		x.replies = make(chan protocol.Command, 1)
		x.failed = make(chan struct{})
	}
	return x
}

// Fail wakes every waiter with err unless a reply already arrived. Only the
// first failure counts.
func (x *Exchange) Fail(err error) {
	if x == nil || x.failed == nil {
		return
	}
	x.once.Do(func() {
		x.err = err
		close(x.failed)
	})
}

// Resolve hands the first reply to a waiter. Later replies are dropped.
func (x *Exchange) Resolve(c protocol.Command) bool {
	if x == nil || x.replies == nil {
		return false
	}
	select {
	case x.replies <- c:
		return true
	default:
		return false
	}
}

// Await blocks until the peer replies or ctx ends. An error reply is
// returned together with its domain error.
func (x *Exchange) Await(ctx context.Context) (protocol.Command, error) {
	if x == nil || x.replies == nil {
		return protocol.Command{}, ErrNoReply
	}
	select {
	case c := <-x.replies:
		return answer(c)
	case <-x.failed:
		select {
		case c := <-x.replies:
			return answer(c)
		default:
			return protocol.Command{}, x.err
		}
	case <-ctx.Done():
		return protocol.Command{}, ctx.Err()
	}
}

func answer(c protocol.Command) (protocol.Command, error) {
	if c.Kind == protocol.KindError {
		kind, _ := c.Param(0)
		msg, _ := c.Param(1)
		return c, &domain.Error{Kind: domain.ErrorKind(kind), Msg: msg}
	}
	return c, nil
}
