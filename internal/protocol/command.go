// Package protocol implements the line-oriented command framing spoken on the
// TCP listener: one command per line, request/reply correlation by exchange id,
// streamed replies and error replies.
package protocol

type Kind int

const (
	KindEvent Kind = iota
	KindRequest
	KindReply
	KindError
	KindStream
	KindStreamEnd
)

func (k Kind) String() string {
	switch k {
	case KindEvent:
		return "event"
	case KindRequest:
		return "request"
	case KindReply:
		return "reply"
	case KindError:
		return "error"
	case KindStream:
		return "stream"
	case KindStreamEnd:
		return "stream-end"
	}
	return "unknown"
}

// Pair is one key=value parameter. Order is preserved on the wire.
type Pair struct {
	Key   string
	Value string
}

// Command is a single frame. Replies, errors and stream frames carry no name,
// only the id of the exchange they belong to.
type Command struct {
	Name   string
	Kind   Kind
	ID     string
	Params []string
	KV     []Pair
	Text   string
}

func (c Command) IsRequest() bool { return c.Kind == KindRequest }

// IsResponse reports whether c answers an exchange rather than starting one.
func (c Command) IsResponse() bool {
	switch c.Kind {
	case KindReply, KindError, KindStream, KindStreamEnd:
		return true
	}
	return false
}

// Param returns the i-th positional param, falling back to Text for i == 0.
func (c Command) Param(i int) (string, bool) {
	if i < len(c.Params) {
		return c.Params[i], true
	}
	if i == 0 && c.Text != "" {
		return c.Text, true
	}
	return "", false
}

func (c Command) Value(key string) (string, bool) {
	for _, p := range c.KV {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

func Event(name string) Command { return Command{Name: name, Kind: KindEvent} }

func Reply(id string) Command { return Command{Kind: KindReply, ID: id} }

func Stream(id string) Command { return Command{Kind: KindStream, ID: id} }

func StreamEnd(id string) Command { return Command{Kind: KindStreamEnd, ID: id} }

// Failure builds an error reply for id, or an "error" event when id is empty.
func Failure(id, kind, msg string) Command {
	if id == "" {
		return Command{Name: "error", Kind: KindEvent, Params: []string{kind, msg}}
	}
	return Command{Kind: KindError, ID: id, Params: []string{kind, msg}}
}
