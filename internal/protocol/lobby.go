package protocol

import (
	"slices"

	"github.com/dkeye/Lobbyhub/internal/domain"
)

const (
	flagLocked = "locked"
	flagHidden = "hidden"
)

// EncodeLobby renders a lobby descriptor: [id, "locked"?, "hidden"?] plus data as key/values.
func EncodeLobby(l domain.Lobby) Command {
	params := []string{string(l.ID)}
	if l.IsLocked {
		params = append(params, flagLocked)
	}
	if !l.IsVisible {
		params = append(params, flagHidden)
	}
	return Command{Params: params, KV: PairsOf(l.Data)}
}

// DecodeLobby reads a descriptor back. Ownership, game, address and
// participants are not part of the descriptor and stay empty.
func DecodeLobby(c Command) domain.Lobby {
	id, _ := c.Param(0)
	var flags []string
	if len(c.Params) > 1 {
		flags = c.Params[1:]
	}
	return domain.Lobby{
		ID:        domain.LobbyID(id),
		IsLocked:  slices.Contains(flags, flagLocked),
		IsVisible: !slices.Contains(flags, flagHidden),
		Data:      DataOf(c),
	}
}

// DataOf collects the key/value params of c; repeated keys keep the last value.
func DataOf(c Command) domain.Data {
	d := domain.Data{}
	for _, p := range c.KV {
		d = d.Set(p.Key, p.Value)
	}
	return d
}

func PairsOf(d domain.Data) []Pair {
	if len(d) == 0 {
		return nil
	}
	out := make([]Pair, 0, len(d))
	for _, e := range d {
		out = append(out, Pair{Key: e.Key, Value: e.Value})
	}
	return out
}
