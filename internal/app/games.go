package app

import (
	"github.com/dkeye/Lobbyhub/internal/domain"
)

// GameRegistry is the static set of known games, loaded once at startup.
type GameRegistry struct {
	games map[string]domain.Game
	order []string
}

func NewGameRegistry(games []domain.Game) *GameRegistry {
	r := &GameRegistry{games: make(map[string]domain.Game, len(games))}
	for _, g := range games {
		if _, dup := r.games[g.ID]; !dup {
			r.order = append(r.order, g.ID)
		}
		r.games[g.ID] = g
	}
	return r
}

func (r *GameRegistry) Find(id string) (domain.Game, bool) {
	g, ok := r.games[id]
	return g, ok
}

func (r *GameRegistry) Require(id string) (domain.Game, error) {
	g, ok := r.games[id]
	if !ok {
		return domain.Game{}, domain.Errorf(domain.KindDataNotFound, "Unknown game#%s!", id)
	}
	return g, nil
}

func (r *GameRegistry) List() []domain.Game {
	out := make([]domain.Game, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.games[id])
	}
	return out
}
