// Package archive answers "what was played from here" for a position,
// from the user's own games and from an opening repertoire.
package archive

import (
	"context"
	"errors"

	"github.com/notnil/chess"
)

var (
	// ErrNoUser is returned by a game store that does not know whose games
	// it holds.
	ErrNoUser = errors.New("archive: no username configured")
)

// Stat aggregates the archived continuations of one move from a position.
// Wins and losses are seen from the side the lookup was made for.
type Stat struct {
	Move   string `json:"move"` // SAN
	Total  int    `json:"total"`
	Wins   int    `json:"wins"`
	Draws  int    `json:"draws"`
	Losses int    `json:"losses"`
}

// Store looks up many positions at once. Positions with no archived
// continuation may be absent from the result.
type Store interface {
	Lookup(ctx context.Context, colour chess.Color, epds []string) (map[string][]Stat, error)
}

func colourName(c chess.Color) string {
	if c == chess.Black {
		return "b"
	}
	return "w"
}
