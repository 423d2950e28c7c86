package game

import (
	"errors"
	"fmt"
)

var (
	// ErrNoNextMove is returned by PeekNextMove when the cursor has no child.
	ErrNoNextMove = errors.New("game: no next move")
	// ErrIllegalMove is returned when the rules engine rejects a move. The
	// navigator is left exactly as it was.
	ErrIllegalMove = errors.New("game: illegal move")
)

// ParseError reports why a move sequence could not be loaded. Ply is the
// 1-based ply of the offending move, or 0 when the input itself could not be
// decoded.
type ParseError struct {
	Ply  int
	Move string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Ply == 0 {
		return fmt.Sprintf("game: could not load game: %v", e.Err)
	}
	return fmt.Sprintf("game: could not load game: ply %d (%s): %v", e.Ply, e.Move, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
