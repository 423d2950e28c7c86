package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/notnil/chess"
)

// StartingPosition returns the orthodox initial position.
func StartingPosition() *chess.Position {
	return chess.NewGame().Position()
}

// PositionFromFEN decodes a FEN string.
func PositionFromFEN(fen string) (*chess.Position, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("rules: decode fen %q: %w", fen, err)
	}
	return chess.NewGame(opt).Position(), nil
}

// EPD returns placement, side to move, castling rights and en-passant
// square. The en-passant square is only written when an en-passant capture
// is actually legal, so that transpositions share one key.
func EPD(pos *chess.Position) string {
	fields := strings.Fields(pos.String())
	if len(fields) < 4 {
		return pos.String()
	}
	ep := "-"
	for _, vm := range pos.ValidMoves() {
		if vm.HasTag(chess.EnPassant) {
			ep = fields[3]
			break
		}
	}
	return strings.Join([]string{fields[0], fields[1], fields[2], ep}, " ")
}

// FullMoveNumber returns the FEN full-move counter, which starts at 1 and
// increments after Black's move.
func FullMoveNumber(pos *chess.Position) int {
	fields := strings.Fields(pos.String())
	if len(fields) < 6 {
		return 1
	}
	n, err := strconv.Atoi(fields[5])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
