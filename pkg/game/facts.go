package game

import (
	"github.com/notnil/chess"

	"github.com/qnkhuat/chessreview/pkg/rules"
)

// MoveNumber pairs the side that moved with the full-move number it moved
// on. The move list uses it as the identity of a cell.
type MoveNumber struct {
	Color  chess.Color
	Number int
}

// Transition is everything a renderer needs to animate one ply.
type Transition struct {
	From     chess.Square
	To       chess.Square
	Captured chess.Square // chess.NoSquare when nothing is taken
	RookFrom chess.Square // chess.NoSquare unless castling
	RookTo   chess.Square
	Promo    chess.PieceType
	SAN      string
}

// Captures reports whether a piece disappears during the transition.
func (t Transition) Captures() bool {
	return t.Captured != chess.NoSquare
}

// Castles reports whether a rook moves along with the king.
func (t Transition) Castles() bool {
	return t.RookFrom != chess.NoSquare
}

func (n *Navigator) pending() (*chess.Position, rules.Move, bool) {
	nx, ok := n.next()
	if !ok {
		return nil, rules.Move{}, false
	}
	return n.cur().pos, nx.move, true
}

func (n *Navigator) kind(pos *chess.Position, m rules.Move) rules.Kind {
	k, err := n.rules.Classify(pos, m)
	if err != nil {
		// every stored move was applied through the same rules engine
		return 0
	}
	return k
}

func capturedSquare(m rules.Move, k rules.Kind) (chess.Square, bool) {
	switch {
	case k.Has(rules.EnPassant):
		// the captured pawn sits one rank behind the destination, seen
		// from the capturer
		r := m.To.Rank() + 1
		if m.To.Rank() >= chess.Rank5 {
			r = m.To.Rank() - 1
		}
		return rules.Square(m.To.File(), r), true
	case k.Has(rules.Capture):
		return m.To, true
	}
	return chess.NoSquare, false
}

func castlingRookMove(m rules.Move, k rules.Kind) (chess.Square, chess.Square, bool) {
	if !k.Has(rules.KingSideCastle) && !k.Has(rules.QueenSideCastle) {
		return chess.NoSquare, chess.NoSquare, false
	}
	rank := m.From.Rank()
	if m.To.File() > m.From.File() {
		return rules.Square(chess.FileH, rank), rules.Square(chess.FileF, rank), true
	}
	return rules.Square(chess.FileA, rank), rules.Square(chess.FileD, rank), true
}

// CapturedSquare returns the square whose occupant disappears when the
// pending move is played. For en passant that is the square of the pawn
// taken, not the destination.
func (n *Navigator) CapturedSquare() (chess.Square, bool) {
	pos, m, ok := n.pending()
	if !ok {
		return chess.NoSquare, false
	}
	return capturedSquare(m, n.kind(pos, m))
}

// PromotionPiece returns the piece the pending move promotes to.
func (n *Navigator) PromotionPiece() (chess.PieceType, bool) {
	_, m, ok := n.pending()
	if !ok || m.Promo == chess.NoPieceType {
		return chess.NoPieceType, false
	}
	return m.Promo, true
}

// CastlingRookMove returns the rook's origin and destination when the
// pending move castles.
func (n *Navigator) CastlingRookMove() (chess.Square, chess.Square, bool) {
	pos, m, ok := n.pending()
	if !ok {
		return chess.NoSquare, chess.NoSquare, false
	}
	return castlingRookMove(m, n.kind(pos, m))
}

// KingCheckSquare returns the square of the side to move's king when it is
// in check in the cursor position. Callers ask after advancing: "is the
// position I just arrived at a check".
func (n *Navigator) KingCheckSquare() (chess.Square, bool) {
	pos := n.cur().pos
	turn := pos.Turn()
	if !n.rules.InCheck(pos, turn) {
		return chess.NoSquare, false
	}
	sq := rules.KingSquare(pos.Board(), turn)
	return sq, sq != chess.NoSquare
}

// PreviousMove returns the move that produced the cursor position.
func (n *Navigator) PreviousMove() (chess.Square, chess.Square, bool) {
	c := n.cur()
	if c.parent == NoNode {
		return chess.NoSquare, chess.NoSquare, false
	}
	return c.move.From, c.move.To, true
}

// TurnAndNumber returns who moved into the cursor position and on which
// full move, read from the parent position.
func (n *Navigator) TurnAndNumber() (MoveNumber, bool) {
	c := n.cur()
	if c.parent == NoNode {
		return MoveNumber{}, false
	}
	return moveNumber(n.nodes[c.parent].pos), true
}

func moveNumber(pos *chess.Position) MoveNumber {
	return MoveNumber{Color: pos.Turn(), Number: rules.FullMoveNumber(pos)}
}

func (n *Navigator) transition(pos *chess.Position, m rules.Move, san string) Transition {
	k := n.kind(pos, m)
	t := Transition{
		From:     m.From,
		To:       m.To,
		Captured: chess.NoSquare,
		RookFrom: chess.NoSquare,
		RookTo:   chess.NoSquare,
		Promo:    m.Promo,
		SAN:      san,
	}
	if sq, ok := capturedSquare(m, k); ok {
		t.Captured = sq
	}
	if from, to, ok := castlingRookMove(m, k); ok {
		t.RookFrom, t.RookTo = from, to
	}
	return t
}

// NextTransition describes the pending move, relative to the cursor
// position.
func (n *Navigator) NextTransition() (Transition, error) {
	nx, ok := n.next()
	if !ok {
		return Transition{}, ErrNoNextMove
	}
	return n.transition(n.cur().pos, nx.move, nx.san), nil
}

// PreviousTransition describes the move that produced the cursor position,
// relative to its parent. Renderers play it in reverse when stepping back.
func (n *Navigator) PreviousTransition() (Transition, bool) {
	c := n.cur()
	if c.parent == NoNode {
		return Transition{}, false
	}
	return n.transition(n.nodes[c.parent].pos, c.move, c.san), true
}
