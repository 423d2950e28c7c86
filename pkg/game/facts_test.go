package game

import (
	"testing"

	"github.com/notnil/chess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertCaptured(t *testing.T, n *Navigator, want chess.Square) {
	t.Helper()
	sq, ok := n.CapturedSquare()
	require.True(t, ok, "ply %d", n.Ply())
	assert.Equal(t, want, sq, "ply %d", n.Ply())
}

func assertNotCaptured(t *testing.T, n *Navigator) {
	t.Helper()
	_, ok := n.CapturedSquare()
	assert.False(t, ok, "ply %d", n.Ply())
}

func TestCapturedSquareSimple(t *testing.T) {
	n := load(t, scholarsMate)

	// 3. ... Nf6
	n.Advance(5)
	assertNotCaptured(t, n)

	// 4. Qxf7#
	n.Advance(1)
	assertCaptured(t, n, chess.F7)

	n.Advance(1)
	assertNotCaptured(t, n)
}

func TestCapturedSquareEnPassant(t *testing.T) {
	n := load(t, `1. e4 d5 2. e5 f5 3. exf6 d4 4. c4 dxc3 5. d4 e5 6. d5 c5 7. dxc6 e4
8. f4 exf3`)

	// 3. exf6 takes the pawn that double-stepped to f5
	n.Advance(4)
	assertCaptured(t, n, chess.F5)

	// 4. c4
	n.Advance(2)
	assertNotCaptured(t, n)

	// 4. ... dxc3
	n.Advance(1)
	assertCaptured(t, n, chess.C4)

	// 7. dxc6
	n.Advance(5)
	assertCaptured(t, n, chess.C5)

	// 8. ... exf3
	n.Advance(3)
	assertCaptured(t, n, chess.F4)
}

func TestPromotionPiece(t *testing.T) {
	n := load(t, "1. h4 f5 2. h5 f4 3. h6 f3 4. hxg7 fxg2 5. gxh8=Q e6 6. Qxg8 gxf1=B")

	for i := 0; i < 8; i++ {
		_, ok := n.PromotionPiece()
		assert.False(t, ok, "ply %d", n.Ply())
		n.Advance(1)
	}

	p, ok := n.PromotionPiece()
	require.True(t, ok)
	assert.Equal(t, chess.Queen, p)

	for i := 0; i < 2; i++ {
		n.Advance(1)
		_, ok := n.PromotionPiece()
		assert.False(t, ok, "ply %d", n.Ply())
	}

	n.Advance(1)
	p, ok = n.PromotionPiece()
	require.True(t, ok)
	assert.Equal(t, chess.Bishop, p)
}

func assertRookMove(t *testing.T, n *Navigator, from, to chess.Square) {
	t.Helper()
	f, tt, ok := n.CastlingRookMove()
	require.True(t, ok, "ply %d", n.Ply())
	assert.Equal(t, from, f)
	assert.Equal(t, to, tt)
}

func TestCastlingRookMoveWhiteKingSideBlackQueenSide(t *testing.T) {
	n := load(t, "1. e4 d5 2. Be2 Qd6 3. Nf3 Bd7 4. O-O Nc6 5. d3 O-O-O")

	for i := 0; i < 6; i++ {
		_, _, ok := n.CastlingRookMove()
		assert.False(t, ok, "ply %d", n.Ply())
		n.Advance(1)
	}
	assertRookMove(t, n, chess.H1, chess.F1)

	for i := 0; i < 2; i++ {
		n.Advance(1)
		_, _, ok := n.CastlingRookMove()
		assert.False(t, ok, "ply %d", n.Ply())
	}

	n.Advance(1)
	assertRookMove(t, n, chess.A8, chess.D8)
}

func TestCastlingRookMoveWhiteQueenSideBlackKingSide(t *testing.T) {
	n := load(t, "1. d4 e5 2. Qd3 Be7 3. Bd2 Nf6 4. Nc3 O-O 5. O-O-O")

	for i := 0; i < 7; i++ {
		_, _, ok := n.CastlingRookMove()
		assert.False(t, ok, "ply %d", n.Ply())
		n.Advance(1)
	}
	assertRookMove(t, n, chess.H8, chess.F8)

	n.Advance(1)
	assertRookMove(t, n, chess.A1, chess.D1)
}

func TestKingCheckSquare(t *testing.T) {
	n := load(t, scholarsMate)

	for i := 0; i < 7; i++ {
		_, ok := n.KingCheckSquare()
		assert.False(t, ok, "ply %d", n.Ply())
		n.Advance(1)
	}

	sq, ok := n.KingCheckSquare()
	require.True(t, ok)
	assert.Equal(t, chess.E8, sq)

	n.GoBack()
	_, ok = n.KingCheckSquare()
	assert.False(t, ok)
}

func TestPreviousMove(t *testing.T) {
	n := load(t, scholarsMate)
	_, _, ok := n.PreviousMove()
	assert.False(t, ok)

	n.Advance(1)
	from, to, ok := n.PreviousMove()
	require.True(t, ok)
	assert.Equal(t, chess.E2, from)
	assert.Equal(t, chess.E4, to)

	n.Advance(1)
	from, to, _ = n.PreviousMove()
	assert.Equal(t, chess.E7, from)
	assert.Equal(t, chess.E5, to)

	n.GoBack()
	from, to, _ = n.PreviousMove()
	assert.Equal(t, chess.E2, from)
	assert.Equal(t, chess.E4, to)
}

func TestTurnAndNumber(t *testing.T) {
	n := load(t, scholarsMate)
	_, ok := n.TurnAndNumber()
	assert.False(t, ok)

	want := []MoveNumber{
		{chess.White, 1}, {chess.Black, 1},
		{chess.White, 2}, {chess.Black, 2},
		{chess.White, 3}, {chess.Black, 3},
		{chess.White, 4},
	}
	for _, w := range want {
		require.True(t, n.Advance(1))
		mn, ok := n.TurnAndNumber()
		require.True(t, ok)
		assert.Equal(t, w, mn, "ply %d", n.Ply())
	}

	n.GoToStart()
	_, ok = n.TurnAndNumber()
	assert.False(t, ok)
	n.GoToEnd()
	mn, _ := n.TurnAndNumber()
	assert.Equal(t, MoveNumber{chess.White, 4}, mn)
}

func TestTransitions(t *testing.T) {
	n := load(t, "1. e4 d5 2. e5 f5 3. exf6 Nc6 4. Nf3 Qd6 5. Be2 Bd7 6. O-O")

	n.Advance(4)
	tr, err := n.NextTransition()
	require.NoError(t, err)
	assert.Equal(t, chess.E5, tr.From)
	assert.Equal(t, chess.F6, tr.To)
	assert.True(t, tr.Captures())
	assert.Equal(t, chess.F5, tr.Captured)
	assert.False(t, tr.Castles())
	assert.Equal(t, "exf6", tr.SAN)

	n.Advance(1)
	prev, ok := n.PreviousTransition()
	require.True(t, ok)
	assert.Equal(t, tr, prev)

	n.GoToEnd()
	prev, ok = n.PreviousTransition()
	require.True(t, ok)
	assert.True(t, prev.Castles())
	assert.Equal(t, chess.H1, prev.RookFrom)
	assert.Equal(t, chess.F1, prev.RookTo)
	assert.Equal(t, chess.NoPieceType, prev.Promo)

	n.GoToStart()
	_, ok = n.PreviousTransition()
	assert.False(t, ok)
}
