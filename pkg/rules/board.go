package rules

import (
	"github.com/notnil/chess"
)

var (
	knightOffsets = [][2]int{{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2}, {1, -2}, {1, 2}, {2, -1}, {2, 1}}
	kingOffsets   = [][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
	diagonalDirs  = [][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
	straightDirs  = [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
)

// Square returns the square on file f and rank r.
func Square(f chess.File, r chess.Rank) chess.Square {
	return chess.Square((int(r) * 8) + int(f))
}

// KingSquare returns the square of c's king, or chess.NoSquare when the
// board has none.
func KingSquare(b *chess.Board, c chess.Color) chess.Square {
	for sq := chess.A1; sq <= chess.H8; sq++ {
		p := b.Piece(sq)
		if p.Type() == chess.King && p.Color() == c {
			return sq
		}
	}
	return chess.NoSquare
}

func inCheck(b *chess.Board, c chess.Color) bool {
	king := KingSquare(b, c)
	if king == chess.NoSquare {
		return false
	}
	return attacked(b, int(king.File()), int(king.Rank()), c.Other())
}

func pieceAt(b *chess.Board, f, r int) chess.Piece {
	if f < 0 || f > 7 || r < 0 || r > 7 {
		return chess.NoPiece
	}
	return b.Piece(Square(chess.File(f), chess.Rank(r)))
}

func is(p chess.Piece, c chess.Color, types ...chess.PieceType) bool {
	if p == chess.NoPiece || p.Color() != c {
		return false
	}
	for _, t := range types {
		if p.Type() == t {
			return true
		}
	}
	return false
}

// attacked reports whether the square on file f, rank r is attacked by a
// piece of colour by.
func attacked(b *chess.Board, f, r int, by chess.Color) bool {
	// a pawn of colour by attacks from one rank behind its direction of travel
	pawnRank := r - 1
	if by == chess.Black {
		pawnRank = r + 1
	}
	if is(pieceAt(b, f-1, pawnRank), by, chess.Pawn) || is(pieceAt(b, f+1, pawnRank), by, chess.Pawn) {
		return true
	}
	for _, o := range knightOffsets {
		if is(pieceAt(b, f+o[0], r+o[1]), by, chess.Knight) {
			return true
		}
	}
	for _, o := range kingOffsets {
		if is(pieceAt(b, f+o[0], r+o[1]), by, chess.King) {
			return true
		}
	}
	return sliding(b, f, r, diagonalDirs, by, chess.Bishop, chess.Queen) ||
		sliding(b, f, r, straightDirs, by, chess.Rook, chess.Queen)
}

func sliding(b *chess.Board, f, r int, dirs [][2]int, by chess.Color, types ...chess.PieceType) bool {
	for _, d := range dirs {
		for cf, cr := f+d[0], r+d[1]; cf >= 0 && cf <= 7 && cr >= 0 && cr <= 7; cf, cr = cf+d[0], cr+d[1] {
			p := pieceAt(b, cf, cr)
			if p == chess.NoPiece {
				continue
			}
			if is(p, by, types...) {
				return true
			}
			break
		}
	}
	return false
}
