// Package rules is the only place that knows chess rules. It adapts
// github.com/notnil/chess to the small contract the navigator, the archive
// importers and the renderer consume.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

// ErrIllegal is returned when a move is not legal in the position it is
// applied to.
var ErrIllegal = errors.New("rules: illegal move")

// Move is a move the way a user expresses it: origin, destination and an
// optional promotion piece. It carries no knowledge of the position.
type Move struct {
	From  chess.Square
	To    chess.Square
	Promo chess.PieceType
}

// NewMove builds a non-promoting move.
func NewMove(from, to chess.Square) Move {
	return Move{From: from, To: to, Promo: chess.NoPieceType}
}

// String returns the move in UCI notation (e2e4, e7e8q).
func (m Move) String() string {
	s := m.From.String() + m.To.String()
	if m.Promo != chess.NoPieceType {
		s += m.Promo.String()
	}
	return s
}

// Kind is a set of flags describing what a legal move does.
type Kind uint8

const (
	Capture Kind = 1 << iota
	EnPassant
	KingSideCastle
	QueenSideCastle
	Check
)

// Has reports whether every flag of f is set in k.
func (k Kind) Has(f Kind) bool {
	return k&f == f
}

// Rules is the rules engine consumed by the navigator.
type Rules interface {
	IsLegal(pos *chess.Position, m Move) bool
	Apply(pos *chess.Position, m Move) (*chess.Position, error)
	LegalMoves(pos *chess.Position) []Move
	InCheck(pos *chess.Position, c chess.Color) bool
	Algebraic(pos *chess.Position, m Move) string
	Classify(pos *chess.Position, m Move) (Kind, error)
	ParseSAN(pos *chess.Position, san string) (Move, error)
}

// Standard implements Rules for orthodox chess.
type Standard struct{}

var _ Rules = Standard{}

func (Standard) resolve(pos *chess.Position, m Move) (*chess.Move, bool) {
	for _, vm := range pos.ValidMoves() {
		if vm.S1() == m.From && vm.S2() == m.To && vm.Promo() == m.Promo {
			return vm, true
		}
	}
	return nil, false
}

func (s Standard) IsLegal(pos *chess.Position, m Move) bool {
	_, ok := s.resolve(pos, m)
	return ok
}

func (s Standard) Apply(pos *chess.Position, m Move) (*chess.Position, error) {
	cm, ok := s.resolve(pos, m)
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrIllegal, m, pos)
	}
	return pos.Update(cm), nil
}

func (Standard) LegalMoves(pos *chess.Position) []Move {
	valid := pos.ValidMoves()
	moves := make([]Move, 0, len(valid))
	for _, vm := range valid {
		moves = append(moves, Move{From: vm.S1(), To: vm.S2(), Promo: vm.Promo()})
	}
	return moves
}

func (Standard) InCheck(pos *chess.Position, c chess.Color) bool {
	return inCheck(pos.Board(), c)
}

// Algebraic returns the SAN of m, or an empty string when m is illegal.
func (s Standard) Algebraic(pos *chess.Position, m Move) string {
	cm, ok := s.resolve(pos, m)
	if !ok {
		return ""
	}
	return chess.AlgebraicNotation{}.Encode(pos, cm)
}

func (s Standard) Classify(pos *chess.Position, m Move) (Kind, error) {
	cm, ok := s.resolve(pos, m)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrIllegal, m)
	}
	var k Kind
	if cm.HasTag(chess.EnPassant) {
		k |= EnPassant | Capture
	}
	if cm.HasTag(chess.Capture) {
		k |= Capture
	}
	if cm.HasTag(chess.KingSideCastle) {
		k |= KingSideCastle
	}
	if cm.HasTag(chess.QueenSideCastle) {
		k |= QueenSideCastle
	}
	if cm.HasTag(chess.Check) {
		k |= Check
	}
	return k, nil
}

// ParseSAN resolves a move written in SAN (annotations allowed) or UCI.
func (s Standard) ParseSAN(pos *chess.Position, san string) (Move, error) {
	want := stripAnnotations(san)
	for _, vm := range pos.ValidMoves() {
		if stripAnnotations(chess.AlgebraicNotation{}.Encode(pos, vm)) == want {
			return Move{From: vm.S1(), To: vm.S2(), Promo: vm.Promo()}, nil
		}
	}
	for _, vm := range pos.ValidMoves() {
		if vm.String() == strings.ToLower(want) {
			return Move{From: vm.S1(), To: vm.S2(), Promo: vm.Promo()}, nil
		}
	}
	return Move{}, fmt.Errorf("%w: %q", ErrIllegal, san)
}

// stripAnnotations drops check marks and move assessments; castling written
// with zeroes is normalised to letters.
func stripAnnotations(san string) string {
	san = strings.TrimSpace(san)
	san = strings.TrimRight(san, "+#!?")
	return strings.ReplaceAll(san, "0", "O")
}
