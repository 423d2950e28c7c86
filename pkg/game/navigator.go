// Package game holds the move tree of the game under review and the cursor
// walking it.
//
// Nodes live in an arena and are addressed by NodeID. A node never changes
// once created except for its list of children, so replacing the next move
// only rewrites one children slice: nodes cut off by it become unreachable
// but no handle held elsewhere ever dangles.
package game

import (
	"fmt"
	"io"
	"os"

	"github.com/notnil/chess"

	"github.com/qnkhuat/chessreview/pkg/rules"
)

// NodeID addresses a node in the navigator's arena.
type NodeID int

// NoNode is the parent of the root.
const NoNode NodeID = -1

type node struct {
	move     rules.Move
	san      string
	parent   NodeID
	children []NodeID // children[0] is the mainline
	pos      *chess.Position
	ply      int
}

// NavigationState identifies what is on display.
type NavigationState struct {
	Cursor NodeID
	Ply    int
	Turn   chess.Color
}

// Navigator owns a move tree and a cursor into it. It is not safe for
// concurrent use; every method runs to completion synchronously.
type Navigator struct {
	rules  rules.Rules
	nodes  []node
	cursor NodeID
	tags   map[string]string
}

// New returns a navigator holding only start.
func New(r rules.Rules, start *chess.Position) *Navigator {
	return &Navigator{
		rules: r,
		nodes: []node{{parent: NoNode, pos: start}},
		tags:  make(map[string]string),
	}
}

// FromMoveSequence builds a linear mainline from start. Any move the rules
// engine rejects aborts the whole construction with a *ParseError.
func FromMoveSequence(r rules.Rules, start *chess.Position, moves []rules.Move) (*Navigator, error) {
	n := New(r, start)
	parent := NodeID(0)
	for i, m := range moves {
		pos, err := r.Apply(n.nodes[parent].pos, m)
		if err != nil {
			return nil, &ParseError{Ply: i + 1, Move: m.String(), Err: err}
		}
		id := n.add(parent, m, pos)
		n.nodes[parent].children = append(n.nodes[parent].children, id)
		parent = id
	}
	return n, nil
}

// FromPGN decodes the first game of rd and builds its mainline.
func FromPGN(r rules.Rules, rd io.Reader) (*Navigator, error) {
	rec, err := rules.DecodePGN(rd)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	n, err := FromMoveSequence(r, rec.Start, rec.Moves)
	if err != nil {
		return nil, err
	}
	n.tags = rec.Tags
	return n, nil
}

// FromFile loads the first game of the PGN file at path. A file that cannot
// be read is reported as a *ParseError like one that cannot be decoded.
func FromFile(r rules.Rules, path string) (*Navigator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	defer f.Close()
	return FromPGN(r, f)
}

func (n *Navigator) add(parent NodeID, m rules.Move, pos *chess.Position) NodeID {
	p := n.nodes[parent]
	n.nodes = append(n.nodes, node{
		move:   m,
		san:    n.rules.Algebraic(p.pos, m),
		parent: parent,
		pos:    pos,
		ply:    p.ply + 1,
	})
	return NodeID(len(n.nodes) - 1)
}

func (n *Navigator) cur() *node {
	return &n.nodes[n.cursor]
}

// next returns the mainline child of the cursor.
func (n *Navigator) next() (*node, bool) {
	c := n.cur()
	if len(c.children) == 0 {
		return nil, false
	}
	return &n.nodes[c.children[0]], true
}

// Tags returns the PGN tag pairs of the loaded game.
func (n *Navigator) Tags() map[string]string {
	return n.tags
}

// Position returns the position at the cursor.
func (n *Navigator) Position() *chess.Position {
	return n.cur().pos
}

// Ply returns the number of moves from the root to the cursor.
func (n *Navigator) Ply() int {
	return n.cur().ply
}

// State returns the cursor, its ply and the side to move. The side to move
// is derived from the ply parity relative to the starting side.
func (n *Navigator) State() NavigationState {
	turn := n.nodes[0].pos.Turn()
	if n.cur().ply%2 == 1 {
		turn = turn.Other()
	}
	return NavigationState{Cursor: n.cursor, Ply: n.cur().ply, Turn: turn}
}

// EPD returns the archive key of the cursor position.
func (n *Navigator) EPD() string {
	return rules.EPD(n.cur().pos)
}

// HasNext reports whether the cursor has at least one child.
func (n *Navigator) HasNext() bool {
	_, ok := n.next()
	return ok
}

// PeekNextMove returns the mainline move at the cursor without advancing.
func (n *Navigator) PeekNextMove() (rules.Move, error) {
	nx, ok := n.next()
	if !ok {
		return rules.Move{}, ErrNoNextMove
	}
	return nx.move, nil
}

// SAN returns the pending move in algebraic notation, or "" at the end.
func (n *Navigator) SAN() string {
	nx, ok := n.next()
	if !ok {
		return ""
	}
	return nx.san
}

// Advance follows the mainline up to plies times. It reports whether all of
// them were taken; otherwise the cursor is parked on the last node reached.
func (n *Navigator) Advance(plies uint) bool {
	for ; plies > 0; plies-- {
		c := n.cur()
		if len(c.children) == 0 {
			return false
		}
		n.cursor = c.children[0]
	}
	return true
}

// GoBack moves the cursor to its parent. It is a no-op returning false at
// the root.
func (n *Navigator) GoBack() bool {
	p := n.cur().parent
	if p == NoNode {
		return false
	}
	n.cursor = p
	return true
}

// GoToStart moves the cursor to the root.
func (n *Navigator) GoToStart() {
	n.cursor = 0
}

// GoToEnd moves the cursor to the last node of the mainline.
func (n *Navigator) GoToEnd() {
	n.cursor = n.mainlineEnd()
}

func (n *Navigator) mainlineEnd() NodeID {
	id := NodeID(0)
	for len(n.nodes[id].children) > 0 {
		id = n.nodes[id].children[0]
	}
	return id
}

// ReplaceNextMove discards every child of the cursor and installs m as the
// only one. The cursor does not move. On error nothing changes.
func (n *Navigator) ReplaceNextMove(m rules.Move) error {
	pos, err := n.rules.Apply(n.cur().pos, m)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIllegalMove, err)
	}
	parent := n.cursor
	id := n.add(parent, m, pos)
	n.nodes[parent].children = []NodeID{id}
	return nil
}

// ReplaceNextSAN is ReplaceNextMove for a move written in SAN or UCI.
func (n *Navigator) ReplaceNextSAN(san string) error {
	m, err := n.rules.ParseSAN(n.cur().pos, san)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIllegalMove, err)
	}
	return n.ReplaceNextMove(m)
}

// ValidMoves returns every legal move starting on from in the cursor
// position.
func (n *Navigator) ValidMoves(from chess.Square) []rules.Move {
	var moves []rules.Move
	for _, m := range n.rules.LegalMoves(n.cur().pos) {
		if m.From == from {
			moves = append(moves, m)
		}
	}
	return moves
}
