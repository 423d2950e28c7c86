package gui

import (
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
	"github.com/notnil/chess"
	"github.com/rivo/tview"

	"github.com/qnkhuat/chessreview/pkg/rules"
)

const (
	numOfSquaresInRow = 8
	squareWidth       = 2
	rankWidth         = 2
	boardWidth        = rankWidth + numOfSquaresInRow*squareWidth
	boardHeight       = numOfSquaresInRow + 2 // label and files
)

// SquareInput receives pointer gestures on board squares. It carries no
// chess logic; the controller decides what a gesture means.
type SquareInput interface {
	Press(sq chess.Square)
	Drag(sq chess.Square)
	Release(sq chess.Square)
}

// BoardState is everything the board shows for one cursor position.
type BoardState struct {
	Board    *chess.Board
	Label    string
	Last     []chess.Square // from, to and any rook or captured square
	Check    chess.Square
	Selected chess.Square
	Targets  []chess.Square
	Flip     bool // Black at the bottom
}

// BoardView draws the board straight onto the screen, two cells per
// square.
type BoardView struct {
	*tview.Box
	theme    Theme
	state    BoardState
	input    SquareInput
	dragging bool
}

func NewBoardView(theme Theme) *BoardView {
	return &BoardView{
		Box:   tview.NewBox(),
		theme: theme,
		state: BoardState{Check: chess.NoSquare, Selected: chess.NoSquare},
	}
}

func (b *BoardView) SetInput(in SquareInput) { b.input = in }

func (b *BoardView) SetState(s BoardState) { b.state = s }

func (b *BoardView) State() BoardState { return b.state }

// drawText places text at the specified coordinates with the provided style
func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

func contains(sqs []chess.Square, sq chess.Square) bool {
	for _, s := range sqs {
		if s == sq {
			return true
		}
	}
	return false
}

// squareBg returns the theme's color corresponding to the square
func (b *BoardView) squareBg(sq chess.Square) tcell.Color {
	switch {
	case sq == b.state.Check:
		return b.theme.SquareCheck
	case sq == b.state.Selected:
		return b.theme.SquareSelect
	case contains(b.state.Targets, sq):
		return b.theme.SquareTarget
	case contains(b.state.Last, sq):
		return b.theme.SquareLast
	case (int(sq.File())+int(sq.Rank()))%2 == 0:
		return b.theme.SquareDark
	}
	return b.theme.SquareLight
}

// drawSquare draws a board square and its corresponding piece
func (b *BoardView) drawSquare(s tcell.Screen, col, row int, p chess.Piece, bg tcell.Color) {
	style := tcell.StyleDefault.Background(bg)
	if p == chess.NoPiece {
		s.SetContent(col, row, ' ', nil, style)
		s.SetContent(col+1, row, ' ', nil, style)
		return
	}
	fg := b.theme.White
	if p.Color() == chess.Black {
		fg = b.theme.Black
	}
	piece, _ := utf8.DecodeRuneInString(p.String())
	s.SetContent(col, row, piece, nil, style.Foreground(fg))
	s.SetContent(col+1, row, ' ', nil, style)
}

// squareAt maps a screen cell inside the board to its square.
func (b *BoardView) squareAt(x, y int) (chess.Square, bool) {
	bx, by, _, _ := b.GetInnerRect()
	col, row := x-bx-rankWidth, y-by-1
	if col < 0 || row < 0 || row >= numOfSquaresInRow || col >= numOfSquaresInRow*squareWidth {
		return chess.NoSquare, false
	}
	file, rank := col/squareWidth, numOfSquaresInRow-1-row
	if b.state.Flip {
		file, rank = numOfSquaresInRow-1-file, row
	}
	return rules.Square(chess.File(file), chess.Rank(rank)), true
}

// cellOf is the inverse of squareAt: the left cell of sq on screen.
func (b *BoardView) cellOf(sq chess.Square) (int, int) {
	bx, by, _, _ := b.GetInnerRect()
	file, row := int(sq.File()), numOfSquaresInRow-1-int(sq.Rank())
	if b.state.Flip {
		file, row = numOfSquaresInRow-1-file, int(sq.Rank())
	}
	return bx + rankWidth + file*squareWidth, by + 1 + row
}

func (b *BoardView) Draw(screen tcell.Screen) {
	b.Box.DrawForSubclass(screen, b)
	x, y, _, _ := b.GetInnerRect()

	label := tcell.StyleDefault.Background(b.theme.MoveLabelBg).Foreground(b.theme.MoveLabelFg)
	drawText(screen, x+rankWidth, y, label, b.state.Label)

	if b.state.Board == nil {
		return
	}
	rankStyle := tcell.StyleDefault.Foreground(b.theme.Rank)
	for i := 0; i < numOfSquaresInRow*numOfSquaresInRow; i++ {
		sq := chess.Square(i)
		col, row := b.cellOf(sq)
		b.drawSquare(screen, col, row, b.state.Board.Piece(sq), b.squareBg(sq))
		if sq.File() == chess.FileA {
			r, _ := utf8.DecodeRuneInString(sq.Rank().String())
			screen.SetContent(x, row, r, nil, rankStyle)
		}
	}
	files := "a b c d e f g h"
	if b.state.Flip {
		files = "h g f e d c b a"
	}
	drawText(screen, x+rankWidth, y+1+numOfSquaresInRow, tcell.StyleDefault.Foreground(b.theme.File), files)
}

// MouseHandler turns clicks and drags into SquareInput gestures. The board
// captures the mouse between press and release so drags off the board
// still end.
func (b *BoardView) MouseHandler() func(action tview.MouseAction, event *tcell.EventMouse, setFocus func(p tview.Primitive)) (consumed bool, capture tview.Primitive) {
	return b.WrapMouseHandler(func(action tview.MouseAction, event *tcell.EventMouse, setFocus func(p tview.Primitive)) (consumed bool, capture tview.Primitive) {
		x, y := event.Position()
		if !b.dragging && !b.InRect(x, y) {
			return false, nil
		}
		if b.input == nil {
			return false, nil
		}
		sq, on := b.squareAt(x, y)
		switch action {
		case tview.MouseLeftDown:
			setFocus(b)
			if !on {
				return true, nil
			}
			b.dragging = true
			b.input.Press(sq)
			return true, b
		case tview.MouseMove:
			if !b.dragging {
				return false, nil
			}
			if on {
				b.input.Drag(sq)
			}
			return true, b
		case tview.MouseLeftUp:
			if !b.dragging {
				return false, nil
			}
			b.dragging = false
			if !on {
				sq = chess.NoSquare
			}
			b.input.Release(sq)
			return true, nil
		}
		return false, nil
	})
}
