package gui

import (
	"fmt"
	"math"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/qnkhuat/chessreview/pkg/archive"
	"github.com/qnkhuat/chessreview/pkg/game"
)

const (
	msgLoading = "Loading moves..."
	msgEmpty   = "No moves found in database"
	barWidth   = 20
)

// MoveList shows the mainline two plies per row and marks the cursor.
type MoveList struct {
	*tview.Table
	theme   Theme
	plies   map[[2]int]int // cell -> ply
	cells   map[int][2]int // ply -> cell
	current int
}

func NewMoveList(theme Theme) *MoveList {
	l := &MoveList{Table: tview.NewTable(), theme: theme}
	l.SetSelectable(true, true)
	l.SetBorder(true).SetTitle(" Game ")
	return l
}

// SetRows replaces the list. Rows come from Navigator.Mainline.
func (l *MoveList) SetRows(rows []game.Row) {
	l.Clear()
	l.plies = make(map[[2]int]int)
	l.cells = make(map[int][2]int)
	ply := 0
	for r, row := range rows {
		l.SetCell(r, 0, tview.NewTableCell(fmt.Sprintf("%d.", row.Number)).
			SetTextColor(l.theme.Rank).
			SetSelectable(false))
		for c, san := range []string{row.White, row.Black} {
			cell := tview.NewTableCell(san).SetExpansion(1)
			if san == "" || san == "..." {
				l.SetCell(r, c+1, cell.SetSelectable(false))
				continue
			}
			ply++
			l.plies[[2]int{r, c + 1}] = ply
			l.cells[ply] = [2]int{r, c + 1}
			l.SetCell(r, c+1, cell)
		}
	}
	l.SetCurrent(l.current)
}

// SetCurrent marks the cell of ply; 0 marks nothing.
func (l *MoveList) SetCurrent(ply int) {
	if old, ok := l.cells[l.current]; ok {
		l.GetCell(old[0], old[1]).SetAttributes(tcell.AttrNone)
	}
	l.current = ply
	if cell, ok := l.cells[ply]; ok {
		l.GetCell(cell[0], cell[1]).SetAttributes(tcell.AttrReverse)
		l.Select(cell[0], cell[1])
	}
}

// Ply returns the ply shown in a cell.
func (l *MoveList) Ply(row, col int) (int, bool) {
	p, ok := l.plies[[2]int{row, col}]
	return p, ok
}

// Current returns the marked ply.
func (l *MoveList) Current() int { return l.current }

// StatsPane lists archived continuations of the cursor position.
type StatsPane struct {
	*tview.Table
	theme   Theme
	stats   []archive.Stat
	message string
}

func NewStatsPane(title string, theme Theme) *StatsPane {
	p := &StatsPane{Table: tview.NewTable(), theme: theme}
	p.SetSelectable(true, false)
	p.SetBorder(true).SetTitle(" " + title + " ")
	p.SetLoading()
	return p
}

func (p *StatsPane) showMessage(msg string) {
	p.Clear()
	p.stats = nil
	p.message = msg
	p.SetCell(0, 0, tview.NewTableCell(msg).
		SetTextColor(p.theme.Msg).
		SetSelectable(false).
		SetExpansion(1).
		SetAlign(tview.AlignCenter))
}

func (p *StatsPane) SetLoading() { p.showMessage(msgLoading) }

func (p *StatsPane) SetError(msg string) { p.showMessage(msg) }

// SetStats shows stats, most played first.
func (p *StatsPane) SetStats(stats []archive.Stat) {
	if len(stats) == 0 {
		p.showMessage(msgEmpty)
		return
	}
	p.Clear()
	p.message = ""
	p.stats = stats
	for r, s := range stats {
		p.SetCell(r, 0, tview.NewTableCell(s.Move))
		p.SetCell(r, 1, tview.NewTableCell(fmt.Sprint(s.Total)).SetAlign(tview.AlignRight))
		p.SetCell(r, 2, tview.NewTableCell(" "+p.bar(s)).SetExpansion(1))
	}
	p.Select(0, 0)
}

// Move returns the SAN shown in row.
func (p *StatsPane) Move(row int) (string, bool) {
	if row < 0 || row >= len(p.stats) {
		return "", false
	}
	return p.stats[row].Move, true
}

func (p *StatsPane) Stats() []archive.Stat { return p.stats }

// Message returns the text shown instead of stats, if any.
func (p *StatsPane) Message() string { return p.message }

func colorTag(c tcell.Color) string {
	return fmt.Sprintf("[#%06x]", c.Hex())
}

func (p *StatsPane) bar(s archive.Stat) string {
	w, d, l := barSegments(s, barWidth)
	block := func(n int) string { return strings.Repeat("█", n) }
	// a stat with no results (openings) shows as all draws
	return colorTag(p.theme.MeterWin) + block(w) +
		colorTag(p.theme.MeterDraw) + block(d) +
		colorTag(p.theme.MeterLose) + block(l) + "[-]"
}

// barSegments splits width between wins, draws and losses. Stats without
// results fill the draw segment.
func barSegments(s archive.Stat, width int) (int, int, int) {
	decided := s.Wins + s.Draws + s.Losses
	if decided == 0 {
		return 0, width, 0
	}
	w := int(math.Round(float64(width) * float64(s.Wins) / float64(decided)))
	d := int(math.Round(float64(width) * float64(s.Draws) / float64(decided)))
	if w+d > width {
		d = width - w
	}
	return w, d, width - w - d
}

const evalClamp = 10.0 // pawns

// EvalBar is a vertical meter of the engine's opinion, White at the bottom.
type EvalBar struct {
	*tview.Box
	theme Theme
	frac  float64 // share of White, 0..1
}

func NewEvalBar(theme Theme) *EvalBar {
	return &EvalBar{Box: tview.NewBox(), theme: theme, frac: 0.5}
}

// SetScore takes a score from White's point of view, in centipawns or
// moves to mate.
func (e *EvalBar) SetScore(score int, mate bool) {
	e.frac = evalFraction(score, mate)
}

func (e *EvalBar) Reset() { e.frac = 0.5 }

func (e *EvalBar) Fraction() float64 { return e.frac }

func evalFraction(score int, mate bool) float64 {
	if mate {
		if score > 0 {
			return 1
		}
		return 0
	}
	pawns := math.Max(-evalClamp, math.Min(evalClamp, float64(score)/100))
	return (evalClamp + pawns) / (2 * evalClamp)
}

func (e *EvalBar) Draw(screen tcell.Screen) {
	e.Box.DrawForSubclass(screen, e)
	x, y, w, h := e.GetInnerRect()
	white := int(float64(h) * e.frac)
	for row := 0; row < h; row++ {
		c := e.theme.EvalBlack
		if row >= h-white {
			c = e.theme.EvalWhite
		}
		style := tcell.StyleDefault.Foreground(c)
		for col := 0; col < w; col++ {
			screen.SetContent(x+col, y+row, '█', nil, style)
		}
	}
}
