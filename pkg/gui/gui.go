// Package gui is the terminal front end: a board, the move list, the
// archive panes and the engine line, all driven by a Controller.
package gui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/qnkhuat/chessreview/pkg"
)

// UI holds the widgets of the analysis screen.
type UI struct {
	Board    *BoardView
	Eval     *EvalBar
	Analysis *tview.TextView
	Moves    *MoveList
	Games    *StatsPane
	Openings *StatsPane
	Buttons  *tview.Flex
	Status   *tview.TextView
	Root     *tview.Flex
	// Pages stacks the open prompt over Root.
	Pages *tview.Pages

	buttons   []*tview.Button
	prompting bool
}

const pageOpen = "open"

func NewUI(theme Theme) *UI {
	ui := &UI{
		Board:    NewBoardView(theme),
		Eval:     NewEvalBar(theme),
		Analysis: tview.NewTextView().SetDynamicColors(true),
		Moves:    NewMoveList(theme),
		Games:    NewStatsPane("Database", theme),
		Openings: NewStatsPane("Openings", theme),
		Buttons:  tview.NewFlex(),
		Status:   tview.NewTextView(),
	}
	ui.Analysis.SetBorder(true).SetTitle(" Engine ")

	board := tview.NewFlex().
		AddItem(ui.Eval, 1, 0, false).
		AddItem(tview.NewBox(), 1, 0, false).
		AddItem(ui.Board, boardWidth, 0, true)

	left := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(board, boardHeight, 0, true).
		AddItem(ui.Analysis, 0, 1, false)

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ui.Moves, 0, 2, false).
		AddItem(ui.Buttons, 1, 0, false).
		AddItem(ui.Games, 0, 2, false).
		AddItem(ui.Openings, 0, 2, false).
		AddItem(ui.Status, 1, 0, false)

	ui.Root = tview.NewFlex().
		AddItem(left, boardWidth+2, 0, true).
		AddItem(right, 0, 1, false)
	ui.Pages = tview.NewPages().AddPage("main", ui.Root, true, true)
	return ui
}

// promptOpen asks for a PGN path over the board and hands it to c.
func (ui *UI) promptOpen(app *tview.Application, c *Controller) {
	if ui.prompting {
		return
	}
	ui.prompting = true
	input := tview.NewInputField().SetLabel("PGN file: ")
	input.SetBorder(true).SetTitle(" Open (Ctrl+O) ")
	input.SetDoneFunc(func(key tcell.Key) {
		path := strings.TrimSpace(input.GetText())
		ui.Pages.RemovePage(pageOpen)
		ui.prompting = false
		app.SetFocus(ui.Board)
		if key == tcell.KeyEnter && path != "" {
			c.Open(path)
		}
	})
	dialog := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(input, 3, 0, true).
			AddItem(nil, 0, 1, false), 60, 0, true).
		AddItem(nil, 0, 1, false)
	ui.Pages.AddPage(pageOpen, dialog, true, true)
	app.SetFocus(input)
}

// bind routes widget events to c.
func (ui *UI) bind(c *Controller) {
	ui.Board.SetInput(c)
	ui.Moves.SetSelectedFunc(func(row, col int) {
		if ply, ok := ui.Moves.Ply(row, col); ok {
			c.Jump(ply)
		}
	})
	for _, pane := range []*StatsPane{ui.Games, ui.Openings} {
		pane := pane
		pane.SetSelectedFunc(func(row, _ int) {
			san, ok := pane.Move(row)
			if !ok {
				return
			}
			if err := c.MoveFromSAN(san); err != nil {
				c.log.Warnw("archive move rejected", "san", san, "error", err)
			}
		})
	}
	ui.Buttons.Clear()
	ui.buttons = ui.buttons[:0]
	for _, a := range pkg.NavigationActions {
		a := a
		btn := tview.NewButton(string(a)).SetSelectedFunc(func() { c.Do(a) })
		ui.buttons = append(ui.buttons, btn)
		ui.Buttons.AddItem(btn, 0, 1, false).AddItem(tview.NewBox(), 1, 0, false)
	}
}

// focusOrder is the Tab cycle.
func (ui *UI) focusOrder() []tview.Primitive {
	return []tview.Primitive{ui.Board, ui.Moves, ui.Games, ui.Openings}
}

// Run shows the UI on app until the user quits.
func Run(app *tview.Application, ui *UI, c *Controller) error {
	order := ui.focusOrder()
	focus := 0
	app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ui.prompting {
			return ev
		}
		switch {
		case ev.Key() == tcell.KeyCtrlO:
			ui.promptOpen(app, c)
			return nil
		case ev.Key() == tcell.KeyTab:
			focus = (focus + 1) % len(order)
			app.SetFocus(order[focus])
			return nil
		case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
			c.Close()
			app.Stop()
			return nil
		}
		return c.HandleKey(ev)
	})
	defer c.Close()
	return app.SetRoot(ui.Pages, true).SetFocus(ui.Board).EnableMouse(true).Run()
}
