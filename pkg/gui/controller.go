package gui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/notnil/chess"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/qnkhuat/chessreview/pkg"
	"github.com/qnkhuat/chessreview/pkg/analysis"
	"github.com/qnkhuat/chessreview/pkg/archive"
	"github.com/qnkhuat/chessreview/pkg/engine"
	"github.com/qnkhuat/chessreview/pkg/game"
	"github.com/qnkhuat/chessreview/pkg/rules"
)

const (
	msgNoUser      = "Set a username to see your games"
	msgUnavailable = "Database unavailable"
)

// Updater runs f on the UI goroutine. *tview.Application implements it.
type Updater interface {
	QueueUpdateDraw(f func()) *tview.Application
}

type Options struct {
	Games    *archive.Cache // nil hides the database pane's content
	Openings *archive.Cache
	Engine   analysis.Engine // nil disables analysis
	Username string
	Log      *zap.SugaredLogger
}

type engineLine struct {
	tk analysis.Token
	u  engine.Update
}

// Controller connects the navigator to the widgets. Every method except
// the engine callbacks runs on the UI goroutine.
type Controller struct {
	app     Updater
	ui      *UI
	rules   rules.Rules
	opts    Options
	log     *zap.SugaredLogger
	ctx     context.Context
	tracker *analysis.Tracker
	runner  *analysis.Runner

	nav         *game.Navigator
	perspective chess.Color
	flip        bool
	selected    chess.Square
	targets     []rules.Move

	mu     sync.Mutex
	latest *engineLine
}

func NewController(ctx context.Context, app Updater, ui *UI, r rules.Rules, opts Options) *Controller {
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	c := &Controller{
		app:         app,
		ui:          ui,
		rules:       r,
		opts:        opts,
		log:         opts.Log,
		ctx:         ctx,
		tracker:     analysis.NewTracker(ctx),
		perspective: chess.White,
		selected:    chess.NoSquare,
	}
	if opts.Engine != nil {
		c.runner = analysis.NewRunner(opts.Engine, c.log, c.onEngine, c.onEngineError)
	}
	ui.bind(c)
	return c
}

// Load shows nav from its current cursor and warms the archive caches with
// its mainline.
func (c *Controller) Load(nav *game.Navigator) {
	c.nav = nav
	c.perspective = chess.White
	if c.opts.Username != "" && strings.EqualFold(nav.Tags()["Black"], c.opts.Username) {
		c.perspective = chess.Black
	}
	c.flip = c.perspective == chess.Black
	c.clearSelection()

	epds := nav.MainlineEPDs()
	for _, cache := range []*archive.Cache{c.opts.Games, c.opts.Openings} {
		if cache != nil {
			cache.Prefetch(c.ctx, c.perspective, epds)
		}
	}
	c.log.Infow("game loaded", "plies", nav.MainlinePlies(), "perspective", c.perspective.String())
	c.ui.Moves.SetRows(nav.Mainline())
	c.refresh()
}

// Open replaces the game with the first game of the PGN file at path. A
// file that cannot be loaded leaves the current game on screen and its
// error in the status line.
func (c *Controller) Open(path string) error {
	nav, err := game.FromFile(c.rules, path)
	if err != nil {
		c.log.Warnw("open failed", "path", path, "error", err)
		c.ui.Status.SetText(err.Error())
		return err
	}
	c.ui.Status.SetText(path)
	c.Load(nav)
	return nil
}

func (c *Controller) Navigator() *game.Navigator { return c.nav }

func (c *Controller) Perspective() chess.Color { return c.perspective }

func (c *Controller) Next() {
	if c.nav.Advance(1) {
		c.refresh()
	}
}

func (c *Controller) Prev() {
	if c.nav.GoBack() {
		c.refresh()
	}
}

func (c *Controller) First() {
	if c.nav.Ply() != 0 {
		c.nav.GoToStart()
		c.refresh()
	}
}

func (c *Controller) Last() {
	if c.nav.Ply() != c.nav.MainlinePlies() {
		c.nav.GoToEnd()
		c.refresh()
	}
}

// Jump moves the cursor to ply of the mainline.
func (c *Controller) Jump(ply int) {
	if ply < 0 || ply == c.nav.Ply() {
		return
	}
	c.nav.GoToStart()
	c.nav.Advance(uint(ply))
	c.refresh()
}

func (c *Controller) Flip() {
	c.flip = !c.flip
	c.drawBoard()
}

// Do runs a navigation action.
func (c *Controller) Do(a pkg.Action) {
	switch a {
	case pkg.ActionFirst:
		c.First()
	case pkg.ActionPrev:
		c.Prev()
	case pkg.ActionNext:
		c.Next()
	case pkg.ActionLast:
		c.Last()
	case pkg.ActionFlip:
		c.Flip()
	}
}

// Move plays m from the cursor. Playing the move the mainline already
// continues with only steps forward; anything else replaces the rest of
// the game.
func (c *Controller) Move(m rules.Move) error {
	c.clearSelection()
	if next, err := c.nav.PeekNextMove(); err == nil && next == m {
		c.nav.Advance(1)
		c.refresh()
		return nil
	}
	if err := c.nav.ReplaceNextMove(m); err != nil {
		c.drawBoard()
		return err
	}
	c.nav.Advance(1)
	c.ui.Moves.SetRows(c.nav.Mainline())
	c.refresh()
	return nil
}

// MoveFromSAN plays a move chosen from one of the archive panes.
func (c *Controller) MoveFromSAN(san string) error {
	m, err := c.rules.ParseSAN(c.nav.Position(), san)
	if err != nil {
		return fmt.Errorf("%w: %w", game.ErrIllegalMove, err)
	}
	return c.Move(m)
}

func (c *Controller) clearSelection() {
	c.selected = chess.NoSquare
	c.targets = nil
}

func (c *Controller) targetsOf(to chess.Square) []rules.Move {
	var moves []rules.Move
	for _, m := range c.targets {
		if m.To == to {
			moves = append(moves, m)
		}
	}
	return moves
}

// play resolves a gesture ending on to. Promotions default to a queen.
func (c *Controller) play(to chess.Square) bool {
	moves := c.targetsOf(to)
	if len(moves) == 0 {
		return false
	}
	m := moves[0]
	for _, cand := range moves {
		if cand.Promo == chess.Queen {
			m = cand
		}
	}
	if err := c.Move(m); err != nil {
		c.log.Warnw("move rejected", "move", m.String(), "error", err)
	}
	return true
}

func (c *Controller) Press(sq chess.Square) {
	switch {
	case c.selected != chess.NoSquare && c.play(sq):
		return
	case sq == c.selected:
		c.clearSelection()
	default:
		c.clearSelection()
		if moves := c.nav.ValidMoves(sq); len(moves) > 0 {
			c.selected, c.targets = sq, moves
		}
	}
	c.drawBoard()
}

func (c *Controller) Drag(chess.Square) {}

// Release completes a drag. A release on the pressed square keeps the
// selection so a second click can finish the move.
func (c *Controller) Release(sq chess.Square) {
	if c.selected == chess.NoSquare || sq == c.selected {
		return
	}
	if sq == chess.NoSquare || !c.play(sq) {
		c.clearSelection()
		c.drawBoard()
	}
}

// HandleKey is the application's input capture for navigation keys.
func (c *Controller) HandleKey(ev *tcell.EventKey) *tcell.EventKey {
	switch ev.Key() {
	case tcell.KeyLeft:
		c.Prev()
	case tcell.KeyRight:
		c.Next()
	case tcell.KeyHome:
		c.First()
	case tcell.KeyEnd:
		c.Last()
	case tcell.KeyRune:
		if ev.Rune() != 'f' {
			return ev
		}
		c.Flip()
	default:
		return ev
	}
	return nil
}

func (c *Controller) drawBoard() {
	st := BoardState{
		Board:    c.nav.Position().Board(),
		Label:    moveLabel(c.nav),
		Check:    chess.NoSquare,
		Selected: c.selected,
		Flip:     c.flip,
	}
	if from, to, ok := c.nav.PreviousMove(); ok {
		st.Last = []chess.Square{from, to}
		if t, ok := c.nav.PreviousTransition(); ok {
			if t.Castles() {
				st.Last = append(st.Last, t.RookFrom, t.RookTo)
			}
			if t.Captures() && t.Captured != to {
				st.Last = append(st.Last, t.Captured)
			}
		}
	}
	if sq, ok := c.nav.KingCheckSquare(); ok {
		st.Check = sq
	}
	for _, m := range c.targets {
		st.Targets = append(st.Targets, m.To)
	}
	c.ui.Board.SetState(st)
}

// refresh redraws everything for the cursor position and restarts the
// background work belonging to it.
func (c *Controller) refresh() {
	tk := c.tracker.Next()
	c.drawBoard()
	c.ui.Moves.SetCurrent(c.nav.Ply())
	c.ui.Eval.Reset()
	c.ui.Analysis.SetText("")

	c.lookup(tk, c.ui.Games, c.opts.Games)
	c.lookup(tk, c.ui.Openings, c.opts.Openings)
	if c.runner != nil {
		c.ui.Analysis.SetText("Analysing...")
		c.runner.Start(tk, c.nav.Position().String())
	}
}

func lookupMessage(err error) string {
	if errors.Is(err, archive.ErrNoUser) {
		return msgNoUser
	}
	return msgUnavailable
}

func (c *Controller) lookup(tk analysis.Token, pane *StatsPane, cache *archive.Cache) {
	if cache == nil {
		pane.SetError(msgUnavailable)
		return
	}
	pane.SetLoading()
	epd, colour := c.nav.EPD(), c.perspective
	analysis.Go(tk, func(ctx context.Context) ([]archive.Stat, error) {
		res, err := cache.Lookup(ctx, colour, []string{epd})
		if err != nil {
			return nil, err
		}
		return res[epd], nil
	}, func(stats []archive.Stat) {
		c.queue(tk, func() { pane.SetStats(stats) })
	}, func(err error) {
		c.log.Warnw("lookup failed", "token", tk.ID(), "epd", epd, "error", err)
		c.queue(tk, func() { pane.SetError(lookupMessage(err)) })
	})
}

// queue runs f on the UI goroutine while tk is current. Nothing is queued
// for a stale token, so once Close has run no update reaches an
// application that no longer drains its queue.
func (c *Controller) queue(tk analysis.Token, f func()) {
	if !tk.Current() {
		return
	}
	c.app.QueueUpdateDraw(func() {
		if tk.Current() {
			f()
		}
	})
}

// onEngine keeps only the newest update; the UI picks it up when it gets
// to it. Queueing from a separate goroutine keeps the runner from waiting
// on the UI, which may itself be waiting in Runner.Start.
func (c *Controller) onEngine(tk analysis.Token, u engine.Update) {
	if !tk.Current() {
		return
	}
	c.mu.Lock()
	c.latest = &engineLine{tk: tk, u: u}
	c.mu.Unlock()
	go c.queue(tk, c.showEval)
}

func (c *Controller) showEval() {
	c.mu.Lock()
	l := c.latest
	c.latest = nil
	c.mu.Unlock()
	if l == nil || !l.tk.Current() {
		return
	}
	pos := c.nav.Position()
	c.ui.Eval.SetScore(whiteScore(l.u, pos.Turn()), l.u.Mate)
	c.ui.Analysis.SetText(formatEval(c.rules, pos, l.u))
}

func (c *Controller) onEngineError(tk analysis.Token, err error) {
	if !tk.Current() {
		return
	}
	go c.queue(tk, func() {
		c.ui.Analysis.SetText("Engine stopped: " + err.Error())
	})
}

// Close stops the engine stream and every pending lookup. It is safe to
// call more than once.
func (c *Controller) Close() {
	if c.runner != nil {
		c.runner.Stop()
	}
	c.tracker.Stop()
}
