package gui

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"

	"github.com/qnkhuat/chessreview/pkg/engine"
	"github.com/qnkhuat/chessreview/pkg/game"
	"github.com/qnkhuat/chessreview/pkg/rules"
)

// whiteScore turns an engine score, given for the side to move, into
// White's point of view.
func whiteScore(u engine.Update, turn chess.Color) int {
	if turn == chess.Black {
		return -u.Score
	}
	return u.Score
}

func formatScore(score int, mate bool) string {
	if mate {
		return fmt.Sprintf("#%d", score)
	}
	return fmt.Sprintf("%+.2f", float64(score)/100)
}

// formatPV writes a principal variation in SAN with move numbers. The
// line stops at the first move the rules reject.
func formatPV(r rules.Rules, pos *chess.Position, pv []string) string {
	var sb strings.Builder
	for i, uci := range pv {
		m, err := r.ParseSAN(pos, uci)
		if err != nil {
			break
		}
		san := r.Algebraic(pos, m)
		n := rules.FullMoveNumber(pos)
		switch {
		case pos.Turn() == chess.White:
			fmt.Fprintf(&sb, "%d. ", n)
		case i == 0:
			fmt.Fprintf(&sb, "%d... ", n)
		}
		sb.WriteString(san)
		sb.WriteByte(' ')
		if pos, err = r.Apply(pos, m); err != nil {
			break
		}
	}
	return strings.TrimSpace(sb.String())
}

func formatEval(r rules.Rules, pos *chess.Position, u engine.Update) string {
	score := formatScore(whiteScore(u, pos.Turn()), u.Mate)
	return fmt.Sprintf("depth %d %s %s", u.Depth, score, formatPV(r, pos, u.PV))
}

// moveLabel is the caption above the board: the move that led to the
// position on display.
func moveLabel(nav *game.Navigator) string {
	mn, ok := nav.TurnAndNumber()
	if !ok {
		return "Start"
	}
	t, _ := nav.PreviousTransition()
	if mn.Color == chess.White {
		return fmt.Sprintf("%d. %s", mn.Number, t.SAN)
	}
	return fmt.Sprintf("%d... %s", mn.Number, t.SAN)
}
