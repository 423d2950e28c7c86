package game

import (
	"github.com/notnil/chess"

	"github.com/qnkhuat/chessreview/pkg/rules"
)

// Row is one line of the move list.
type Row struct {
	Number int
	White  string
	Black  string
}

// Mainline returns the mainline as move-list rows. A game starting with
// Black to move gets "..." in its first white cell.
func (n *Navigator) Mainline() []Row {
	var rows []Row
	for id := NodeID(0); len(n.nodes[id].children) > 0; {
		parent := n.nodes[id]
		id = parent.children[0]
		mn := moveNumber(parent.pos)
		if mn.Color == chess.White || len(rows) == 0 {
			rows = append(rows, Row{Number: mn.Number})
			if mn.Color == chess.Black {
				rows[len(rows)-1].White = "..."
			}
		}
		if mn.Color == chess.White {
			rows[len(rows)-1].White = n.nodes[id].san
		} else {
			rows[len(rows)-1].Black = n.nodes[id].san
		}
	}
	return rows
}

// MainlinePlies returns the number of plies from the root to the end of the
// mainline.
func (n *Navigator) MainlinePlies() int {
	return n.nodes[n.mainlineEnd()].ply
}

// MainlineEPDs returns the archive key of every mainline position, root
// first, for batch prefetching.
func (n *Navigator) MainlineEPDs() []string {
	id := NodeID(0)
	epds := []string{rules.EPD(n.nodes[id].pos)}
	for len(n.nodes[id].children) > 0 {
		id = n.nodes[id].children[0]
		epds = append(epds, rules.EPD(n.nodes[id].pos))
	}
	return epds
}
