package rules

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/notnil/chess"
)

// Record is one decoded game: where it starts, the mainline played from
// there and its tag pairs.
type Record struct {
	Start *chess.Position
	Moves []Move
	Tags  map[string]string
	// PGN is the game re-encoded by the rules library.
	PGN string
}

// DecodePGN decodes the first game of r.
func DecodePGN(r io.Reader) (*Record, error) {
	s := NewScanner(r)
	if s.Scan() {
		return s.Record(), nil
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return decode("")
}

func decode(text string) (*Record, error) {
	opt, err := chess.PGN(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("rules: decode pgn: %w", err)
	}
	return newRecord(chess.NewGame(opt)), nil
}

func newRecord(g *chess.Game) *Record {
	positions := g.Positions()
	rec := &Record{
		Start: StartingPosition(),
		Tags:  make(map[string]string),
		PGN:   g.String(),
	}
	if len(positions) > 0 {
		rec.Start = positions[0]
	}
	for _, m := range g.Moves() {
		rec.Moves = append(rec.Moves, Move{From: m.S1(), To: m.S2(), Promo: m.Promo()})
	}
	for _, tp := range g.TagPairs() {
		rec.Tags[tp.Key] = tp.Value
	}
	return rec
}

// Scanner walks a multi-game PGN stream. A game ends at the first blank
// line after its movetext, at the next tag section or at the end of the
// stream, so the last game needs no trailing blank lines.
type Scanner struct {
	lines *bufio.Scanner
	rec   *Record
	err   error
	// pending holds a tag line that already belongs to the next game.
	pending string
	done    bool
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	lines := bufio.NewScanner(r)
	lines.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Scanner{lines: lines}
}

// Scan advances to the next game and reports whether there is one.
func (s *Scanner) Scan() bool {
	if s.done || s.err != nil {
		return false
	}
	// Tag pairs keep their own lines. Movetext is joined into one line so
	// comments wrapped over several lines are stripped as a whole.
	var tags, moves []string
	if s.pending != "" {
		tags = append(tags, s.pending)
		s.pending = ""
	}
	for {
		if !s.lines.Scan() {
			s.done = true
			if err := s.lines.Err(); err != nil {
				s.err = fmt.Errorf("rules: scan pgn: %w", err)
				return false
			}
			break
		}
		line := strings.TrimSpace(s.lines.Text())
		if line == "" {
			if len(moves) > 0 {
				break
			}
			continue
		}
		tag := isTagPair(line)
		if tag && len(moves) > 0 {
			s.pending = line
			break
		}
		if tag {
			tags = append(tags, line)
		} else {
			moves = append(moves, line)
		}
	}
	if len(tags) == 0 && len(moves) == 0 {
		return false
	}
	text := strings.Join(tags, "\n") + "\n\n" + strings.Join(moves, " ") + "\n"
	rec, err := decode(text)
	if err != nil {
		s.err = err
		return false
	}
	s.rec = rec
	return true
}

// isTagPair reports whether line is a tag pair such as [Event "x"] rather
// than wrapped movetext like [%eval 0.2] }.
func isTagPair(line string) bool {
	if len(line) < 2 || line[0] != '[' || !strings.HasSuffix(line, "]") {
		return false
	}
	c := line[1]
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z'
}

// Record returns the game Scan stopped at.
func (s *Scanner) Record() *Record {
	return s.rec
}

func (s *Scanner) Err() error {
	return s.err
}
