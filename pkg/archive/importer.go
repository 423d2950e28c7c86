package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/qnkhuat/chessreview/pkg/rules"
)

// Importer turns PGN text into archive rows.
type Importer struct {
	games    *GameStore
	openings *OpeningStore
	rules    rules.Rules
	log      *zap.SugaredLogger
}

// NewImporter returns an importer writing to the given stores. Either may be
// nil when only the other kind of import is run.
func NewImporter(games *GameStore, openings *OpeningStore, r rules.Rules, log *zap.SugaredLogger) *Importer {
	return &Importer{games: games, openings: openings, rules: r, log: log}
}

type linePosition struct {
	epd  string
	next sql.NullString
}

// line walks the record's mainline and returns every position with the SAN
// of the move played from it.
func (im *Importer) line(rec *rules.Record) ([]linePosition, error) {
	pos := rec.Start
	out := make([]linePosition, 0, len(rec.Moves)+1)
	for _, m := range rec.Moves {
		san := im.rules.Algebraic(pos, m)
		next, err := im.rules.Apply(pos, m)
		if err != nil {
			return nil, err
		}
		out = append(out, linePosition{epd: rules.EPD(pos), next: sql.NullString{String: san, Valid: true}})
		pos = next
	}
	return append(out, linePosition{epd: rules.EPD(pos)}), nil
}

func positionID(ctx context.Context, tx *sql.Tx, epd string) (int64, error) {
	if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO positions (epd) VALUES (?)", epd); err != nil {
		return 0, err
	}
	var id int64
	err := tx.QueryRowContext(ctx, "SELECT pos_id FROM positions WHERE epd = ?", epd).Scan(&id)
	return id, err
}

// ImportGame stores the game downloaded as raw row id together with one
// position row per ply.
func (im *Importer) ImportGame(ctx context.Context, id int64, date, pgn string) error {
	rec, err := rules.DecodePGN(strings.NewReader(pgn))
	if err != nil {
		return err
	}
	positions, err := im.line(rec)
	if err != nil {
		return err
	}

	tx, err := im.games.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive: begin: %w", err)
	}
	defer tx.Rollback()

	t := rec.Tags
	_, err = tx.ExecContext(ctx, `
	INSERT INTO games (game_id, pgn, date, result, white, black, time_control,
		variant, white_elo, black_elo, eco, opening, termination)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, pgn, date, t["Result"], t["White"], t["Black"], t["TimeControl"],
		t["Variant"], t["WhiteElo"], t["BlackElo"], t["ECO"], t["Opening"], t["Termination"])
	if err != nil {
		return fmt.Errorf("archive: insert game %d: %w", id, err)
	}

	for ply, lp := range positions {
		posID, err := positionID(ctx, tx, lp.epd)
		if err != nil {
			return fmt.Errorf("archive: position %q: %w", lp.epd, err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO game_positions (game_id, pos_id, ply, next_move) VALUES (?, ?, ?, ?)",
			id, posID, ply, lp.next)
		if err != nil {
			return fmt.Errorf("archive: insert game position: %w", err)
		}
	}
	return tx.Commit()
}

type rawGame struct {
	id   int64
	date string
	pgn  string
}

// ImportRaw imports every downloaded game that has not been imported yet.
// Games that fail to decode are logged and skipped. progress, if set, is
// called after each imported game.
func (im *Importer) ImportRaw(ctx context.Context, progress func(done, total int)) (int, error) {
	rows, err := im.games.db.QueryContext(ctx, `
	SELECT raw_games.id, raw_games.date, raw_games.pgn
	FROM raw_games LEFT JOIN games ON raw_games.id = games.game_id
	WHERE games.game_id IS NULL
	ORDER BY raw_games.date`)
	if err != nil {
		return 0, fmt.Errorf("archive: pending games: %w", err)
	}
	var pending []rawGame
	for rows.Next() {
		var g rawGame
		if err := rows.Scan(&g.id, &g.date, &g.pgn); err != nil {
			rows.Close()
			return 0, err
		}
		pending = append(pending, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	imported := 0
	for i, g := range pending {
		if err := ctx.Err(); err != nil {
			return imported, err
		}
		if err := im.ImportGame(ctx, g.id, g.date, g.pgn); err != nil {
			im.log.Warnw("skipping game", "id", g.id, "date", g.date, "error", err)
			continue
		}
		imported++
		if progress != nil {
			progress(i+1, len(pending))
		}
	}
	im.log.Infow("imported games", "count", imported, "pending", len(pending))
	return imported, nil
}

// flag decodes JSON booleans as well as 0/1.
type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	switch strings.TrimSpace(string(b)) {
	case "true", "1":
		*f = true
	case "false", "0", "null":
		*f = false
	default:
		return fmt.Errorf("archive: not a flag: %s", b)
	}
	return nil
}

// Variation is one entry of a chapter file.
type Variation struct {
	Name      string `json:"name"`
	Variation string `json:"variation"` // PGN movetext
	Link      string `json:"link"`
	Type      string `json:"type"`
	Book      string `json:"book"`
	Chapter   string `json:"chapter"`
	Paused    flag   `json:"paused"`
	Learned   flag   `json:"learned"`
	// Color is the side the line is prepared for, "white" when empty.
	Color string `json:"color"`
}

// ImportOpenings reads dir/<book>/<chapter>.json files and stores every
// playable variation. Already imported lines are left alone.
func (im *Importer) ImportOpenings(ctx context.Context, dir string) (int, error) {
	books, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("archive: read openings dir: %w", err)
	}
	imported := 0
	for _, book := range books {
		if !book.IsDir() {
			continue
		}
		chapters, err := os.ReadDir(filepath.Join(dir, book.Name()))
		if err != nil {
			return imported, err
		}
		for _, ch := range chapters {
			if ch.IsDir() || filepath.Ext(ch.Name()) != ".json" {
				continue
			}
			n, err := im.importChapter(ctx, filepath.Join(dir, book.Name(), ch.Name()))
			if err != nil {
				return imported, err
			}
			imported += n
		}
	}
	im.log.Infow("imported openings", "dir", dir, "count", imported)
	return imported, nil
}

func (im *Importer) importChapter(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var variations []Variation
	if err := json.Unmarshal(data, &variations); err != nil {
		return 0, fmt.Errorf("archive: decode %s: %w", path, err)
	}
	imported := 0
	for _, v := range variations {
		if v.Variation == "" || v.Type == "informational" {
			continue
		}
		ok, err := im.importVariation(ctx, v)
		if err != nil {
			im.log.Warnw("skipping variation", "file", path, "name", v.Name, "error", err)
			continue
		}
		if ok {
			imported++
		}
	}
	return imported, nil
}

var errEmptyLine = errors.New("archive: variation has no moves")

func (im *Importer) importVariation(ctx context.Context, v Variation) (bool, error) {
	rec, err := rules.DecodePGN(strings.NewReader(v.Variation))
	if err != nil {
		return false, err
	}
	if len(rec.Moves) == 0 {
		return false, errEmptyLine
	}
	positions, err := im.line(rec)
	if err != nil {
		return false, err
	}

	tx, err := im.openings.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	forWhite := !strings.EqualFold(v.Color, "black")
	res, err := tx.ExecContext(ctx, `
	INSERT OR IGNORE INTO openings (name, variation, link, type, book, chapter, paused, learned, for_white)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.Name, v.Variation, v.Link, v.Type, v.Book, v.Chapter, bool(v.Paused), bool(v.Learned), forWhite)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}
	openingID, err := res.LastInsertId()
	if err != nil {
		return false, err
	}

	var last sql.NullInt64
	for ply, lp := range positions {
		posID, err := positionID(ctx, tx, lp.epd)
		if err != nil {
			return false, err
		}
		res, err := tx.ExecContext(ctx, `
		INSERT INTO opening_positions (pos_id, ply, opening_id, last_opening_pos_id, next_move)
		VALUES (?, ?, ?, ?, ?)`, posID, ply, openingID, last, lp.next)
		if err != nil {
			return false, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return false, err
		}
		last = sql.NullInt64{Int64: id, Valid: true}
	}
	return true, tx.Commit()
}
