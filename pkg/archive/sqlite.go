package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/notnil/chess"
)

const gamesSchema = `
CREATE TABLE IF NOT EXISTS raw_games (
	id INTEGER PRIMARY KEY,
	date TEXT,
	pgn TEXT
);

CREATE TABLE IF NOT EXISTS games (
	game_id INTEGER PRIMARY KEY,   -- raw_games.id
	pgn TEXT,
	date TEXT,
	result TEXT,
	white TEXT,
	black TEXT,
	time_control TEXT,
	variant TEXT,
	white_elo TEXT,
	black_elo TEXT,
	eco TEXT,
	opening TEXT,
	termination TEXT
);

CREATE TABLE IF NOT EXISTS positions (
	pos_id INTEGER PRIMARY KEY,
	epd TEXT UNIQUE
);

CREATE TABLE IF NOT EXISTS game_positions (
	game_id INTEGER,
	pos_id INTEGER,
	ply INTEGER,
	next_move TEXT,                -- SAN, NULL at the end of the game
	PRIMARY KEY (game_id, ply)
);

CREATE INDEX IF NOT EXISTS idx_raw_games_date ON raw_games(date);
CREATE INDEX IF NOT EXISTS idx_game_positions_pos_id ON game_positions(pos_id);
`

const openingsSchema = `
CREATE TABLE IF NOT EXISTS openings (
	opening_id INTEGER PRIMARY KEY,
	name TEXT,
	variation TEXT,
	link TEXT,
	type TEXT,
	book TEXT,
	chapter TEXT,
	paused INTEGER,
	learned INTEGER,
	for_white INTEGER DEFAULT 1,
	UNIQUE(name, book, chapter, link)
);

CREATE TABLE IF NOT EXISTS positions (
	pos_id INTEGER PRIMARY KEY,
	epd TEXT UNIQUE
);

CREATE TABLE IF NOT EXISTS opening_positions (
	opening_pos_id INTEGER PRIMARY KEY,
	pos_id INTEGER,
	ply INTEGER,
	opening_id INTEGER,
	last_opening_pos_id INTEGER,
	next_move TEXT
);

CREATE INDEX IF NOT EXISTS idx_opening_positions_pos_id ON opening_positions(pos_id);
`

func open(path, schema string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	// one writer
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("archive: create schema in %s: %w", path, err)
	}
	return conn, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func args(epds []string, extra ...any) []any {
	out := make([]any, 0, len(epds)+len(extra))
	for _, e := range epds {
		out = append(out, e)
	}
	return append(out, extra...)
}

func scanStats(rows *sql.Rows) (map[string][]Stat, error) {
	defer rows.Close()
	out := make(map[string][]Stat)
	for rows.Next() {
		var (
			epd string
			s   Stat
		)
		if err := rows.Scan(&epd, &s.Move, &s.Total, &s.Wins, &s.Draws, &s.Losses); err != nil {
			return nil, err
		}
		out[epd] = append(out[epd], s)
	}
	return out, rows.Err()
}

// GameStore holds the user's own games.
type GameStore struct {
	db   *sql.DB
	user string
}

// OpenGameStore opens (creating if needed) the games archive at path.
// user is the account whose games it holds.
func OpenGameStore(path, user string) (*GameStore, error) {
	db, err := open(path, gamesSchema)
	if err != nil {
		return nil, err
	}
	return &GameStore{db: db, user: user}, nil
}

func (s *GameStore) Close() error { return s.db.Close() }

// Lookup returns, per position, the moves the user played (or faced) in
// games where they had colour, most frequent first.
func (s *GameStore) Lookup(ctx context.Context, colour chess.Color, epds []string) (map[string][]Stat, error) {
	if s.user == "" {
		return nil, ErrNoUser
	}
	if len(epds) == 0 {
		return map[string][]Stat{}, nil
	}
	column, win, loss := "white", "1-0", "0-1"
	if colour == chess.Black {
		column, win, loss = "black", "0-1", "1-0"
	}
	query := fmt.Sprintf(`
	SELECT p.epd, g.next_move, COUNT(1) AS count,
		SUM(CASE WHEN games.result = ? THEN 1 ELSE 0 END),
		SUM(CASE WHEN games.result = '1/2-1/2' THEN 1 ELSE 0 END),
		SUM(CASE WHEN games.result = ? THEN 1 ELSE 0 END)
	FROM positions p
	JOIN game_positions g ON p.pos_id = g.pos_id
	JOIN games ON games.game_id = g.game_id
	WHERE p.epd IN (%s) AND games.%s = ? AND g.next_move IS NOT NULL
	GROUP BY p.epd, g.next_move
	ORDER BY p.epd, count DESC, g.next_move`, placeholders(len(epds)), column)

	rows, err := s.db.QueryContext(ctx, query, append([]any{win, loss}, args(epds, s.user)...)...)
	if err != nil {
		return nil, fmt.Errorf("archive: lookup games: %w", err)
	}
	return scanStats(rows)
}

// LatestRawDate returns the date of the newest downloaded game, or "" when
// there is none.
func (s *GameStore) LatestRawDate(ctx context.Context) (string, error) {
	var date sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT MAX(date) FROM raw_games").Scan(&date)
	if err != nil {
		return "", err
	}
	return date.String, nil
}

// AddRaw stores a downloaded game for later import.
func (s *GameStore) AddRaw(ctx context.Context, date, pgn string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO raw_games (date, pgn) VALUES (?, ?)", date, pgn)
	if err != nil {
		return 0, fmt.Errorf("archive: insert raw game: %w", err)
	}
	return res.LastInsertId()
}

// OpeningStore holds the user's opening repertoire.
type OpeningStore struct {
	db *sql.DB
}

// OpenOpeningStore opens (creating if needed) the openings archive at path.
func OpenOpeningStore(path string) (*OpeningStore, error) {
	db, err := open(path, openingsSchema)
	if err != nil {
		return nil, err
	}
	return &OpeningStore{db: db}, nil
}

func (s *OpeningStore) Close() error { return s.db.Close() }

// Lookup returns the repertoire moves prepared for colour. Counts are the
// number of lines through the move; results are not tracked.
func (s *OpeningStore) Lookup(ctx context.Context, colour chess.Color, epds []string) (map[string][]Stat, error) {
	if len(epds) == 0 {
		return map[string][]Stat{}, nil
	}
	forWhite := 0
	if colour == chess.White {
		forWhite = 1
	}
	query := fmt.Sprintf(`
	SELECT p.epd, g.next_move, COUNT(1) AS count, 0, 0, 0
	FROM positions p
	JOIN opening_positions g ON p.pos_id = g.pos_id
	JOIN openings o ON o.opening_id = g.opening_id
	WHERE p.epd IN (%s) AND o.for_white = ? AND g.next_move IS NOT NULL
	GROUP BY p.epd, g.next_move
	ORDER BY p.epd, count DESC, g.next_move`, placeholders(len(epds)))

	rows, err := s.db.QueryContext(ctx, query, args(epds, forWhite)...)
	if err != nil {
		return nil, fmt.Errorf("archive: lookup openings: %w", err)
	}
	return scanStats(rows)
}
