package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// ExportRow is one aggregated (colour, position, move) line of the games
// archive.
type ExportRow struct {
	Colour string `parquet:"colour,dict"`
	EPD    string `parquet:"epd,dict"`
	Move   string `parquet:"move,dict"`
	Total  int32  `parquet:"total"`
	Wins   int32  `parquet:"wins"`
	Draws  int32  `parquet:"draws"`
	Losses int32  `parquet:"losses"`
}

func (s *GameStore) exportRows(ctx context.Context) ([]ExportRow, error) {
	if s.user == "" {
		return nil, ErrNoUser
	}
	side := func(colour, column, win, loss string) string {
		return fmt.Sprintf(`
		SELECT '%s', p.epd, g.next_move, COUNT(1),
			SUM(CASE WHEN games.result = '%s' THEN 1 ELSE 0 END),
			SUM(CASE WHEN games.result = '1/2-1/2' THEN 1 ELSE 0 END),
			SUM(CASE WHEN games.result = '%s' THEN 1 ELSE 0 END)
		FROM positions p
		JOIN game_positions g ON p.pos_id = g.pos_id
		JOIN games ON games.game_id = g.game_id
		WHERE games.%s = ? AND g.next_move IS NOT NULL
		GROUP BY p.epd, g.next_move`, colour, win, loss, column)
	}
	query := side("w", "white", "1-0", "0-1") + " UNION ALL " + side("b", "black", "0-1", "1-0") +
		" ORDER BY 1 DESC, 2, 4 DESC"

	rows, err := s.db.QueryContext(ctx, query, s.user, s.user)
	if err != nil {
		return nil, fmt.Errorf("archive: export query: %w", err)
	}
	defer rows.Close()
	var out []ExportRow
	for rows.Next() {
		var r ExportRow
		if err := rows.Scan(&r.Colour, &r.EPD, &r.Move, &r.Total, &r.Wins, &r.Draws, &r.Losses); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ExportParquet writes the aggregated archive to path and returns the
// number of rows written.
func (s *GameStore) ExportParquet(ctx context.Context, path string) (int, error) {
	rows, err := s.exportRows(ctx)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}

	tmpPath := path + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", "position_stats_v1"),
	); err != nil {
		return 0, fmt.Errorf("write parquet: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("rename parquet: %w", err)
	}
	return len(rows), nil
}
