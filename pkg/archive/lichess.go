package archive

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qnkhuat/chessreview/pkg/rules"
)

const rawDateLayout = "2006-01-02 15:04:05"

// Fetcher downloads the user's games from lichess into raw_games.
type Fetcher struct {
	baseURL string
	token   string
	user    string
	client  *http.Client
	store   *GameStore
	log     *zap.SugaredLogger
}

func NewFetcher(baseURL, token, user string, store *GameStore, log *zap.SugaredLogger) *Fetcher {
	return &Fetcher{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		user:    user,
		client: &http.Client{
			// exports stream for as long as the user has games
			Timeout: 30 * time.Minute,
		},
		store: store,
		log:   log,
	}
}

// since returns the export cursor: one second after the newest stored game.
func (f *Fetcher) since(ctx context.Context) (int64, error) {
	latest, err := f.store.LatestRawDate(ctx)
	if err != nil || latest == "" {
		return 0, err
	}
	t, err := time.ParseInLocation(rawDateLayout, latest, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("archive: stored date %q: %w", latest, err)
	}
	return t.UnixMilli() + 1000, nil
}

// rawDate turns the UTCDate/UTCTime tags into the raw_games date format.
func rawDate(tags map[string]string) string {
	date := strings.ReplaceAll(tags["UTCDate"], ".", "-")
	if date == "" {
		date = strings.ReplaceAll(tags["Date"], ".", "-")
	}
	if t := tags["UTCTime"]; t != "" {
		return date + " " + t
	}
	return date + " 00:00:00"
}

// Fetch downloads every game played since the last fetch and returns how
// many were stored. progress, if set, is called after each game.
func (f *Fetcher) Fetch(ctx context.Context, progress func(n int, date string)) (int, error) {
	if f.user == "" {
		return 0, ErrNoUser
	}
	since, err := f.since(ctx)
	if err != nil {
		return 0, err
	}

	q := url.Values{}
	q.Set("evals", "true")
	q.Set("opening", "true")
	if since > 0 {
		q.Set("since", strconv.FormatInt(since, 10))
	}
	endpoint := fmt.Sprintf("%s/api/games/user/%s?%s", f.baseURL, url.PathEscape(f.user), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/x-chess-pgn")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	f.log.Infow("fetching games", "user", f.user, "since", since)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("archive: lichess export: unexpected status code: %d", resp.StatusCode)
	}

	n := 0
	scanner := rules.NewScanner(resp.Body)
	for scanner.Scan() {
		rec := scanner.Record()
		date := rawDate(rec.Tags)
		if _, err := f.store.AddRaw(ctx, date, rec.PGN); err != nil {
			return n, err
		}
		n++
		if progress != nil {
			progress(n, date)
		}
	}
	if err := scanner.Err(); err != nil {
		return n, err
	}
	f.log.Infow("fetched games", "user", f.user, "count", n)
	return n, nil
}
