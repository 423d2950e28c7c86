package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/notnil/chess"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DialRedis connects to the redis server at url (redis://host:port/db) and
// checks that it answers.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("archive: redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("archive: redis ping: %w", err)
	}
	return client, nil
}

// RedisStore sits in front of another Store and shares its answers between
// processes for ttl.
type RedisStore struct {
	client *redis.Client
	next   Store
	prefix string
	ttl    time.Duration
	log    *zap.SugaredLogger
}

// NewRedisStore returns a tier keyed under prefix, e.g. "chessreview:games".
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration, next Store, log *zap.SugaredLogger) *RedisStore {
	return &RedisStore{client: client, next: next, prefix: prefix, ttl: ttl, log: log}
}

func (r *RedisStore) key(colour chess.Color, epd string) string {
	return r.prefix + ":" + colourName(colour) + ":" + epd
}

func (r *RedisStore) Lookup(ctx context.Context, colour chess.Color, epds []string) (map[string][]Stat, error) {
	out := make(map[string][]Stat, len(epds))
	if len(epds) == 0 {
		return out, nil
	}
	keys := make([]string, len(epds))
	for i, epd := range epds {
		keys[i] = r.key(colour, epd)
	}

	var missing []string
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		// the tier is optional, fall through to the store
		r.log.Warnw("redis mget failed", "error", err)
		missing = epds
	} else {
		for i, v := range vals {
			s, ok := v.(string)
			if !ok {
				missing = append(missing, epds[i])
				continue
			}
			var stats []Stat
			if err := json.Unmarshal([]byte(s), &stats); err != nil {
				missing = append(missing, epds[i])
				continue
			}
			if len(stats) > 0 {
				out[epds[i]] = stats
			}
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	res, err := r.next.Lookup(ctx, colour, missing)
	if err != nil {
		return nil, err
	}
	pipe := r.client.Pipeline()
	for _, epd := range missing {
		stats := res[epd]
		if len(stats) > 0 {
			out[epd] = stats
		}
		if stats == nil {
			stats = []Stat{}
		}
		b, err := json.Marshal(stats)
		if err != nil {
			return nil, err
		}
		pipe.Set(ctx, r.key(colour, epd), b, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Warnw("redis store failed", "positions", len(missing), "error", err)
	}
	return out, nil
}
