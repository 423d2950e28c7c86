package archive

import (
	"context"
	"sync"
	"time"

	"github.com/notnil/chess"
	"go.uber.org/zap"
)

const fillTimeout = 30 * time.Second

type key struct {
	colour chess.Color
	epd    string
}

// flight is one batch query. Every entry it was started for resolves when
// done is closed.
type flight struct {
	done chan struct{}
	err  error
}

type entry struct {
	flight *flight
	stats  []Stat
}

// Cache memoises a Store by (colour, EPD). A key is either resolved or
// owned by exactly one in-flight batch; concurrent lookups of the same key
// wait on that batch instead of querying again.
type Cache struct {
	store Store
	log   *zap.SugaredLogger

	mu      sync.Mutex
	entries map[key]*entry
}

func NewCache(store Store, log *zap.SugaredLogger) *Cache {
	return &Cache{store: store, log: log, entries: make(map[key]*entry)}
}

// Lookup returns the stats of every requested position, querying the store
// only for keys nobody has asked for yet. Cancelling ctx abandons the wait
// but not the batch, whose results still land in the cache.
func (c *Cache) Lookup(ctx context.Context, colour chess.Color, epds []string) (map[string][]Stat, error) {
	f := &flight{done: make(chan struct{})}
	want := make(map[string]*entry, len(epds))
	var missing []string

	c.mu.Lock()
	for _, epd := range epds {
		k := key{colour, epd}
		e, ok := c.entries[k]
		if !ok {
			e = &entry{flight: f}
			c.entries[k] = e
			missing = append(missing, epd)
		}
		want[epd] = e
	}
	c.mu.Unlock()

	if len(missing) > 0 {
		go c.fill(context.WithoutCancel(ctx), colour, missing, f)
	}

	out := make(map[string][]Stat, len(want))
	for epd, e := range want {
		select {
		case <-e.flight.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if e.flight.err != nil {
			return nil, e.flight.err
		}
		out[epd] = e.stats
	}
	return out, nil
}

// Prefetch warms the cache without waiting for the result.
func (c *Cache) Prefetch(ctx context.Context, colour chess.Color, epds []string) {
	go func() {
		if _, err := c.Lookup(ctx, colour, epds); err != nil {
			c.log.Debugw("prefetch failed", "positions", len(epds), "error", err)
		}
	}()
}

func (c *Cache) fill(ctx context.Context, colour chess.Color, epds []string, f *flight) {
	ctx, cancel := context.WithTimeout(ctx, fillTimeout)
	defer cancel()
	res, err := c.store.Lookup(ctx, colour, epds)

	c.mu.Lock()
	for _, epd := range epds {
		k := key{colour, epd}
		e := c.entries[k]
		if e == nil || e.flight != f {
			continue
		}
		if err != nil {
			// forget the key so that the next lookup retries
			delete(c.entries, k)
			continue
		}
		e.stats = res[epd]
	}
	f.err = err
	c.mu.Unlock()
	close(f.done)

	if err != nil {
		c.log.Warnw("archive lookup failed", "positions", len(epds), "error", err)
	}
}
