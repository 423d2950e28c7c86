// Package analysis keeps background work tied to the position it was
// started for. Every cursor move opens a new generation; work from an
// older generation is cancelled and its results are never published.
package analysis

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Tracker hands out generation tokens. Opening a generation cancels the
// previous one.
type Tracker struct {
	mu     sync.Mutex
	parent context.Context
	gen    uint64
	cancel context.CancelFunc
}

func NewTracker(parent context.Context) *Tracker {
	return &Tracker{parent: parent}
}

// Token identifies one generation of work.
type Token struct {
	gen uint64
	id  string
	ctx context.Context
	t   *Tracker
}

// Next cancels the current generation and opens a new one.
func (t *Tracker) Next() Token {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	ctx, cancel := context.WithCancel(t.parent)
	t.gen++
	t.cancel = cancel
	return Token{gen: t.gen, id: uuid.NewString(), ctx: ctx, t: t}
}

// Generation returns the number of the newest generation.
func (t *Tracker) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen
}

// Stop cancels the current generation without opening another.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.gen++
}

// Current reports whether no newer generation has been opened since the
// token was issued.
func (tk Token) Current() bool {
	return tk.t != nil && tk.ctx.Err() == nil && tk.t.Generation() == tk.gen
}

func (tk Token) Context() context.Context {
	if tk.ctx == nil {
		return context.Background()
	}
	return tk.ctx
}

// ID is a unique label for log lines.
func (tk Token) ID() string { return tk.id }

func (tk Token) Generation() uint64 { return tk.gen }

// Go runs work in the background and passes its result to publish only if
// tk is still current when work returns. Errors from superseded work are
// dropped.
func Go[T any](tk Token, work func(context.Context) (T, error), publish func(T), fail func(error)) {
	go func() {
		v, err := work(tk.Context())
		if !tk.Current() {
			return
		}
		if err != nil {
			if fail != nil {
				fail(err)
			}
			return
		}
		publish(v)
	}()
}
