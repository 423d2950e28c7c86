package analysis

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/qnkhuat/chessreview/pkg/engine"
)

// Engine streams search progress for a position until ctx is cancelled.
// It must not return before the search has actually stopped.
type Engine interface {
	Analyze(ctx context.Context, fen string, out chan<- engine.Update) error
}

// Runner keeps at most one engine stream alive. Starting a stream cancels
// the previous one and waits for it to wind down first.
type Runner struct {
	engine   Engine
	log      *zap.SugaredLogger
	onUpdate func(Token, engine.Update)
	onError  func(Token, error)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner returns a runner publishing to onUpdate. onError may be nil.
// Both are called from the runner's goroutine and only for current tokens.
func NewRunner(e Engine, log *zap.SugaredLogger, onUpdate func(Token, engine.Update), onError func(Token, error)) *Runner {
	return &Runner{engine: e, log: log, onUpdate: onUpdate, onError: onError}
}

// Start analyses fen under tk.
func (r *Runner) Start(tk Token, fen string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()

	ctx, cancel := context.WithCancel(tk.Context())
	done := make(chan struct{})
	r.cancel, r.done = cancel, done

	go func() {
		defer close(done)
		defer cancel()
		updates := make(chan engine.Update)
		errc := make(chan error, 1)
		go func() {
			errc <- r.engine.Analyze(ctx, fen, updates)
			close(updates)
		}()
		for u := range updates {
			if tk.Current() {
				r.onUpdate(tk, u)
			}
		}
		err := <-errc
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		r.log.Warnw("analysis failed", "token", tk.ID(), "error", err)
		if r.onError != nil && tk.Current() {
			r.onError(tk, err)
		}
	}()
}

// Stop cancels the active stream and waits for it to end.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Runner) stopLocked() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel, r.done = nil, nil
}
