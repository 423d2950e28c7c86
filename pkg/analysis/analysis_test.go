package analysis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qnkhuat/chessreview/pkg/engine"
)

func TestTrackerSupersedes(t *testing.T) {
	tr := NewTracker(context.Background())
	a := tr.Next()
	assert.True(t, a.Current())
	assert.NotEmpty(t, a.ID())

	b := tr.Next()
	assert.False(t, a.Current())
	assert.ErrorIs(t, a.Context().Err(), context.Canceled)
	assert.True(t, b.Current())
	assert.Greater(t, b.Generation(), a.Generation())
	assert.NotEqual(t, a.ID(), b.ID())

	tr.Stop()
	assert.False(t, b.Current())
}

func TestZeroTokenIsNeverCurrent(t *testing.T) {
	var tk Token
	assert.False(t, tk.Current())
	assert.NoError(t, tk.Context().Err())
}

func TestGoPublishesOnlyCurrent(t *testing.T) {
	tr := NewTracker(context.Background())

	published := make(chan int, 2)
	release := make(chan struct{})
	stale := tr.Next()
	Go(stale, func(context.Context) (int, error) {
		<-release
		return 1, nil
	}, func(v int) { published <- v }, nil)

	fresh := tr.Next()
	Go(fresh, func(context.Context) (int, error) { return 2, nil },
		func(v int) { published <- v }, nil)
	close(release)

	assert.Equal(t, 2, <-published)
	select {
	case v := <-published:
		t.Fatalf("stale result %d published", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestGoReportsErrors(t *testing.T) {
	tr := NewTracker(context.Background())
	boom := errors.New("boom")
	failed := make(chan error, 1)
	Go(tr.Next(), func(context.Context) (int, error) { return 0, boom },
		func(int) { t.Error("published on error") }, func(err error) { failed <- err })
	assert.ErrorIs(t, <-failed, boom)
}

// streamer emits an update every millisecond until cancelled and counts
// how many streams run at once.
type streamer struct {
	active    atomic.Int32
	maxActive atomic.Int32
	fail      error
}

func (s *streamer) Analyze(ctx context.Context, fen string, out chan<- engine.Update) error {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		m := s.maxActive.Load()
		if n <= m || s.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	if s.fail != nil {
		return s.fail
	}
	for d := 1; ; d++ {
		select {
		case <-ctx.Done():
			// winding down takes a moment, like a real engine
			time.Sleep(2 * time.Millisecond)
			return ctx.Err()
		case out <- engine.Update{Depth: d, PV: []string{fen}}:
			time.Sleep(time.Millisecond)
		}
	}
}

type recorder struct {
	mu  sync.Mutex
	got map[uint64]int
	err []error
}

func (r *recorder) update(tk Token, _ engine.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.got == nil {
		r.got = map[uint64]int{}
	}
	r.got[tk.Generation()]++
}

func (r *recorder) fail(_ Token, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = append(r.err, err)
}

func (r *recorder) count(gen uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.got[gen]
}

func TestRunnerSingleStream(t *testing.T) {
	s := &streamer{}
	rec := &recorder{}
	tr := NewTracker(context.Background())
	r := NewRunner(s, zap.NewNop().Sugar(), rec.update, rec.fail)

	first := tr.Next()
	r.Start(first, "a")
	require.Eventually(t, func() bool { return rec.count(first.Generation()) > 0 }, time.Second, time.Millisecond)

	for i := 0; i < 5; i++ {
		r.Start(tr.Next(), "b")
	}
	second := tr.Next()
	r.Start(second, "c")

	// earlier streams have fully ended by the time Start returns
	frozen := rec.count(first.Generation())
	require.Eventually(t, func() bool { return rec.count(second.Generation()) > 0 }, time.Second, time.Millisecond)
	assert.Equal(t, frozen, rec.count(first.Generation()))

	r.Stop()
	assert.Equal(t, int32(1), s.maxActive.Load())
	assert.Equal(t, int32(0), s.active.Load())
	assert.Empty(t, rec.err)
}

func TestRunnerReportsEngineFailure(t *testing.T) {
	boom := errors.New("engine crashed")
	rec := &recorder{}
	r := NewRunner(&streamer{fail: boom}, zap.NewNop().Sugar(), rec.update, rec.fail)

	tr := NewTracker(context.Background())
	r.Start(tr.Next(), "a")
	r.Stop()
	// Stop waits for the stream, so the error is already recorded
	require.Len(t, rec.err, 1)
	assert.ErrorIs(t, rec.err[0], boom)
}

func TestRunnerStopIdle(t *testing.T) {
	r := NewRunner(&streamer{}, zap.NewNop().Sugar(), func(Token, engine.Update) {}, nil)
	r.Stop()
	r.Stop()
}
