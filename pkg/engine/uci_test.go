package engine

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const fakeEngineEnv = "CHESSREVIEW_FAKE_ENGINE"

func TestMain(m *testing.M) {
	if os.Getenv(fakeEngineEnv) == "1" {
		fakeEngine()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// fakeEngine speaks just enough UCI to exercise the client. Infinite
// searches print a line every few milliseconds until told to stop.
func fakeEngine() {
	var (
		mu   sync.Mutex
		stop chan struct{}
		done chan struct{}
	)
	out := bufio.NewWriter(os.Stdout)
	emit := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		out.WriteString(s + "\n")
		out.Flush()
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "uci":
			emit("id name fake")
			emit("uciok")
		case "isready":
			emit("readyok")
		case "go":
			if len(fields) == 3 && fields[1] == "depth" {
				var depth int
				fmt.Sscan(fields[2], &depth)
				for d := 1; d <= depth; d++ {
					emit(fmt.Sprintf("info depth %d score cp %d nodes 100 pv e2e4 e7e5", d, 10*d))
				}
				emit("bestmove e2e4 ponder e7e5")
				continue
			}
			stop, done = make(chan struct{}), make(chan struct{})
			go func(stop, done chan struct{}) {
				defer close(done)
				for d := 1; ; d++ {
					select {
					case <-stop:
						emit("bestmove e2e4")
						return
					case <-time.After(5 * time.Millisecond):
						emit(fmt.Sprintf("info depth %d score mate %d pv d2d4", d, d))
					}
				}
			}(stop, done)
		case "stop":
			if stop != nil {
				close(stop)
				<-done
				stop = nil
			}
		case "quit":
			return
		}
	}
}

func startFake(t *testing.T, depth int) *UCI {
	t.Helper()
	e, err := Start(context.Background(), Options{
		Path:    os.Args[0],
		Args:    []string{"-test.run=^$"},
		Env:     append(os.Environ(), fakeEngineEnv+"=1"),
		Threads: 2,
		Hash:    16,
		Depth:   depth,
	}, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestAnalyzeToDepth(t *testing.T) {
	e := startFake(t, 3)
	out := make(chan Update, 16)
	require.NoError(t, e.Analyze(context.Background(), "8/8/8/8/8/8/8/K6k w - - 0 1", out))
	close(out)

	var got []Update
	for u := range out {
		got = append(got, u)
	}
	require.Len(t, got, 3)
	assert.Equal(t, Update{Depth: 3, Score: 30, PV: []string{"e2e4", "e7e5"}}, got[2])
}

func TestAnalyzeStopsOnCancel(t *testing.T) {
	e := startFake(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Update)

	errc := make(chan error, 1)
	go func() { errc <- e.Analyze(ctx, "8/8/8/8/8/8/8/K6k w - - 0 1", out) }()

	u := <-out
	assert.True(t, u.Mate)
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	// the engine acknowledged the stop, so a fresh search starts clean
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	go func() { errc <- e.Analyze(ctx2, "8/8/8/8/8/8/8/K6k w - - 0 1", out) }()
	u = <-out
	assert.Equal(t, 1, u.Depth)
	cancel2()
	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestStartMissingBinary(t *testing.T) {
	_, err := Start(context.Background(), Options{Path: "/nonexistent/engine"}, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestParseInfo(t *testing.T) {
	tests := []struct {
		line string
		want Update
		ok   bool
	}{
		{
			line: "info depth 12 seldepth 18 multipv 1 score cp -34 nodes 1000 nps 5000 pv e7e5 g1f3",
			want: Update{Depth: 12, Score: -34, PV: []string{"e7e5", "g1f3"}},
			ok:   true,
		},
		{
			line: "info depth 20 score mate -3 pv h7h8q",
			want: Update{Depth: 20, Score: -3, Mate: true, PV: []string{"h7h8q"}},
			ok:   true,
		},
		{line: "info depth 5 currmove e2e4 currmovenumber 1"},
		{line: "info string NNUE enabled"},
		{line: "bestmove e2e4"},
		{line: ""},
	}
	for _, tt := range tests {
		got, ok := ParseInfo(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}
