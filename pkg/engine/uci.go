// Package engine drives an external UCI chess engine and streams its
// search progress.
package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrClosed is returned once the engine process has gone away.
var ErrClosed = errors.New("engine: closed")

const handshakeTimeout = 10 * time.Second

// Update is one line of search progress. Score is in centipawns from the
// point of view of the side to move, or moves to mate when Mate is set.
type Update struct {
	Depth int
	Score int
	Mate  bool
	PV    []string // UCI moves
}

// Options configure the engine process.
type Options struct {
	Path    string
	Args    []string
	Env     []string
	Threads int
	Hash    int // MB
	// Depth bounds each search; 0 searches until stopped.
	Depth int
}

// UCI is a running engine process. Only one search runs at a time.
type UCI struct {
	opts   Options
	cmd    *exec.Cmd
	stdin  *bufio.Writer
	lines  chan string
	search sync.Mutex
	write  sync.Mutex
	log    *zap.SugaredLogger
}

// Start launches the engine and completes the UCI handshake.
func Start(ctx context.Context, opts Options, log *zap.SugaredLogger) (*UCI, error) {
	cmd := exec.Command(opts.Path, opts.Args...)
	if len(opts.Env) > 0 {
		cmd.Env = opts.Env
	}
	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("engine: start %s: %w", opts.Path, err)
	}

	e := &UCI{
		opts:  opts,
		cmd:   cmd,
		stdin: bufio.NewWriter(stdinPipe),
		lines: make(chan string, 64),
		log:   log,
	}
	go e.listen(stdoutPipe)

	hctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()
	if err := e.handshake(hctx); err != nil {
		e.Close()
		return nil, err
	}
	log.Infow("engine ready", "path", opts.Path, "threads", opts.Threads, "hash", opts.Hash)
	return e, nil
}

func (e *UCI) listen(r io.Reader) {
	defer close(e.lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		e.lines <- scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		e.log.Warnw("engine output ended", "error", err)
	}
}

func (e *UCI) send(cmds ...string) error {
	e.write.Lock()
	defer e.write.Unlock()
	for _, c := range cmds {
		if _, err := e.stdin.WriteString(c + "\n"); err != nil {
			return fmt.Errorf("engine: write %q: %w", c, err)
		}
	}
	return e.stdin.Flush()
}

// await reads lines until one starts with prefix.
func (e *UCI) await(ctx context.Context, prefix string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-e.lines:
			if !ok {
				return ErrClosed
			}
			if strings.HasPrefix(line, prefix) {
				return nil
			}
		}
	}
}

func (e *UCI) handshake(ctx context.Context) error {
	if err := e.send("uci"); err != nil {
		return err
	}
	if err := e.await(ctx, "uciok"); err != nil {
		return fmt.Errorf("engine: uci handshake: %w", err)
	}
	var setup []string
	if e.opts.Threads > 0 {
		setup = append(setup, fmt.Sprintf("setoption name Threads value %d", e.opts.Threads))
	}
	if e.opts.Hash > 0 {
		setup = append(setup, fmt.Sprintf("setoption name Hash value %d", e.opts.Hash))
	}
	setup = append(setup, "isready")
	if err := e.send(setup...); err != nil {
		return err
	}
	if err := e.await(ctx, "readyok"); err != nil {
		return fmt.Errorf("engine: isready: %w", err)
	}
	return nil
}

// Analyze searches fen and sends progress on out until the search ends or
// ctx is cancelled. On cancellation the engine is told to stop and Analyze
// returns only after the engine acknowledged with bestmove, so the next
// search never sees stale output.
func (e *UCI) Analyze(ctx context.Context, fen string, out chan<- Update) error {
	e.search.Lock()
	defer e.search.Unlock()

	goCmd := "go infinite"
	if e.opts.Depth > 0 {
		goCmd = fmt.Sprintf("go depth %d", e.opts.Depth)
	}
	if err := e.send("position fen "+fen, goCmd); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return e.stop(ctx.Err())
		case line, ok := <-e.lines:
			if !ok {
				return ErrClosed
			}
			if strings.HasPrefix(line, "bestmove") {
				return nil
			}
			u, ok := ParseInfo(line)
			if !ok {
				continue
			}
			select {
			case out <- u:
			case <-ctx.Done():
				return e.stop(ctx.Err())
			}
		}
	}
}

func (e *UCI) stop(cause error) error {
	if err := e.send("stop"); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), handshakeTimeout)
	defer cancel()
	if err := e.await(ctx, "bestmove"); err != nil {
		return fmt.Errorf("engine: stop: %w", err)
	}
	return cause
}

// Close asks the engine to quit and reaps the process.
func (e *UCI) Close() error {
	_ = e.send("quit")
	done := make(chan error, 1)
	go func() { done <- e.cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		e.log.Warnw("engine did not quit, killing", "pid", e.cmd.Process.Pid)
		return e.cmd.Process.Kill()
	}
}

// ParseInfo parses an "info" line carrying a score and a principal
// variation. Lines without both are ignored.
func ParseInfo(line string) (Update, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "info" {
		return Update{}, false
	}
	var (
		u        Update
		hasScore bool
	)
	for i := 1; i < len(fields); i++ {
		switch fields[i] {
		case "depth":
			if i+1 < len(fields) {
				u.Depth, _ = strconv.Atoi(fields[i+1])
				i++
			}
		case "score":
			if i+2 < len(fields) {
				v, err := strconv.Atoi(fields[i+2])
				if err == nil {
					u.Score = v
					u.Mate = fields[i+1] == "mate"
					hasScore = true
				}
				i += 2
			}
		case "pv":
			u.PV = append([]string(nil), fields[i+1:]...)
			i = len(fields)
		}
	}
	if !hasScore || len(u.PV) == 0 {
		return Update{}, false
	}
	return u, true
}
