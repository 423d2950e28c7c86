package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/qnkhuat/chessreview/pkg"
	"github.com/qnkhuat/chessreview/pkg/analysis"
	"github.com/qnkhuat/chessreview/pkg/archive"
	"github.com/qnkhuat/chessreview/pkg/config"
	"github.com/qnkhuat/chessreview/pkg/engine"
	"github.com/qnkhuat/chessreview/pkg/game"
	"github.com/qnkhuat/chessreview/pkg/gui"
	"github.com/qnkhuat/chessreview/pkg/rules"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: chessterm [-config path] [game.pgn]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(*configPath, flag.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, pgnPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := pkg.InitLog(cfg.Log.Path, "chessterm", cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()
	log.Infow("starting", "config", cfg.File(), "session", os.Getenv("CHESSREVIEW_SESSION"))

	var themes []gui.ThemeHex
	if err := cfg.Decode("themes", &themes); err != nil {
		return fmt.Errorf("themes: %w", err)
	}
	theme, err := gui.ImportThemes(cfg.Theme, themes)
	if err != nil {
		return fmt.Errorf("%w: %s", err, cfg.Theme)
	}

	nav, err := loadGame(pgnPath)
	if err != nil {
		log.Errorw("load game", "file", pgnPath, "error", err)
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := openArchive(ctx, cfg, log)
	defer a.Close()

	opts := gui.Options{
		Games:    a.games,
		Openings: a.openings,
		Username: cfg.Username,
		Log:      log,
	}
	eng, err := engine.Start(ctx, engine.Options{
		Path:    cfg.Engine.Path,
		Threads: cfg.Engine.Threads,
		Hash:    cfg.Engine.Hash,
		Depth:   cfg.Engine.Depth,
	}, log)
	if err != nil {
		log.Warnw("engine unavailable, analysis disabled", "path", cfg.Engine.Path, "error", err)
	} else {
		defer eng.Close()
		opts.Engine = analysis.Engine(eng)
	}

	app := tview.NewApplication()
	ui := gui.NewUI(theme)
	c := gui.NewController(ctx, app, ui, rules.Standard{}, opts)
	c.Load(nav)

	go func() {
		<-ctx.Done()
		app.Stop()
	}()
	err = gui.Run(app, ui, c)
	log.Infow("stopped", "error", err)
	return err
}

// loadGame reads the first game of path, or the demo game when path is
// empty.
func loadGame(path string) (*game.Navigator, error) {
	if path == "" {
		return game.FromPGN(rules.Standard{}, strings.NewReader(demoPGN))
	}
	return game.FromFile(rules.Standard{}, path)
}

type archives struct {
	games    *archive.Cache
	openings *archive.Cache
	closers  []io.Closer
}

// openArchive opens whatever archives are available. A missing archive
// leaves its pane empty rather than stopping the program.
func openArchive(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) *archives {
	a := &archives{}

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		client, err := archive.DialRedis(ctx, cfg.Redis.URL)
		if err != nil {
			log.Warnw("redis unavailable, using local archives only", "error", err)
		} else {
			rdb = client
			a.closers = append(a.closers, client)
		}
	}
	tier := func(name string, s archive.Store) archive.Store {
		if rdb == nil {
			return s
		}
		prefix := "chessreview:" + name
		if name == "games" {
			prefix += ":" + strings.ToLower(cfg.Username)
		}
		return archive.NewRedisStore(rdb, prefix, cfg.Redis.TTL, s, log)
	}

	if games, err := archive.OpenGameStore(cfg.Database.Games, cfg.Username); err != nil {
		log.Warnw("games archive unavailable", "path", cfg.Database.Games, "error", err)
	} else {
		a.closers = append(a.closers, games)
		a.games = archive.NewCache(tier("games", games), log)
	}
	if openings, err := archive.OpenOpeningStore(cfg.Database.Openings); err != nil {
		log.Warnw("openings archive unavailable", "path", cfg.Database.Openings, "error", err)
	} else {
		a.closers = append(a.closers, openings)
		a.openings = archive.NewCache(tier("openings", openings), log)
	}
	return a
}

func (a *archives) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
}
