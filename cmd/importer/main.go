package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/qnkhuat/chessreview/pkg"
	"github.com/qnkhuat/chessreview/pkg/archive"
	"github.com/qnkhuat/chessreview/pkg/config"
	"github.com/qnkhuat/chessreview/pkg/rules"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what every command needs, built from the global flags.
type env struct {
	cfg *config.Config
	log *zap.SugaredLogger
	out *progress
}

func setup(c *cli.Context, out io.Writer) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if u := c.String("user"); u != "" {
		cfg.Username = u
	}
	log, err := pkg.InitLog(cfg.Log.Path, "importer", cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, out: newProgress(out)}, nil
}

func newApp(out io.Writer) *cli.App {
	var e *env
	return &cli.App{
		Name:      "importer",
		Usage:     "maintain the game and opening archives",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to config.yaml"},
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "override the configured username"},
		},
		Before: func(c *cli.Context) error {
			var err error
			e, err = setup(c, out)
			return err
		},
		After: func(c *cli.Context) error {
			if e != nil {
				e.log.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "fetch",
				Usage:  "download new games of the user from lichess",
				Action: func(c *cli.Context) error { return fetch(c.Context, e) },
			},
			{
				Name:   "import-games",
				Usage:  "turn downloaded games into archive positions",
				Action: func(c *cli.Context) error { return importGames(c.Context, e) },
			},
			{
				Name:      "import-openings",
				Usage:     "import opening book chapters (DIR/book/chapter.json)",
				ArgsUsage: "DIR",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return errors.New("import-openings needs a directory")
					}
					return importOpenings(c.Context, e, c.Args().First())
				},
			},
			{
				Name:      "export",
				Usage:     "write aggregated archive statistics to a parquet file",
				ArgsUsage: "FILE",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return errors.New("export needs an output file")
					}
					return export(c.Context, e, c.Args().First())
				},
			},
		},
	}
}

func fetch(ctx context.Context, e *env) error {
	games, err := archive.OpenGameStore(e.cfg.Database.Games, e.cfg.Username)
	if err != nil {
		return err
	}
	defer games.Close()

	f := archive.NewFetcher(e.cfg.Lichess.URL, e.cfg.Lichess.Token, e.cfg.Username, games, e.log)
	n, err := f.Fetch(ctx, func(n int, date string) {
		e.out.update(n, 0, "fetched")
	})
	if errors.Is(err, archive.ErrNoUser) {
		return fmt.Errorf("%w: set username in config.yaml or pass --user", err)
	}
	if err != nil {
		e.out.warn("stopped after %d games", n)
		return err
	}
	e.out.done("fetched %d games", n)
	return nil
}

func importGames(ctx context.Context, e *env) error {
	games, err := archive.OpenGameStore(e.cfg.Database.Games, e.cfg.Username)
	if err != nil {
		return err
	}
	defer games.Close()

	im := archive.NewImporter(games, nil, rules.Standard{}, e.log)
	n, err := im.ImportRaw(ctx, func(done, total int) {
		e.out.update(done, total, "imported")
	})
	if err != nil {
		return err
	}
	e.out.done("imported %d games", n)
	return nil
}

func importOpenings(ctx context.Context, e *env, dir string) error {
	openings, err := archive.OpenOpeningStore(e.cfg.Database.Openings)
	if err != nil {
		return err
	}
	defer openings.Close()

	im := archive.NewImporter(nil, openings, rules.Standard{}, e.log)
	n, err := im.ImportOpenings(ctx, dir)
	if err != nil {
		return err
	}
	if n == 0 {
		e.out.warn("no new lines in %s", dir)
		return nil
	}
	e.out.done("imported %d lines", n)
	return nil
}

func export(ctx context.Context, e *env, path string) error {
	games, err := archive.OpenGameStore(e.cfg.Database.Games, e.cfg.Username)
	if err != nil {
		return err
	}
	defer games.Close()

	n, err := games.ExportParquet(ctx, path)
	if err != nil {
		return err
	}
	e.out.done("wrote %d rows to %s", n, path)
	return nil
}
