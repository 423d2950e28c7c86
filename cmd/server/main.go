package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qnkhuat/chessreview/pkg"
	"github.com/qnkhuat/chessreview/pkg/config"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := pkg.InitLog(cfg.Log.Path, "server", cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	var args []string
	if cfg.File() != "" {
		args = append(args, "-config", cfg.File())
	}
	s, err := pkg.NewServer(pkg.ServerOptions{
		Addr:    cfg.Server.Addr,
		HostKey: cfg.Server.HostKey,
		Binary:  cfg.Server.Binary,
		Args:    args,
	}, log)
	if err != nil {
		return err
	}

	l, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go func() {
		<-ctx.Done()
		log.Infow("shutting down")
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.Shutdown(shutdown)
	}()

	fmt.Printf("Listening on %s\n", l.Addr())
	return s.Serve(l)
}
