package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nv4818/webtrack/internal/config"
	"github.com/nv4818/webtrack/internal/core"
	"github.com/nv4818/webtrack/internal/daemon"
	"github.com/nv4818/webtrack/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	socketPath := flag.String("socket", "", "override control socket path")
	dbPath := flag.String("db", "", "override SQLite path")
	peerPort := flag.Int("peer-port", 0, "override desktop app port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	if *socketPath != "" {
		cfg.SocketPath = *socketPath
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *peerPort != 0 {
		cfg.PeerPort = *peerPort
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		fatal(err)
	}
	defer st.Close() //nolint:errcheck

	if err := store.ApplyMigrations(ctx, st.DB()); err != nil {
		fatal(err)
	}

	c := core.New(cfg, st, core.Options{})
	if err := c.Start(ctx); err != nil {
		fatal(err)
	}
	defer c.Stop()

	srv := daemon.NewServer(cfg, c)
	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fatal(err)
	}
}

func fatal(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "webtrackd: %v\n", err)
	os.Exit(1)
}
