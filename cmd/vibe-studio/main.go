package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/vibestudio/vibe-studio/src"
)

func main() {
	var (
		addr       = flag.String("addr", "", "listen address (overrides config)")
		configPath = flag.String("config", "config.yaml", "path to config file")
		statePath  = flag.String("state", "", "path to snapshot database (overrides config)")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := src.LoadConfig(*configPath)
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *statePath != "" {
		cfg.StatePath = *statePath
	}

	ctx := context.Background()
	router, err := cfg.BuildRouter(ctx)
	if err != nil {
		logger.Error("build providers", "err", err)
		os.Exit(1)
	}

	sess := src.NewSession()

	var store *src.SnapshotStore
	if cfg.StatePath != "" {
		store, err = src.OpenSnapshotStore(cfg.StatePath)
		if err != nil {
			logger.Error("open snapshot store", "err", err)
			os.Exit(1)
		}
		defer store.Close()
		if err := store.Load(sess); err != nil {
			logger.Warn("snapshot load failed", "err", err)
		}
	}

	srv := src.NewServer(router, sess, store, logger)
	logger.Info("vibe-studio listening", "addr", cfg.Addr, "files", sess.Corpus.Len())
	if err := http.ListenAndServe(cfg.Addr, srv.Routes()); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
