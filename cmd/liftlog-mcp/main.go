package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	liftlog "github.com/claude/liftlog"
	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/config"
	lmcp "github.com/claude/liftlog/internal/mcp"
	"github.com/claude/liftlog/internal/progression"
	"github.com/claude/liftlog/internal/remote"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/store"
	"github.com/claude/liftlog/internal/syncer"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// stdout carries the MCP protocol, so logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("liftlog-mcp starting", "version", Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	kv, err := store.OpenKV(cfg.Storage.Path)
	if err != nil {
		log.Error("failed to open local store", "error", err)
		os.Exit(1)
	}
	defer kv.Close()
	st := store.New(kv)

	ctx := context.Background()
	if _, err := catalog.Seed(ctx, st, liftlog.DataFS); err != nil {
		log.Error("catalog seed failed", "error", err)
		os.Exit(1)
	}

	clock := progression.New(st, log)
	if _, err := clock.Evaluate(ctx); err != nil {
		log.Error("progression check failed", "error", err)
		os.Exit(1)
	}

	rc := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.APIKey, cfg.Remote.Timeout())
	sess := session.New(st, log)
	svc := syncer.New(st, rc, log)
	svc.RegisterDefaultHandlers()

	s := lmcp.New(st, clock, sess, svc, cfg.Sync.UserID, Version, log)
	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
