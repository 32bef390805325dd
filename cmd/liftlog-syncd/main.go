package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	liftlog "github.com/claude/liftlog"
	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/progression"
	"github.com/claude/liftlog/internal/remote"
	"github.com/claude/liftlog/internal/store"
	"github.com/claude/liftlog/internal/syncer"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one sync pass and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("liftlog-syncd starting", "version", Version)

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
	log.Info("local store opened", "path", cfg.Storage.Path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seeded, err := catalog.Seed(ctx, st, liftlog.DataFS)
	if err != nil {
		log.Error("catalog seed failed", "error", err)
		os.Exit(1)
	}
	if seeded > 0 {
		log.Info("exercise catalog seeded", "exercises", seeded)
	}

	// Catch up the day pointer before the first sync pass so rest-day
	// records queued by the clock ride along with it.
	clock := progression.New(st, log)
	if _, err := clock.Evaluate(ctx); err != nil {
		log.Error("progression check failed", "error", err)
		os.Exit(1)
	}

	rc := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.APIKey, cfg.Remote.Timeout())
	svc := syncer.New(st, rc, log)
	svc.RegisterDefaultHandlers()

	if *once {
		svc.BackgroundSync(ctx, cfg.Sync.UserID)
		status := svc.Status()
		if status.LastError != "" {
			log.Error("sync pass finished with errors", "error", status.LastError)
			os.Exit(1)
		}
		log.Info("sync pass complete", "synced", status.TotalSynced, "failed", status.TotalFailed)
		return
	}

	go svc.Run(ctx, cfg.Sync.Interval(), cfg.Sync.UserID)
	log.Info("background sync running", "interval", cfg.Sync.Interval(), "user", cfg.Sync.UserID)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)
	cancel()
}
