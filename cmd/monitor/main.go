package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"torznab_monitor/internal/config"
	"torznab_monitor/internal/diff"
	"torznab_monitor/internal/feed"
	"torznab_monitor/internal/mapping"
	"torznab_monitor/internal/notifier"
	"torznab_monitor/internal/scheduler"
	"torznab_monitor/internal/storage"
)

type options struct {
	Config      string `short:"c" long:"config" env:"CONFIG_PATH" default:"config/config.json" description:"Path to the main configuration file"`
	Mapping     string `short:"m" long:"mapping" env:"MAPPING_PATH" default:"config/notification_mapping.json" description:"Path to the notification mapping file"`
	Database    string `long:"db" env:"DATABASE_PATH" default:"./data/monitor.db" description:"Path to the seen-items database"`
	Debug       bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	SkipInitial bool   `long:"skip-initial" env:"SKIP_INITIAL" description:"Record each endpoint's first fetch as seen without notifying"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}

	log := newLogger(opts.Debug)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		log.Error("load config", "path", opts.Config, "error", err)
		os.Exit(1)
	}

	mappings, err := mapping.Load(opts.Mapping)
	if err != nil {
		log.Error("load notification mapping", "path", opts.Mapping, "error", err)
		os.Exit(1)
	}

	for _, ep := range cfg.Endpoints {
		if _, ok := mappings.Ruleset(mapping.KeyFor(ep.Name)); !ok {
			log.Error("endpoint has no notification mapping", "endpoint", ep.Name, "mapping", mapping.KeyFor(ep.Name))
			os.Exit(1)
		}
		if ep.PollInterval < time.Minute {
			log.Warn("poll interval below one minute, this might be too aggressive", "endpoint", ep.Name, "interval", ep.PollInterval)
		}
	}

	if dir := filepath.Dir(opts.Database); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(opts.Database)
	if err != nil {
		log.Error("open database", "path", opts.Database, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	client := &http.Client{}
	sender := notifier.New(client, cfg.Gateway.URL, cfg.Gateway.APIKey, cfg.Gateway.ChannelID)
	engine := diff.NewEngine(store, log)

	sched := scheduler.New(cfg.Endpoints, feed.NewFetcher(client), engine, mappings, sender, log, opts.SkipInitial)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting torznab monitor", "endpoints", len(cfg.Endpoints))

	sched.Run(ctx)

	log.Info("torznab monitor stopped")
}

func newLogger(debug bool) *slog.Logger {
	lvl := slog.LevelInfo
	if debug {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
