package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/poail0-cell/duels-analyzer-1/config"
	"github.com/poail0-cell/duels-analyzer-1/internal/geoguessr"
	"github.com/poail0-cell/duels-analyzer-1/internal/server"
	"github.com/poail0-cell/duels-analyzer-1/internal/stats"
	"github.com/poail0-cell/duels-analyzer-1/internal/store"
	"github.com/poail0-cell/duels-analyzer-1/internal/syncer"
)

const usage = `usage: analyzer <command>

commands:
  sync     fetch games missing from the local cache (bounded by FETCH_WINDOW)
  resync   walk the full remote history and backfill anything missing
  stats    print derived statistics for the cached games as JSON
  serve    expose sync and statistics over HTTP`

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; config falls back to real env vars.
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("no command given")
	}
	cmd := os.Args[1]
	switch cmd {
	case "sync", "resync", "stats", "serve":
	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// stats reads the existing cache and never touches the remote source,
	// so it runs without a session credential.
	if cmd == "stats" {
		return runStats(ctx, st, cfg.MinCountrySample, logger)
	}
	if err := cfg.RequireNCFAToken(); err != nil {
		return err
	}

	stopDate, err := cfg.ParsedStopDate()
	if err != nil {
		return err
	}
	client := geoguessr.NewClient(cfg.NCFAToken, cfg.HTTPTimeout, stopDate, logger)

	var opts []syncer.Option
	if cfg.BackupBucket != "" {
		backup, err := store.NewSnapshotBackup(ctx, cfg.BackupBucket, cfg.AWSRegion, logger)
		if err != nil {
			return err
		}
		opts = append(opts, syncer.WithBackup(backup))
	}
	engine := syncer.New(client, st, logger, opts...)

	switch cmd {
	case "sync":
		return runSync(ctx, engine, st, cfg.FetchWindow, false)
	case "resync":
		return runSync(ctx, engine, st, 0, true)
	default: // serve
		handler := server.NewHandler(engine, st, cfg.FetchWindow, cfg.MinCountrySample, logger)
		return server.New(cfg.Port, handler, logger).Run(ctx, cfg.ShutdownTimeout)
	}
}

func runSync(ctx context.Context, engine *syncer.Engine, st store.RecordStore, window int, full bool) error {
	cache, err := st.Load(ctx)
	if err != nil {
		return err
	}

	var report *syncer.Report
	if full {
		_, report, err = engine.FullResync(ctx, cache)
	} else {
		_, report, err = engine.Sync(ctx, cache, window)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func runStats(ctx context.Context, st store.RecordStore, minCountrySample int, logger *slog.Logger) error {
	cache, err := st.Load(ctx)
	if err != nil {
		return err
	}

	s := stats.Derive(cache, minCountrySample)
	if s.OmittedGames > 0 {
		logger.Warn("some cached games were malformed and excluded", "omitted_games", s.OmittedGames)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func newStore(cfg *config.Config, logger *slog.Logger) (store.RecordStore, func(), error) {
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() { pg.Close() }, nil
	}
	return store.NewFileStore(cfg.CachePath, logger), func() {}, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: lvl}))
}
