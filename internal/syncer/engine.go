package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/poail0-cell/duels-analyzer-1/internal/duels"
	"github.com/poail0-cell/duels-analyzer-1/internal/geoguessr"
	"github.com/poail0-cell/duels-analyzer-1/internal/store"
)

// Source is the remote game source the engine reconciles against.
type Source interface {
	// ListRecentGameIDs returns up to limit game ids, newest first; limit
	// <= 0 means the full remote history.
	ListRecentGameIDs(ctx context.Context, limit int) ([]string, error)
	FetchGame(ctx context.Context, id string) (*duels.GameRecord, error)
}

// Backup receives the merged snapshot after a successful persist. Optional.
type Backup interface {
	Backup(ctx context.Context, cache *duels.Cache) error
}

// SkippedGame records one id that could not be fetched this cycle.
type SkippedGame struct {
	GameID string `json:"game_id"`
	Reason string `json:"reason"`
}

// Report describes what one sync cycle changed. The skip list is always
// populated, never silently dropped: a partial dataset must not be mistaken
// for a complete one.
type Report struct {
	ID            string        `json:"id"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
	AlreadyCached int           `json:"already_cached"`
	NewlyFetched  int           `json:"newly_fetched"`
	Skipped       []SkippedGame `json:"skipped"`
}

// Engine reconciles the record store against the remote source: it computes
// the set of ids the store has never seen, fetches only those, and persists
// the successful batch in a single append. Callers serialize cycles; the
// engine holds no cache state of its own.
type Engine struct {
	source Source
	store  store.RecordStore
	backup Backup
	logger *slog.Logger
}

type Option func(*Engine)

// WithBackup uploads a snapshot after each cycle that persisted something.
// Backup failures are logged, never fatal.
func WithBackup(b Backup) Option {
	return func(e *Engine) { e.backup = b }
}

func New(source Source, st store.RecordStore, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{source: source, store: st, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sync runs one incremental cycle bounded by window, the maximum number of
// recent ids to consider. The window caps worst-case work per cycle; history
// older than the window is only reachable through FullResync.
func (e *Engine) Sync(ctx context.Context, cache *duels.Cache, window int) (*duels.Cache, *Report, error) {
	if window <= 0 {
		return nil, nil, fmt.Errorf("sync window must be positive, got %d", window)
	}
	return e.run(ctx, cache, window)
}

// FullResync walks the entire remote history. Explicitly invoked, never the
// default path: it exists to backfill games that fell outside the window.
func (e *Engine) FullResync(ctx context.Context, cache *duels.Cache) (*duels.Cache, *Report, error) {
	return e.run(ctx, cache, 0)
}

func (e *Engine) run(ctx context.Context, cache *duels.Cache, window int) (*duels.Cache, *Report, error) {
	report := &Report{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Skipped:   []SkippedGame{},
	}

	ids, err := e.source.ListRecentGameIDs(ctx, window)
	if err != nil {
		return nil, nil, fmt.Errorf("list remote games: %w", err)
	}

	var missing []string
	for _, id := range ids {
		if cache.Has(id) {
			report.AlreadyCached++
			continue
		}
		missing = append(missing, id)
	}
	e.logger.Info("sync cycle started",
		"report_id", report.ID, "listed", len(ids),
		"already_cached", report.AlreadyCached, "missing", len(missing))

	var fetched []duels.GameRecord
	for _, id := range missing {
		if err := ctx.Err(); err != nil {
			// Abort between fetches: nothing has been persisted yet,
			// so the store is untouched.
			return nil, nil, err
		}

		rec, err := e.source.FetchGame(ctx, id)
		if err != nil {
			if errors.Is(err, geoguessr.ErrAuth) {
				// Terminal for the cycle; re-authentication happens
				// above this layer.
				return nil, nil, err
			}
			// One bad game must not block the rest of the batch.
			e.logger.Warn("skipping game", "game_id", id, "error", err)
			report.Skipped = append(report.Skipped, SkippedGame{GameID: id, Reason: err.Error()})
			continue
		}
		fetched = append(fetched, *rec)
	}

	next := cache
	if len(fetched) > 0 {
		// One append for the whole batch keeps the atomicity unit at
		// "one sync cycle".
		next, err = e.store.Append(ctx, cache, fetched)
		if err != nil {
			return nil, nil, fmt.Errorf("persist fetched games: %w", err)
		}
		if e.backup != nil {
			if err := e.backup.Backup(ctx, next); err != nil {
				e.logger.Warn("snapshot backup failed", "error", err)
			}
		}
	}

	report.NewlyFetched = len(fetched)
	report.FinishedAt = time.Now().UTC()
	e.logger.Info("sync cycle finished",
		"report_id", report.ID, "newly_fetched", report.NewlyFetched,
		"skipped", len(report.Skipped))
	return next, report, nil
}
