package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/poail0-cell/duels-analyzer-1/internal/duels"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore keeps each game as a jsonb row, preserving full round-level
// fidelity and unknown fields on round-trip. The batch insert runs in one
// transaction, which gives the same crash atomicity as the file store's
// rename.
type PostgresStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewPostgresStore(databaseURL string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &PostgresStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratepg.WithInstance(s.db.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("prepare migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("prepare migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Load(ctx context.Context) (*duels.Cache, error) {
	var payloads [][]byte
	err := s.db.SelectContext(ctx, &payloads,
		`SELECT payload FROM games ORDER BY started_at, id`)
	if err != nil {
		return nil, fmt.Errorf("load games: %w", err)
	}

	records := make([]duels.GameRecord, 0, len(payloads))
	for _, p := range payloads {
		var rec duels.GameRecord
		if err := json.Unmarshal(p, &rec); err != nil {
			return nil, fmt.Errorf("parse stored game: %w: %v", ErrCorrupt, err)
		}
		records = append(records, rec)
	}

	cache, err := duels.NewCache(records...)
	if err != nil {
		return nil, fmt.Errorf("load games: %w: %v", ErrCorrupt, err)
	}
	s.logger.Debug("cache loaded", "games", cache.Len())
	return cache, nil
}

func (s *PostgresStore) Append(ctx context.Context, cache *duels.Cache, records []duels.GameRecord) (*duels.Cache, error) {
	next, err := cache.With(records...)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("encode game %s: %w", rec.GameID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO games (id, started_at, payload) VALUES ($1, $2, $3)`,
			rec.GameID, rec.StartedAt, payload)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return nil, fmt.Errorf("game %s: %w", rec.GameID, duels.ErrDuplicateGame)
			}
			return nil, fmt.Errorf("insert game %s: %w", rec.GameID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit append: %w", err)
	}
	s.logger.Info("cache persisted", "games", next.Len(), "appended", len(records))
	return next, nil
}
