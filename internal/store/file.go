package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poail0-cell/duels-analyzer-1/internal/duels"
)

// FileStore keeps the cache as a single JSON array of game records. Writes go
// through a temp file in the same directory followed by a rename, so a crash
// mid-write leaves the previous file intact.
type FileStore struct {
	path   string
	logger *slog.Logger
}

func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

func (s *FileStore) Load(ctx context.Context) (*duels.Cache, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.logger.Info("no cache file yet, starting empty", "path", s.path)
		return duels.NewCache()
	}
	if err != nil {
		return nil, fmt.Errorf("read cache %s: %w", s.path, err)
	}

	var records []duels.GameRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse cache %s: %w: %v", s.path, ErrCorrupt, err)
	}

	cache, err := duels.NewCache(records...)
	if err != nil {
		// Duplicate ids inside the file violate the store invariant.
		return nil, fmt.Errorf("cache %s: %w: %v", s.path, ErrCorrupt, err)
	}
	s.logger.Debug("cache loaded", "path", s.path, "games", cache.Len())
	return cache, nil
}

func (s *FileStore) Append(ctx context.Context, cache *duels.Cache, records []duels.GameRecord) (*duels.Cache, error) {
	next, err := cache.With(records...)
	if err != nil {
		return nil, err
	}
	if err := s.persist(next); err != nil {
		return nil, err
	}
	s.logger.Info("cache persisted", "path", s.path, "games", next.Len(), "appended", len(records))
	return next, nil
}

func (s *FileStore) persist(cache *duels.Cache) error {
	data, err := json.MarshalIndent(cache.Games(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".games-*.json")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace cache %s: %w", s.path, err)
	}
	return nil
}
