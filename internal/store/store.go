package store

import (
	"context"
	"errors"

	"github.com/poail0-cell/duels-analyzer-1/internal/duels"
)

var (
	// ErrCorrupt means durable state exists but cannot be parsed. Callers
	// must surface it to the operator instead of treating the cache as
	// empty, which would silently re-fetch and possibly lose history.
	ErrCorrupt = errors.New("record store is corrupt")
)

// RecordStore persists the append-only set of game records. Records are
// immutable once stored; there is no update or delete. Append is atomic with
// respect to process crash: after a restart either the old state or the fully
// updated state is observable, never a torn write.
type RecordStore interface {
	// Load reads the durable state into a cache snapshot. Absent state
	// yields an empty cache; unreadable state yields ErrCorrupt.
	Load(ctx context.Context) (*duels.Cache, error)

	// Append adds records to the snapshot and durably writes the result,
	// returning the new snapshot. A record whose game id is already
	// present is a logic bug and yields duels.ErrDuplicateGame.
	Append(ctx context.Context, cache *duels.Cache, records []duels.GameRecord) (*duels.Cache, error)
}
