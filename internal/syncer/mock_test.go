package syncer

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/poail0-cell/duels-analyzer-1/internal/duels"
)

// MockSource is a mock implementation of Source
type MockSource struct {
	mock.Mock
}

func (m *MockSource) ListRecentGameIDs(ctx context.Context, limit int) ([]string, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSource) FetchGame(ctx context.Context, id string) (*duels.GameRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*duels.GameRecord), args.Error(1)
}

// MockBackup is a mock implementation of Backup
type MockBackup struct {
	mock.Mock
}

func (m *MockBackup) Backup(ctx context.Context, cache *duels.Cache) error {
	args := m.Called(ctx, cache)
	return args.Error(0)
}
