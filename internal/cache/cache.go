package cache

import (
	"context"
	"time"

	"tokoku/backend/internal/domain"
)

// StockCache holds per-store stock list snapshots. Implementations may lose
// entries at any time; callers always fall back to the repository.
type StockCache interface {
	Get(ctx context.Context, userID, storeID string) ([]domain.StockEntry, bool, error)
	Set(ctx context.Context, userID, storeID string, entries []domain.StockEntry, ttl time.Duration) error
	Invalidate(ctx context.Context, userID, storeID string) error
}

type NoopStockCache struct{}

func (NoopStockCache) Get(_ context.Context, _, _ string) ([]domain.StockEntry, bool, error) {
	return nil, false, nil
}

func (NoopStockCache) Set(_ context.Context, _, _ string, _ []domain.StockEntry, _ time.Duration) error {
	return nil
}

func (NoopStockCache) Invalidate(_ context.Context, _, _ string) error {
	return nil
}
