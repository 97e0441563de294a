package cache

import (
	"context"
	"time"

	"pondokpos/backend/internal/domain"
)

// StockSummaryCache holds the pre-built low-stock report between stock
// mutations. Any write that changes a quantity must call Invalidate.
type StockSummaryCache interface {
	Get(ctx context.Context, key string) (*domain.LowStockReport, bool, error)
	Set(ctx context.Context, key string, value *domain.LowStockReport, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type NoopStockSummaryCache struct{}

func (NoopStockSummaryCache) Get(_ context.Context, _ string) (*domain.LowStockReport, bool, error) {
	return nil, false, nil
}

func (NoopStockSummaryCache) Set(_ context.Context, _ string, _ *domain.LowStockReport, _ time.Duration) error {
	return nil
}

func (NoopStockSummaryCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
