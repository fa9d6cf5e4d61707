package cache

import (
	"context"
	"time"

	"salesadmin/backend/internal/domain"
)

// RefDataCache stores reference-data snapshots between sessions so the
// editor does not hit the database for every open.
type RefDataCache interface {
	Get(ctx context.Context, key string) (*domain.ReferenceData, bool, error)
	Set(ctx context.Context, key string, value *domain.ReferenceData, ttl time.Duration) error
}

type NoopRefDataCache struct{}

func (NoopRefDataCache) Get(_ context.Context, _ string) (*domain.ReferenceData, bool, error) {
	return nil, false, nil
}

func (NoopRefDataCache) Set(_ context.Context, _ string, _ *domain.ReferenceData, _ time.Duration) error {
	return nil
}
