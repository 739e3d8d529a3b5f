package sites

import (
	"context"
	"fmt"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NewSiteRecordRepository creates the generic repository for sites.
func NewSiteRecordRepository(db *bun.DB) repository.Repository[*Site] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Site]{
		NewRecord:          func() *Site { return &Site{} },
		GetID:              func(site *Site) uuid.UUID { return site.ID },
		SetID:              func(site *Site, id uuid.UUID) { site.ID = id },
		GetIdentifier:      func() string { return "site_id" },
		GetIdentifierValue: func(site *Site) string { return site.SiteID },
	})
}

// BunSiteRepository implements SiteRepository with optional caching.
type BunSiteRepository struct {
	repo repository.Repository[*Site]
}

// NewBunSiteRepository creates a site repository without caching.
func NewBunSiteRepository(db *bun.DB) *BunSiteRepository {
	return NewBunSiteRepositoryWithCache(db, nil, nil)
}

// NewBunSiteRepositoryWithCache creates a site repository with caching support.
func NewBunSiteRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunSiteRepository {
	base := NewSiteRecordRepository(db)
	if cacheService != nil && serializer != nil {
		base = repositorycache.New(base, cacheService, serializer)
	}
	return &BunSiteRepository{repo: base}
}

func (r *BunSiteRepository) Create(ctx context.Context, site *Site) (*Site, error) {
	record, err := r.repo.Create(ctx, site)
	if err != nil {
		return nil, mapRepositoryError(err, site.SiteID)
	}
	return record, nil
}

func (r *BunSiteRepository) Update(ctx context.Context, site *Site) (*Site, error) {
	record, err := r.repo.Update(ctx, site, repository.UpdateByID(site.ID.String()))
	if err != nil {
		return nil, mapRepositoryError(err, site.SiteID)
	}
	return record, nil
}

func (r *BunSiteRepository) GetBySiteID(ctx context.Context, siteID string) (*Site, error) {
	record, err := r.repo.GetByIdentifier(ctx, siteID)
	if err != nil {
		return nil, mapRepositoryError(err, siteID)
	}
	return record, nil
}

func (r *BunSiteRepository) List(ctx context.Context) ([]*Site, error) {
	records, _, err := r.repo.List(ctx, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.OrderExpr("?TableAlias.site_id ASC")
	}))
	return records, err
}

func mapRepositoryError(err error, key string) error {
	if err == nil {
		return nil
	}
	if errors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{Resource: "site", Key: key}
	}
	return fmt.Errorf("site repository error: %w", err)
}
