package publishing

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/identity"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/urlgen"
)

const maxSlugAttempts = 25

// NewEntryRecordRepository creates the generic repository for publish entries.
func NewEntryRecordRepository(db *bun.DB) repository.Repository[*Entry] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Entry]{
		NewRecord:          func() *Entry { return &Entry{} },
		GetID:              func(entry *Entry) uuid.UUID { return entry.ID },
		SetID:              func(entry *Entry, id uuid.UUID) { entry.ID = id },
		GetIdentifier:      func() string { return "id" },
		GetIdentifierValue: func(entry *Entry) string { return entry.ID.String() },
	})
}

// NewPublicationRecordRepository creates the generic repository for publications.
func NewPublicationRecordRepository(db *bun.DB) repository.Repository[*Publication] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Publication]{
		NewRecord:          func() *Publication { return &Publication{} },
		GetID:              func(p *Publication) uuid.UUID { return p.ID },
		SetID:              func(p *Publication, id uuid.UUID) { p.ID = id },
		GetIdentifier:      func() string { return "id" },
		GetIdentifierValue: func(p *Publication) string { return p.ID.String() },
	})
}

// BunEntryRepository implements EntryRepository with optional caching.
type BunEntryRepository struct {
	repo repository.Repository[*Entry]
}

// NewBunEntryRepository creates an entry repository without caching.
func NewBunEntryRepository(db *bun.DB) *BunEntryRepository {
	return NewBunEntryRepositoryWithCache(db, nil, nil)
}

// NewBunEntryRepositoryWithCache creates an entry repository with caching support.
func NewBunEntryRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunEntryRepository {
	base := NewEntryRecordRepository(db)
	if cacheService != nil && serializer != nil {
		base = repositorycache.New(base, cacheService, serializer)
	}
	return &BunEntryRepository{repo: base}
}

func (r *BunEntryRepository) Create(ctx context.Context, entry *Entry) (*Entry, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	record, err := r.repo.Create(ctx, entry)
	if err != nil {
		return nil, mapRepositoryError(err, "publish_entry", entry.ID.String())
	}
	return record, nil
}

func (r *BunEntryRepository) Update(ctx context.Context, entry *Entry) (*Entry, error) {
	record, err := r.repo.Update(ctx, entry, repository.UpdateByID(entry.ID.String()))
	if err != nil {
		return nil, mapRepositoryError(err, "publish_entry", entry.ID.String())
	}
	return record, nil
}

func (r *BunEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	record, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, "publish_entry", id.String())
	}
	return record, nil
}

func (r *BunEntryRepository) ListByCampaign(ctx context.Context, campaignID string, statuses ...Status) ([]*Entry, error) {
	filter := repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("?TableAlias.campaign_id = ?", campaignID)
		if len(statuses) > 0 {
			q = q.Where("?TableAlias.status IN (?)", bun.In(statuses))
		}
		return q.OrderExpr("?TableAlias.created_at ASC, ?TableAlias.position ASC")
	})
	records, _, err := r.repo.List(ctx, filter)
	if err != nil {
		return nil, mapRepositoryError(err, "publish_entry", campaignID)
	}
	return records, nil
}

func (r *BunEntryRepository) LatestKeyword(ctx context.Context, siteID string) (string, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.site_id = ?", siteID).
				Where("?TableAlias.status = ?", StatusPublished).
				OrderExpr("?TableAlias.updated_at DESC")
		}),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return "", mapRepositoryError(err, "publish_entry", siteID)
	}
	if len(records) == 0 {
		return "", &NotFoundError{Resource: "publish_entry", Key: siteID}
	}
	return records[0].Keyword, nil
}

// BunPublicationRepository implements PublicationRepository. Publications
// are written once so the cache only serves reads.
type BunPublicationRepository struct {
	repo repository.Repository[*Publication]
}

// NewBunPublicationRepository creates a publication repository without caching.
func NewBunPublicationRepository(db *bun.DB) *BunPublicationRepository {
	return NewBunPublicationRepositoryWithCache(db, nil, nil)
}

// NewBunPublicationRepositoryWithCache creates a publication repository with caching support.
func NewBunPublicationRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunPublicationRepository {
	base := NewPublicationRecordRepository(db)
	if cacheService != nil && serializer != nil {
		base = repositorycache.New(base, cacheService, serializer)
	}
	return &BunPublicationRepository{repo: base}
}

func (r *BunPublicationRepository) Publish(ctx context.Context, publication *Publication) (*Publication, error) {
	record := clonePublication(publication)
	taken, err := r.ListSlugs(ctx, record.SiteID)
	if err != nil {
		return nil, err
	}
	used := make(map[string]struct{}, len(taken))
	for _, slug := range taken {
		used[slug] = struct{}{}
	}

	base := record.Slug
	n := 0
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		for {
			if _, exists := used[record.Slug]; !exists {
				break
			}
			n++
			record.withSlug(nextSlug(base, n))
		}
		record.ID = identity.PublicationUUID(record.SiteID, record.Slug)
		created, err := r.repo.Create(ctx, record)
		if err == nil {
			return created, nil
		}
		if !isUniqueViolation(err) {
			return nil, mapRepositoryError(err, "publication", record.SiteID+"/"+record.Slug)
		}
		// Another writer took the slug between the lookup and the insert.
		used[record.Slug] = struct{}{}
	}
	return nil, fmt.Errorf("publication repository error: no free slug for %q on site %s", base, record.SiteID)
}

func (r *BunPublicationRepository) GetBySlug(ctx context.Context, siteID, slug string) (*Publication, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.site_id = ?", siteID)
		}),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.slug = ?", slug)
		}),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &NotFoundError{Resource: "publication", Key: siteID + "/" + slug}
	}
	return records[0], nil
}

func (r *BunPublicationRepository) GetByEntry(ctx context.Context, entryID uuid.UUID) (*Publication, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.entry_id = ?", entryID)
		}),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, mapRepositoryError(err, "publication", entryID.String())
	}
	if len(records) == 0 {
		return nil, &NotFoundError{Resource: "publication", Key: entryID.String()}
	}
	return records[0], nil
}

func (r *BunPublicationRepository) ListBySite(ctx context.Context, siteID string) ([]*Publication, error) {
	records, _, err := r.repo.List(ctx, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.site_id = ?", siteID).OrderExpr("?TableAlias.published_at ASC")
	}))
	return records, err
}

func (r *BunPublicationRepository) ListSlugs(ctx context.Context, siteID string) ([]string, error) {
	records, err := r.ListBySite(ctx, siteID)
	if err != nil {
		return nil, mapRepositoryError(err, "publication", siteID)
	}
	slugs := make([]string, 0, len(records))
	for _, record := range records {
		slugs = append(slugs, record.Slug)
	}
	return slugs, nil
}

func (r *BunPublicationRepository) ListPublished(ctx context.Context) ([]urlgen.PublishedRef, error) {
	records, _, err := r.repo.List(ctx)
	if err != nil {
		return nil, mapRepositoryError(err, "publication", "")
	}
	refs := make([]urlgen.PublishedRef, 0, len(records))
	for _, record := range records {
		refs = append(refs, urlgen.PublishedRef{SiteID: record.SiteID, Slug: record.Slug, URL: record.URL})
	}
	return refs, nil
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique") || strings.Contains(message, "duplicate key")
}

func mapRepositoryError(err error, resource, key string) error {
	if err == nil {
		return nil
	}
	if errors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{Resource: resource, Key: key}
	}
	return fmt.Errorf("%s repository error: %w", resource, err)
}
