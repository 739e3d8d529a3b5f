package publishing

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/identity"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/urlgen"
)

// MemoryEntryRepository keeps entries in memory.
type MemoryEntryRepository struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Entry
	order   []uuid.UUID
}

// NewMemoryEntryRepository constructs an empty entry repository.
func NewMemoryEntryRepository() *MemoryEntryRepository {
	return &MemoryEntryRepository{entries: make(map[uuid.UUID]*Entry)}
}

func (r *MemoryEntryRepository) Create(_ context.Context, entry *Entry) (*Entry, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[entry.ID]; !exists {
		r.order = append(r.order, entry.ID)
	}
	r.entries[entry.ID] = cloneEntry(entry)
	return cloneEntry(entry), nil
}

func (r *MemoryEntryRepository) Update(_ context.Context, entry *Entry) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[entry.ID]; !ok {
		return nil, &NotFoundError{Resource: "publish_entry", Key: entry.ID.String()}
	}
	r.entries[entry.ID] = cloneEntry(entry)
	return cloneEntry(entry), nil
}

func (r *MemoryEntryRepository) GetByID(_ context.Context, id uuid.UUID) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, &NotFoundError{Resource: "publish_entry", Key: id.String()}
	}
	return cloneEntry(entry), nil
}

func (r *MemoryEntryRepository) ListByCampaign(_ context.Context, campaignID string, statuses ...Status) ([]*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Entry
	for _, id := range r.order {
		entry := r.entries[id]
		if entry.CampaignID != campaignID {
			continue
		}
		if len(statuses) > 0 && !slices.Contains(statuses, entry.Status) {
			continue
		}
		out = append(out, cloneEntry(entry))
	}
	slices.SortStableFunc(out, compareEntries)
	return out, nil
}

func (r *MemoryEntryRepository) LatestKeyword(_ context.Context, siteID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *Entry
	for _, id := range r.order {
		entry := r.entries[id]
		if entry.SiteID != siteID || entry.Status != StatusPublished {
			continue
		}
		if latest == nil || !entry.UpdatedAt.Before(latest.UpdatedAt) {
			latest = entry
		}
	}
	if latest == nil {
		return "", &NotFoundError{Resource: "publish_entry", Key: siteID}
	}
	return latest.Keyword, nil
}

func compareEntries(a, b *Entry) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return a.Position - b.Position
}

func cloneEntry(entry *Entry) *Entry {
	if entry == nil {
		return nil
	}
	out := *entry
	return &out
}

// MemoryPublicationRepository keeps publications in memory.
type MemoryPublicationRepository struct {
	mu           sync.RWMutex
	publications []*Publication
}

// NewMemoryPublicationRepository constructs an empty publication repository.
func NewMemoryPublicationRepository() *MemoryPublicationRepository {
	return &MemoryPublicationRepository{}
}

func (r *MemoryPublicationRepository) Publish(_ context.Context, publication *Publication) (*Publication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record := clonePublication(publication)
	base := record.Slug
	for n := 1; r.hasSlugLocked(record.SiteID, record.Slug); n++ {
		record.withSlug(nextSlug(base, n))
	}
	record.ID = identity.PublicationUUID(record.SiteID, record.Slug)
	r.publications = append(r.publications, record)
	return clonePublication(record), nil
}

func (r *MemoryPublicationRepository) hasSlugLocked(siteID, slug string) bool {
	return slices.ContainsFunc(r.publications, func(p *Publication) bool {
		return p.SiteID == siteID && p.Slug == slug
	})
}

func (r *MemoryPublicationRepository) GetBySlug(_ context.Context, siteID, slug string) (*Publication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.publications {
		if p.SiteID == siteID && p.Slug == slug {
			return clonePublication(p), nil
		}
	}
	return nil, &NotFoundError{Resource: "publication", Key: siteID + "/" + slug}
}

func (r *MemoryPublicationRepository) GetByEntry(_ context.Context, entryID uuid.UUID) (*Publication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.publications {
		if p.EntryID == entryID {
			return clonePublication(p), nil
		}
	}
	return nil, &NotFoundError{Resource: "publication", Key: entryID.String()}
}

func (r *MemoryPublicationRepository) ListBySite(_ context.Context, siteID string) ([]*Publication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Publication
	for _, p := range r.publications {
		if p.SiteID == siteID {
			out = append(out, clonePublication(p))
		}
	}
	return out, nil
}

func (r *MemoryPublicationRepository) ListSlugs(ctx context.Context, siteID string) ([]string, error) {
	records, err := r.ListBySite(ctx, siteID)
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(records))
	for _, p := range records {
		slugs = append(slugs, p.Slug)
	}
	return slugs, nil
}

func (r *MemoryPublicationRepository) ListPublished(_ context.Context) ([]urlgen.PublishedRef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	refs := make([]urlgen.PublishedRef, 0, len(r.publications))
	for _, p := range r.publications {
		refs = append(refs, urlgen.PublishedRef{SiteID: p.SiteID, Slug: p.Slug, URL: p.URL})
	}
	return refs, nil
}

func clonePublication(p *Publication) *Publication {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}
