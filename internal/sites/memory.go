package sites

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemorySiteRepository keeps sites in memory.
type MemorySiteRepository struct {
	mu    sync.RWMutex
	sites map[string]*Site
}

// NewMemorySiteRepository constructs an empty repository.
func NewMemorySiteRepository() *MemorySiteRepository {
	return &MemorySiteRepository{sites: make(map[string]*Site)}
}

func (r *MemorySiteRepository) Create(_ context.Context, site *Site) (*Site, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sites[site.SiteID] = cloneSite(site)
	return cloneSite(site), nil
}

func (r *MemorySiteRepository) Update(_ context.Context, site *Site) (*Site, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sites[site.SiteID]; !ok {
		return nil, &NotFoundError{Resource: "site", Key: site.SiteID}
	}
	r.sites[site.SiteID] = cloneSite(site)
	return cloneSite(site), nil
}

func (r *MemorySiteRepository) GetBySiteID(_ context.Context, siteID string) (*Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	site, ok := r.sites[siteID]
	if !ok {
		return nil, &NotFoundError{Resource: "site", Key: siteID}
	}
	return cloneSite(site), nil
}

func (r *MemorySiteRepository) List(_ context.Context) ([]*Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Site, 0, len(r.sites))
	for _, site := range r.sites {
		out = append(out, cloneSite(site))
	}
	slices.SortFunc(out, func(a, b *Site) int { return strings.Compare(a.SiteID, b.SiteID) })
	return out, nil
}

func cloneSite(site *Site) *Site {
	if site == nil {
		return nil
	}
	out := *site
	return &out
}
