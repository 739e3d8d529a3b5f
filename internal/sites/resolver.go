package sites

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/identity"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

var (
	ErrSiteIDRequired = errors.New("sites: site id required")
	ErrDomainRequired = errors.New("sites: domain required")
)

// Resolver serves site metadata from a SiteRepository.
type Resolver struct {
	repo SiteRepository
	now  func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithNow overrides the clock used for record timestamps.
func WithNow(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver wraps repo.
func NewResolver(repo SiteRepository, opts ...ResolverOption) *Resolver {
	r := &Resolver{repo: repo, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

var _ interfaces.SiteResolver = (*Resolver)(nil)

func (r *Resolver) Resolve(ctx context.Context, siteID string) (*interfaces.SiteMetadata, error) {
	siteID = strings.TrimSpace(siteID)
	if siteID == "" {
		return nil, ErrSiteIDRequired
	}
	site, err := r.repo.GetBySiteID(ctx, siteID)
	if err != nil {
		return nil, err
	}
	return site.Metadata(), nil
}

// Register creates or replaces the metadata of a site.
func (r *Resolver) Register(ctx context.Context, meta interfaces.SiteMetadata) (*interfaces.SiteMetadata, error) {
	meta.SiteID = strings.TrimSpace(meta.SiteID)
	meta.Domain = strings.TrimSpace(meta.Domain)
	switch {
	case meta.SiteID == "":
		return nil, ErrSiteIDRequired
	case meta.Domain == "":
		return nil, fmt.Errorf("%w: %s", ErrDomainRequired, meta.SiteID)
	}

	now := r.now().UTC()
	record := FromMetadata(meta)
	record.ID = identity.SiteUUID(meta.SiteID)
	record.UpdatedAt = now

	existing, err := r.repo.GetBySiteID(ctx, meta.SiteID)
	switch {
	case err == nil:
		record.CreatedAt = existing.CreatedAt
		record.ID = existing.ID
		stored, err := r.repo.Update(ctx, record)
		if err != nil {
			return nil, err
		}
		return stored.Metadata(), nil
	case isNotFound(err):
		record.CreatedAt = now
		stored, err := r.repo.Create(ctx, record)
		if err != nil {
			return nil, err
		}
		return stored.Metadata(), nil
	default:
		return nil, err
	}
}

// List returns the metadata of every registered site.
func (r *Resolver) List(ctx context.Context) ([]*interfaces.SiteMetadata, error) {
	records, err := r.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*interfaces.SiteMetadata, 0, len(records))
	for _, record := range records {
		out = append(out, record.Metadata())
	}
	return out, nil
}
