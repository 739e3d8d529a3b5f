package publishing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/urlgen"
)

// EntryRepository persists publish entries.
type EntryRepository interface {
	Create(ctx context.Context, entry *Entry) (*Entry, error)
	Update(ctx context.Context, entry *Entry) (*Entry, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	// ListByCampaign returns entries ordered by creation time then batch position.
	ListByCampaign(ctx context.Context, campaignID string, statuses ...Status) ([]*Entry, error)
	// LatestKeyword returns the keyword of the site's most recently published entry.
	LatestKeyword(ctx context.Context, siteID string) (string, error)
}

// PublicationRepository stores publications and exposes the slug projection
// used by URL generation. Publish keeps (site, slug) unique by suffixing the
// slug, so the stored slug may differ from the proposed one.
type PublicationRepository interface {
	urlgen.SlugSource
	Publish(ctx context.Context, publication *Publication) (*Publication, error)
	GetBySlug(ctx context.Context, siteID, slug string) (*Publication, error)
	// GetByEntry returns the publication written for entryID, if any.
	GetByEntry(ctx context.Context, entryID uuid.UUID) (*Publication, error)
	ListBySite(ctx context.Context, siteID string) ([]*Publication, error)
}

// NotFoundError is returned when a record does not exist.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// NotFound lets other packages detect missing records without importing this one.
func (e *NotFoundError) NotFound() bool { return true }

func isNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func nextSlug(base string, n int) string {
	return fmt.Sprintf("%s-%d", base, n)
}
