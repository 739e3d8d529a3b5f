package rotation

import (
	"context"
	"errors"
	"fmt"
)

// ErrVersionConflict is returned by StateRepository.Save when the stored
// version no longer matches the expected one.
var ErrVersionConflict = errors.New("rotation: state version conflict")

// StateRepository persists per-site rotation state. Save is a compare-and-swap
// upsert keyed by site id: expectedVersion 0 creates the row, any other value
// must match the stored version.
type StateRepository interface {
	Get(ctx context.Context, siteID string) (*State, error)
	Save(ctx context.Context, state *State, expectedVersion int64) (*State, error)
	Delete(ctx context.Context, siteID string) error
	TemplateUsage(ctx context.Context) (map[int]int, error)
}

// KeywordSource exposes the most recent keyword published for a site.
type KeywordSource interface {
	LatestKeyword(ctx context.Context, siteID string) (string, error)
}

// NotFoundError is returned when rotation state does not exist for a site.
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

// NotFound marks the error as a missing record for callers outside the package.
func (e *NotFoundError) NotFound() bool { return true }

// isNotFound also accepts not-found errors from other repositories, such as a
// KeywordSource backed by the entry store.
func isNotFound(err error) bool {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return true
	}
	var missing interface{ NotFound() bool }
	return errors.As(err, &missing) && missing.NotFound()
}
