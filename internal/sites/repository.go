package sites

import (
	"context"
	"errors"
	"fmt"
)

// SiteRepository persists site metadata keyed by the external site id.
type SiteRepository interface {
	Create(ctx context.Context, site *Site) (*Site, error)
	Update(ctx context.Context, site *Site) (*Site, error)
	GetBySiteID(ctx context.Context, siteID string) (*Site, error)
	List(ctx context.Context) ([]*Site, error)
}

// NotFoundError is returned when a site does not exist.
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
