package identity

import (
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// UUID derives a deterministic UUID from a stable key using go-hashid.
//
// Callers must ensure key construction prevents cross-entity collisions (prefix by domain/type).
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// PublicationUUID identifies the publication stored for a slug on a site.
func PublicationUUID(siteID, slug string) uuid.UUID {
	return UUID("autopublish:publication:" + strings.TrimSpace(siteID) + ":" + strings.ToLower(strings.TrimSpace(slug)))
}

// SiteUUID identifies a site record by its external site id.
func SiteUUID(siteID string) uuid.UUID {
	return UUID("autopublish:site:" + strings.TrimSpace(siteID))
}
