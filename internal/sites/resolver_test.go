package sites_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/identity"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/sites"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/testsupport"
)

func TestMemoryResolver(t *testing.T) {
	exerciseResolver(t, sites.NewMemorySiteRepository())
}

func TestBunResolver(t *testing.T) {
	db := testsupport.NewBunDB(t, (*sites.Site)(nil))
	exerciseResolver(t, sites.NewBunSiteRepository(db))
}

func exerciseResolver(t *testing.T, repo sites.SiteRepository) {
	t.Helper()
	ctx := context.Background()
	clock := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	resolver := sites.NewResolver(repo, sites.WithNow(func() time.Time { return clock }))

	if _, err := resolver.Register(ctx, interfaces.SiteMetadata{SiteID: "alpha", Domain: "alpha.test", BlogEnabled: true}); err != nil {
		t.Fatalf("register alpha: %v", err)
	}
	if _, err := resolver.Register(ctx, interfaces.SiteMetadata{SiteID: "beta", Domain: "beta.test"}); err != nil {
		t.Fatalf("register beta: %v", err)
	}

	clock = clock.Add(time.Hour)
	updated, err := resolver.Register(ctx, interfaces.SiteMetadata{
		SiteID:        "alpha",
		Domain:        "alpha.test",
		Subdomain:     "blog",
		SelectedTheme: "Modern Business",
		BlogEnabled:   true,
		SSLDisabled:   true,
	})
	if err != nil {
		t.Fatalf("re-register alpha: %v", err)
	}
	if updated.Subdomain != "blog" || !updated.SSLDisabled {
		t.Fatalf("expected update to replace metadata, got %+v", updated)
	}

	alpha, err := resolver.Resolve(ctx, "alpha")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if alpha.SelectedTheme != "Modern Business" || !alpha.BlogEnabled {
		t.Fatalf("unexpected metadata %+v", alpha)
	}

	stored, err := repo.GetBySiteID(ctx, "alpha")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.ID != identity.SiteUUID("alpha") || !stored.CreatedAt.Before(stored.UpdatedAt) {
		t.Fatalf("expected stable id and preserved creation time, got %+v", stored)
	}

	all, err := resolver.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].SiteID != "alpha" || all[1].BlogEnabled {
		t.Fatalf("unexpected list %+v", all)
	}

	var nf *sites.NotFoundError
	if _, err := resolver.Resolve(ctx, "missing"); !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := resolver.Resolve(ctx, " "); !errors.Is(err, sites.ErrSiteIDRequired) {
		t.Fatalf("expected site id error, got %v", err)
	}
	if _, err := resolver.Register(ctx, interfaces.SiteMetadata{SiteID: "gamma"}); !errors.Is(err, sites.ErrDomainRequired) {
		t.Fatalf("expected domain error, got %v", err)
	}
}
