package autopublish_test

import (
	"errors"
	"testing"

	autopublish "github.com/belonio2793/backlinkoo-solar-system-sub002"
)

func TestConfigValidateRejectsCacheWithoutDatabase(t *testing.T) {
	cfg := autopublish.DefaultConfig()
	cfg.Cache.Enabled = true

	if err := cfg.Validate(); !errors.Is(err, autopublish.ErrCacheRequiresBunStorage) {
		t.Fatalf("expected ErrCacheRequiresBunStorage, got %v", err)
	}
}

func TestConfigValidateRejectsUnknownStrategy(t *testing.T) {
	cfg := autopublish.DefaultConfig()
	cfg.Rotation.Strategy = "weighted"

	if err := cfg.Validate(); !errors.Is(err, autopublish.ErrRotationStrategyUnknown) {
		t.Fatalf("expected ErrRotationStrategyUnknown, got %v", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := autopublish.DefaultConfig()
	cfg.Sites = []autopublish.SiteMetadata{{SiteID: "only-id"}}

	if _, err := autopublish.New(cfg); !errors.Is(err, autopublish.ErrSiteDomainRequired) {
		t.Fatalf("expected ErrSiteDomainRequired, got %v", err)
	}
}
