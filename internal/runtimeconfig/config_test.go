package runtimeconfig_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/formatter"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/rotation"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/runtimeconfig"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned unexpected error: %v", err)
	}
	if cfg.Pipeline.InterItemDelay != 2*time.Second || !cfg.Pipeline.PerformanceFeedback {
		t.Fatalf("unexpected pipeline defaults %+v", cfg.Pipeline)
	}
	if !cfg.Formatting.IncludeBacklink || cfg.Formatting.BacklinkPosition != formatter.PositionNatural {
		t.Fatalf("unexpected formatting defaults %+v", cfg.Formatting)
	}
}

func TestConfigValidate_RequiresLoggingProvider(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Logging.Provider = ""

	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrLoggingProviderRequired) {
		t.Fatalf("expected ErrLoggingProviderRequired, got %v", err)
	}
}

func TestConfigValidate_RejectsUnknownLoggingProvider(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Logging.Provider = "syslog"

	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrLoggingProviderUnknown) {
		t.Fatalf("expected ErrLoggingProviderUnknown, got %v", err)
	}
}

func TestConfigValidate_RejectsInvalidLoggingFormat(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Logging.Provider = "gologger"
	cfg.Logging.Format = "xml"

	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrLoggingFormatInvalid) {
		t.Fatalf("expected ErrLoggingFormatInvalid, got %v", err)
	}
}

func TestConfigValidate_StorageRules(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Storage.Provider = "bun"
	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrStorageDSNRequired) {
		t.Fatalf("expected ErrStorageDSNRequired, got %v", err)
	}

	cfg.Storage.DSN = "file::memory:?cache=shared"
	cfg.Storage.Driver = "mysql"
	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrStorageDriverUnknown) {
		t.Fatalf("expected ErrStorageDriverUnknown, got %v", err)
	}

	cfg = runtimeconfig.DefaultConfig()
	cfg.Cache.Enabled = true
	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrCacheRequiresBunStorage) {
		t.Fatalf("expected ErrCacheRequiresBunStorage, got %v", err)
	}

	cfg.Storage = runtimeconfig.StorageConfig{Provider: "bun", Driver: "postgres", DSN: "postgres://localhost/autopublish"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected cached bun storage to validate, got %v", err)
	}
}

func TestConfigValidate_PipelineAndRotation(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Pipeline.InterItemDelay = -time.Second
	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrPipelineDelayInvalid) {
		t.Fatalf("expected ErrPipelineDelayInvalid, got %v", err)
	}

	cfg = runtimeconfig.DefaultConfig()
	cfg.Rotation.Strategy = rotation.Strategy("round-robin")
	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrRotationStrategyUnknown) {
		t.Fatalf("expected ErrRotationStrategyUnknown, got %v", err)
	}

	cfg = runtimeconfig.DefaultConfig()
	cfg.Generation.Provider = "openai"
	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrGenerationProviderUnknown) {
		t.Fatalf("expected ErrGenerationProviderUnknown, got %v", err)
	}
}

func TestConfigValidate_Sites(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Sites = []interfaces.SiteMetadata{
		{SiteID: "a", Domain: "a.test"},
		{SiteID: "a", Domain: "b.test"},
	}
	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrSiteDuplicate) {
		t.Fatalf("expected ErrSiteDuplicate, got %v", err)
	}

	cfg.Sites = []interfaces.SiteMetadata{{SiteID: "a"}}
	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrSiteDomainRequired) {
		t.Fatalf("expected ErrSiteDomainRequired, got %v", err)
	}
}

func TestLoadOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autopublish.yaml")
	raw := `
logging:
  provider: gologger
  format: json
pipeline:
  inter_item_delay: 500ms
rotation:
  strategy: balanced
  template_pool: [1, 2, 3]
urls:
  include_date: true
sites:
  - site_id: solar-1
    domain: solar-one.test
    blog_enabled: true
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := runtimeconfig.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Provider != "gologger" || cfg.Logging.Level != "info" {
		t.Fatalf("expected overlay over defaults, got %+v", cfg.Logging)
	}
	if cfg.Pipeline.InterItemDelay != 500*time.Millisecond || !cfg.Pipeline.PerformanceFeedback {
		t.Fatalf("unexpected pipeline %+v", cfg.Pipeline)
	}
	if cfg.Rotation.Strategy != rotation.StrategyBalanced || len(cfg.Rotation.TemplatePool) != 3 {
		t.Fatalf("unexpected rotation %+v", cfg.Rotation)
	}
	if !cfg.URLs.IncludeDate {
		t.Fatal("expected include_date to be read")
	}
	if len(cfg.Sites) != 1 || !cfg.Sites[0].BlogEnabled || cfg.Sites[0].Domain != "solar-one.test" {
		t.Fatalf("unexpected sites %+v", cfg.Sites)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  provider: bun\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := runtimeconfig.Load(path); !errors.Is(err, runtimeconfig.ErrStorageDSNRequired) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := runtimeconfig.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected missing file error")
	}
}
