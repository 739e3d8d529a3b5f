package runtimeconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/formatter"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/rotation"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/urlgen"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

var ErrLoggingProviderRequired = errors.New("autopublish config: logging provider is required")
var ErrLoggingProviderUnknown = errors.New("autopublish config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("autopublish config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("autopublish config: logging format is invalid")

// ErrStorageProviderUnknown indicates a storage provider other than memory or bun.
var ErrStorageProviderUnknown = errors.New("autopublish config: storage provider is invalid")
var ErrStorageDriverUnknown = errors.New("autopublish config: storage driver is invalid")
var ErrStorageDSNRequired = errors.New("autopublish config: storage dsn is required for the bun provider")

// ErrCacheRequiresBunStorage ensures the repository cache only wraps database repositories.
var ErrCacheRequiresBunStorage = errors.New("autopublish config: repository cache requires bun storage")
var ErrCacheTTLInvalid = errors.New("autopublish config: cache ttl must be positive")

var ErrPipelineDelayInvalid = errors.New("autopublish config: inter-item delay must be zero or positive")
var ErrPipelineRetriesInvalid = errors.New("autopublish config: command retries must be zero or positive")
var ErrRotationStrategyUnknown = errors.New("autopublish config: rotation strategy is invalid")
var ErrBacklinkPositionUnknown = errors.New("autopublish config: backlink position is invalid")
var ErrGenerationProviderUnknown = errors.New("autopublish config: generation provider is invalid")
var ErrGenerationMaxTokensInvalid = errors.New("autopublish config: generation max tokens must be positive")
var ErrSiteIDRequired = errors.New("autopublish config: site id is required")
var ErrSiteDomainRequired = errors.New("autopublish config: site domain is required")
var ErrSiteDuplicate = errors.New("autopublish config: site id is duplicated")

// Config aggregates the settings of the publishing pipeline.
type Config struct {
	Logging    LoggingConfig             `yaml:"logging"`
	Cache      CacheConfig               `yaml:"cache"`
	Storage    StorageConfig             `yaml:"storage"`
	Pipeline   PipelineConfig            `yaml:"pipeline"`
	Rotation   rotation.Config           `yaml:"rotation"`
	Formatting formatter.Options         `yaml:"formatting"`
	URLs       urlgen.Options            `yaml:"urls"`
	Generation GenerationConfig          `yaml:"generation"`
	Sites      []interfaces.SiteMetadata `yaml:"sites"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `yaml:"provider"`
	Level     string   `yaml:"level"`
	Format    string   `yaml:"format"`
	AddSource bool     `yaml:"add_source"`
	Focus     []string `yaml:"focus"`
}

// CacheConfig captures repository cache toggles.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

// StorageConfig selects where entries, publications, rotation state and sites live.
type StorageConfig struct {
	Provider string `yaml:"provider"`
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
}

// PipelineConfig tunes the batch loop and the command layer.
type PipelineConfig struct {
	InterItemDelay      time.Duration `yaml:"inter_item_delay"`
	PerformanceFeedback bool          `yaml:"performance_feedback"`
	CommandTimeout      time.Duration `yaml:"command_timeout"`
	CommandRetries      int           `yaml:"command_retries"`
}

// GenerationConfig configures the content generator.
type GenerationConfig struct {
	Provider    string  `yaml:"provider"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// DefaultConfig returns in-memory storage, console logging and a disabled cache.
func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
		Cache: CacheConfig{
			DefaultTTL: time.Minute,
		},
		Storage: StorageConfig{
			Provider: "memory",
			Driver:   "sqlite",
		},
		Pipeline: PipelineConfig{
			InterItemDelay:      2 * time.Second,
			PerformanceFeedback: true,
			CommandTimeout:      10 * time.Minute,
		},
		Rotation: rotation.Config{
			Strategy: rotation.StrategySequential,
		},
		Formatting: formatter.DefaultOptions(),
		URLs:       urlgen.Options{},
		Generation: GenerationConfig{
			Provider:    "anthropic",
			APIKeyEnv:   "ANTHROPIC_API_KEY",
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   4096,
			Temperature: 0.7,
		},
	}
}

// Load reads a YAML file over DefaultConfig and validates the result.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("autopublish config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("autopublish config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	provider := normalize(cfg.Logging.Provider)
	if provider == "" {
		return ErrLoggingProviderRequired
	}
	if !isSupportedProvider(provider) {
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
	}
	if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if provider == "gologger" {
		if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}

	switch normalize(cfg.Storage.Provider) {
	case "", "memory":
		if cfg.Cache.Enabled {
			return ErrCacheRequiresBunStorage
		}
	case "bun":
		switch normalize(cfg.Storage.Driver) {
		case "sqlite", "sqlite3", "postgres", "pg":
		default:
			return fmt.Errorf("%w: %s", ErrStorageDriverUnknown, cfg.Storage.Driver)
		}
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return ErrStorageDSNRequired
		}
	default:
		return fmt.Errorf("%w: %s", ErrStorageProviderUnknown, cfg.Storage.Provider)
	}
	if cfg.Cache.Enabled && cfg.Cache.DefaultTTL <= 0 {
		return ErrCacheTTLInvalid
	}

	if cfg.Pipeline.InterItemDelay < 0 {
		return ErrPipelineDelayInvalid
	}
	if cfg.Pipeline.CommandRetries < 0 {
		return ErrPipelineRetriesInvalid
	}

	switch cfg.Rotation.Strategy {
	case "", rotation.StrategySequential, rotation.StrategyRandom, rotation.StrategyDomainBased,
		rotation.StrategyKeyword, rotation.StrategyBalanced, rotation.StrategyPerformance:
	default:
		return fmt.Errorf("%w: %s", ErrRotationStrategyUnknown, cfg.Rotation.Strategy)
	}

	switch cfg.Formatting.BacklinkPosition {
	case "", formatter.PositionNatural, formatter.PositionConclusion, formatter.PositionRandom:
	default:
		return fmt.Errorf("%w: %s", ErrBacklinkPositionUnknown, cfg.Formatting.BacklinkPosition)
	}

	switch normalize(cfg.Generation.Provider) {
	case "", "disabled", "none":
	case "anthropic":
		if cfg.Generation.MaxTokens <= 0 {
			return ErrGenerationMaxTokensInvalid
		}
	default:
		return fmt.Errorf("%w: %s", ErrGenerationProviderUnknown, cfg.Generation.Provider)
	}

	seen := make(map[string]struct{}, len(cfg.Sites))
	for i, site := range cfg.Sites {
		id := strings.TrimSpace(site.SiteID)
		if id == "" {
			return fmt.Errorf("%w: sites[%d]", ErrSiteIDRequired, i)
		}
		if strings.TrimSpace(site.Domain) == "" {
			return fmt.Errorf("%w: %s", ErrSiteDomainRequired, id)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s", ErrSiteDuplicate, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
