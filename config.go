package autopublish

import "github.com/belonio2793/backlinkoo-solar-system-sub002/internal/runtimeconfig"

var (
	ErrLoggingProviderRequired   = runtimeconfig.ErrLoggingProviderRequired
	ErrLoggingProviderUnknown    = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid       = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid      = runtimeconfig.ErrLoggingFormatInvalid
	ErrStorageProviderUnknown    = runtimeconfig.ErrStorageProviderUnknown
	ErrStorageDriverUnknown      = runtimeconfig.ErrStorageDriverUnknown
	ErrStorageDSNRequired        = runtimeconfig.ErrStorageDSNRequired
	ErrCacheRequiresBunStorage   = runtimeconfig.ErrCacheRequiresBunStorage
	ErrPipelineDelayInvalid      = runtimeconfig.ErrPipelineDelayInvalid
	ErrRotationStrategyUnknown   = runtimeconfig.ErrRotationStrategyUnknown
	ErrGenerationProviderUnknown = runtimeconfig.ErrGenerationProviderUnknown
	ErrSiteDomainRequired        = runtimeconfig.ErrSiteDomainRequired
	ErrSiteDuplicate             = runtimeconfig.ErrSiteDuplicate
)

type (
	Config           = runtimeconfig.Config
	LoggingConfig    = runtimeconfig.LoggingConfig
	CacheConfig      = runtimeconfig.CacheConfig
	StorageConfig    = runtimeconfig.StorageConfig
	PipelineConfig   = runtimeconfig.PipelineConfig
	GenerationConfig = runtimeconfig.GenerationConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig reads a YAML configuration file over the defaults.
func LoadConfig(path string) (Config, error) {
	return runtimeconfig.Load(path)
}
