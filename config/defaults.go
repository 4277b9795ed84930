package config

import "time"

// Documented defaults applied by the resolver for omitted optional fields.
const (
	DefaultMaxSteps       = 3
	DefaultTimeoutSeconds = 300
	DefaultTemperature    = 0.3
	DefaultMaxTokens      = 2048
	DefaultTopK           = 5
	DefaultMaxSections    = 5
	DefaultConcurrency    = 3
)

// DefaultConfig returns the default top-level configuration.
func DefaultConfig() *Config {
	return &Config{
		Comparison: DefaultComparisonConfig(),
		Cache:      DefaultCacheConfig(),
		Archive:    DefaultArchiveConfig(),
		Log:        DefaultLogConfig(),
	}
}

// DefaultComparisonConfig returns the default comparison settings.
func DefaultComparisonConfig() ComparisonConfig {
	return ComparisonConfig{
		MaxConcurrency: DefaultConcurrency,
	}
}

// DefaultCacheConfig returns the default search cache settings.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      false,
		RedisAddr:    "",
		LocalMaxSize: 1000,
		LocalTTL:     5 * time.Minute,
		RedisTTL:     30 * time.Minute,
	}
}

// DefaultArchiveConfig returns the default run archive settings.
func DefaultArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		Enabled: false,
		Path:    "deepresearch.db",
	}
}

// DefaultLogConfig returns the default logging settings.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "json",
	}
}
