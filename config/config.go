// Package config defines the declarative research configuration, the
// YAML/env loader, and the resolver that turns a raw Configuration into an
// immutable ExecutionPlan.
//
// Precedence: defaults -> YAML file -> environment variables.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ReportFormat selects the serialization format of the final report.
type ReportFormat string

const (
	FormatMarkdown ReportFormat = "markdown"
	FormatJSON     ReportFormat = "json"
)

// Configuration is one user-supplied research backend configuration.
// It pairs a model provider with a search provider and bounds the run.
// Immutable once resolved into an ExecutionPlan.
type Configuration struct {
	// Name identifies the configuration in comparisons and exports.
	Name string `yaml:"name" env:"NAME"`
	// ModelProvider is the generate-capable backend id (e.g. "openai").
	ModelProvider string `yaml:"model_provider" env:"MODEL_PROVIDER"`
	// ModelName is the provider-specific model identifier.
	ModelName string `yaml:"model_name" env:"MODEL_NAME"`
	// SearchProvider is the search-capable backend id (e.g. "tavily").
	SearchProvider string `yaml:"search_provider" env:"SEARCH_PROVIDER"`
	// SearchParams carries provider-specific search options.
	SearchParams map[string]string `yaml:"search_params" env:"-"`
	// MaxSteps bounds the number of research steps. Must be positive.
	MaxSteps int `yaml:"max_steps" env:"MAX_STEPS"`
	// ReportFormat is markdown or json.
	ReportFormat ReportFormat `yaml:"report_format" env:"REPORT_FORMAT"`
	// Rubric maps metric names to weights. Empty means the default rubric.
	Rubric map[string]float64 `yaml:"rubric" env:"-"`
	// TimeoutSeconds is the wall-clock budget for one session.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"TIMEOUT_SECONDS"`
	// Temperature for generate calls.
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// MaxTokens caps a single generate response.
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
	// TopK is the number of sources requested per search call.
	TopK int `yaml:"top_k" env:"TOP_K"`
	// MaxSections caps the number of report sections.
	MaxSections int `yaml:"max_sections" env:"MAX_SECTIONS"`
}

// ComparisonConfig bounds the concurrent execution of configurations.
type ComparisonConfig struct {
	// MaxConcurrency is the number of pipelines run in parallel.
	MaxConcurrency int `yaml:"max_concurrency" env:"MAX_CONCURRENCY"`
}

// CacheConfig configures the search result cache.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled" env:"ENABLED"`
	RedisAddr    string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisDB      int           `yaml:"redis_db" env:"REDIS_DB"`
	LocalMaxSize int           `yaml:"local_max_size" env:"LOCAL_MAX_SIZE"`
	LocalTTL     time.Duration `yaml:"local_ttl" env:"LOCAL_TTL"`
	RedisTTL     time.Duration `yaml:"redis_ttl" env:"REDIS_TTL"`
}

// ArchiveConfig configures the optional sqlite run archive.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Path    string `yaml:"path" env:"PATH"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json, console.
	Format string `yaml:"format" env:"FORMAT"`
}

// Config is the top-level configuration document consumed by the CLI and
// the comparison runner.
type Config struct {
	// Query is the research question.
	Query string `yaml:"query" env:"QUERY"`
	// Configurations is the ordered set of backend configurations to run.
	// Declaration order is the ranking tiebreaker.
	Configurations []Configuration `yaml:"configurations" env:"-"`

	Comparison ComparisonConfig `yaml:"comparison" env:"COMPARISON"`
	Cache      CacheConfig      `yaml:"cache" env:"CACHE"`
	Archive    ArchiveConfig    `yaml:"archive" env:"ARCHIVE"`
	Log        LogConfig        `yaml:"log" env:"LOG"`
}

// =============================================================================
// Loader
// =============================================================================

// Loader loads a Config with builder-style options.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a config loader with the default env prefix.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "DEEPRESEARCH",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the YAML file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator appends a validation function run after loading.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load assembles the configuration: defaults, then file, then env.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}
		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// MustLoad loads a config file and panics on failure.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}
