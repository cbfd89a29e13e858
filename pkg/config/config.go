package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete file vault configuration.
//
// It captures:
//   - Logging behavior
//   - Upload validation limits and batch parallelism
//   - Registry settings (signed URL validity)
//   - Blob store selection and store-specific options
//   - Metadata store selection and store-specific options
//
// Configuration sources (in order of precedence):
//  1. Environment variables (FILEVAULT_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Store Configuration Pattern:
// Each store backend defines its own options. The Config struct carries
// one map per backend (e.g. blob.s3, blob.memory) and only the map
// matching the selected Type is decoded and used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Upload contains validation limits and batch parallelism
	Upload UploadConfig `mapstructure:"upload"`

	// Registry contains registry settings
	Registry RegistryConfig `mapstructure:"registry"`

	// GC contains orphan collection settings
	GC GCConfig `mapstructure:"gc"`

	// Blob specifies the blob store type and type-specific options
	Blob BlobConfig `mapstructure:"blob"`

	// Metadata specifies the metadata store type and type-specific options
	Metadata MetadataConfig `mapstructure:"metadata"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

// UploadConfig contains upload validation limits and batch behavior.
type UploadConfig struct {
	// MaxFiles is the maximum number of files per batch
	MaxFiles int `mapstructure:"max_files" validate:"required,gt=0"`

	// MaxSizeBytes is the maximum size of one file
	MaxSizeBytes int64 `mapstructure:"max_size_bytes" validate:"required,gt=0"`

	// AllowedTypes is the MIME allow-list; exact types or "prefix/*"
	AllowedTypes []string `mapstructure:"allowed_types" validate:"required,min=1"`

	// Parallelism bounds concurrent uploads per batch (0 = unbounded)
	Parallelism int `mapstructure:"parallelism" validate:"gte=0"`

	// RateLimit throttles blob writes to this many per second (0 = off)
	RateLimit int `mapstructure:"rate_limit" validate:"gte=0"`

	// RateBurst is the burst capacity when RateLimit is set
	RateBurst int `mapstructure:"rate_burst" validate:"gte=0"`
}

// RegistryConfig contains registry settings.
type RegistryConfig struct {
	// URLTTL is the signed download URL validity window
	URLTTL time.Duration `mapstructure:"url_ttl" validate:"required,gt=0"`
}

// GCConfig contains orphan collection settings.
type GCConfig struct {
	// Interval is how often the background collector runs
	Interval time.Duration `mapstructure:"interval" validate:"required,gt=0"`

	// BatchSize is how many orphaned blobs to delete per batch
	BatchSize int `mapstructure:"batch_size" validate:"required,gt=0"`
}

// BlobConfig specifies blob store configuration.
//
// The Type field selects the backend; only the matching options map is
// decoded.
type BlobConfig struct {
	// Type specifies which blob store backend to use
	// Valid values: s3, memory
	Type string `mapstructure:"type" validate:"required,oneof=s3 memory"`

	// S3 contains S3-specific options (only used when Type = "s3")
	S3 map[string]any `mapstructure:"s3"`

	// Memory contains memory-specific options (only used when Type = "memory")
	Memory map[string]any `mapstructure:"memory"`
}

// MetadataConfig specifies metadata store configuration.
type MetadataConfig struct {
	// Type specifies which metadata store backend to use
	// Valid values: badger, memory
	Type string `mapstructure:"type" validate:"required,oneof=badger memory"`

	// Badger contains BadgerDB-specific options (only used when Type = "badger")
	Badger map[string]any `mapstructure:"badger"`

	// Memory contains memory-specific options (only used when Type = "memory")
	Memory map[string]any `mapstructure:"memory"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variable and config file handling.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the FILEVAULT_ prefix with underscores
	// Example: FILEVAULT_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("FILEVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/filevault/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing file
// is not an error when no explicit path was given: defaults and
// environment variables still apply.
func readConfigFile(v *viper.Viper, configPath string) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) && configPath == "" {
		return nil
	}

	return fmt.Errorf("failed to read config file: %w", err)
}

// getConfigDir returns the default configuration directory.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "filevault")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "filevault")
}
