package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// NewConfig returns a configuration populated with every default,
// including the booleans that default to true. Loading unmarshals over
// this base so an explicit false in the file is honored.
func NewConfig() *Config {
	cfg := &Config{
		Anchor: AnchorConfig{Enabled: DefaultAnchorEnabled},
		Classifier: ClassifierConfig{
			RequireCollectionMetadata: DefaultRequireCollectionMetadata,
		},
		Integrity: IntegrityConfig{SweepSchedule: DefaultSweepSchedule},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Environment variables follow the
// naming convention CUSTODIA_SECTION_FIELD (e.g.,
// CUSTODIA_SERVER_LISTEN_ADDRESS) and always take precedence over
// file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format CUSTODIA_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("CUSTODIA_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("CUSTODIA_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("CUSTODIA_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("CUSTODIA_SERVER_IDLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.IdleTimeout = d
		}
	}
	if val := os.Getenv("CUSTODIA_SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}
	if val := os.Getenv("CUSTODIA_SERVER_REQUEST_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.RequestTimeout = d
		}
	}
	if val := os.Getenv("CUSTODIA_SERVER_MAX_HEADER_BYTES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Server.MaxHeaderBytes = i
		}
	}
	if val := os.Getenv("CUSTODIA_SERVER_CORS_ALLOWED_ORIGINS"); val != "" {
		cfg.Server.CORSAllowedOrigins = strings.Split(val, ",")
	}

	// Storage overrides
	if val := os.Getenv("CUSTODIA_STORAGE_BACKEND"); val != "" {
		cfg.Storage.Backend = val
	}
	if val := os.Getenv("CUSTODIA_STORAGE_SQLITE_PATH"); val != "" {
		cfg.Storage.SQLite.Path = val
	}
	if val := os.Getenv("CUSTODIA_STORAGE_SQLITE_MAX_OPEN_CONNS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Storage.SQLite.MaxOpenConns = i
		}
	}
	if val := os.Getenv("CUSTODIA_STORAGE_SQLITE_MAX_IDLE_CONNS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Storage.SQLite.MaxIdleConns = i
		}
	}
	if val := os.Getenv("CUSTODIA_STORAGE_SQLITE_WAL_MODE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Storage.SQLite.WALMode = b
		}
	}
	if val := os.Getenv("CUSTODIA_STORAGE_SQLITE_BUSY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Storage.SQLite.BusyTimeout = d
		}
	}

	// Anchor overrides
	if val := os.Getenv("CUSTODIA_ANCHOR_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Anchor.Enabled = b
		}
	}
	if val := os.Getenv("CUSTODIA_ANCHOR_PATH"); val != "" {
		cfg.Anchor.Path = val
	}

	// Classifier overrides
	if val := os.Getenv("CUSTODIA_CLASSIFIER_MIN_CHAIN_EVENTS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Classifier.MinChainEvents = i
		}
	}
	if val := os.Getenv("CUSTODIA_CLASSIFIER_REQUIRE_COLLECTION_METADATA"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Classifier.RequireCollectionMetadata = b
		}
	}
	if val := os.Getenv("CUSTODIA_CLASSIFIER_PRESERVATION_PERIOD"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Classifier.PreservationPeriod = d
		}
	}
	if val := os.Getenv("CUSTODIA_CLASSIFIER_CHALLENGE_TAG"); val != "" {
		cfg.Classifier.ChallengeTag = val
	}

	// Integrity overrides
	if val := os.Getenv("CUSTODIA_INTEGRITY_SWEEP_SCHEDULE"); val != "" {
		cfg.Integrity.SweepSchedule = val
	}

	// Telemetry overrides
	if val := os.Getenv("CUSTODIA_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("CUSTODIA_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("CUSTODIA_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("CUSTODIA_TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
}
