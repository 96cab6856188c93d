package config

import "time"

// Config is the root configuration for the custody service.
type Config struct {
	// Server contains HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Storage contains persistence configuration for the custody ledger.
	Storage StorageConfig `yaml:"storage"`

	// Anchor contains configuration for the independent anchor log.
	Anchor AnchorConfig `yaml:"anchor"`

	// Classifier contains admissibility evaluation configuration.
	Classifier ClassifierConfig `yaml:"classifier"`

	// Integrity contains scheduled tamper-sweep configuration.
	Integrity IntegrityConfig `yaml:"integrity"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// ListenAddress is the address to listen on (e.g., ":8080").
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RequestTimeout bounds handling of a single request.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORSAllowedOrigins lists origins permitted to call the API.
	// An empty list disables CORS headers.
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// StorageConfig contains persistence configuration for items and events.
type StorageConfig struct {
	// Backend selects the storage implementation: "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// SQLite configures the sqlite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig contains sqlite backend configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string `yaml:"path"`

	// MaxOpenConns limits open connections.
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns limits idle connections.
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long a locked database is retried.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// AnchorConfig contains configuration for the chain-head anchor log. The
// anchor log lives in its own database so a compromise of the main store
// cannot silently rewrite both.
type AnchorConfig struct {
	// Enabled turns anchoring on.
	Enabled bool `yaml:"enabled"`

	// Path is the anchor database file path. Empty with Enabled keeps
	// anchors in memory.
	Path string `yaml:"path"`

	// BusyTimeout is how long a locked database is retried.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// ClassifierConfig contains admissibility evaluation configuration.
type ClassifierConfig struct {
	// MinChainEvents is the minimum history length for admissibility.
	MinChainEvents int `yaml:"min_chain_events"`

	// RequireCollectionMetadata requires collected_by, location, and
	// collection_date before an item can be admissible.
	RequireCollectionMetadata bool `yaml:"require_collection_metadata"`

	// PreservationPeriod is how long an item must be preserved;
	// destruction inside the period excludes the item.
	PreservationPeriod time.Duration `yaml:"preservation_period"`

	// ChallengeTag marks an analysis note as a custody challenge.
	ChallengeTag string `yaml:"challenge_tag"`
}

// IntegrityConfig contains scheduled tamper-sweep configuration.
type IntegrityConfig struct {
	// SweepSchedule is a cron expression; empty disables scheduled sweeps.
	SweepSchedule string `yaml:"sweep_schedule"`
}

// TelemetryConfig contains logging and metrics configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	Format string `yaml:"format"`

	// AddSource includes file and line number in logs.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled turns metric recording on.
	Enabled bool `yaml:"enabled"`

	// Path is the exposition endpoint path.
	Path string `yaml:"path"`
}
