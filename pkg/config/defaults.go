package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultRequestTimeout  = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Storage defaults
	DefaultStorageBackend    = "sqlite"
	DefaultSQLitePath        = "data/custody.db"
	DefaultSQLiteMaxOpen     = 10
	DefaultSQLiteMaxIdle     = 5
	DefaultSQLiteWALMode     = true
	DefaultSQLiteBusyTimeout = 5 * time.Second

	// Anchor defaults
	DefaultAnchorEnabled     = true
	DefaultAnchorPath        = "data/anchors.db"
	DefaultAnchorBusyTimeout = 5 * time.Second

	// Classifier defaults
	DefaultMinChainEvents            = 2
	DefaultRequireCollectionMetadata = true
	DefaultPreservationPeriod        = 720 * time.Hour // 30 days
	DefaultChallengeTag              = "[challenge]"

	// Integrity defaults
	DefaultSweepSchedule = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel   = "info"
	DefaultLoggingFormat  = "json"
	DefaultMetricsEnabled = true
	DefaultMetricsPath    = "/metrics"
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Storage defaults
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Storage.SQLite.MaxOpenConns == 0 {
		cfg.Storage.SQLite.MaxOpenConns = DefaultSQLiteMaxOpen
	}
	if cfg.Storage.SQLite.MaxIdleConns == 0 {
		cfg.Storage.SQLite.MaxIdleConns = DefaultSQLiteMaxIdle
	}
	if !cfg.Storage.SQLite.WALMode {
		cfg.Storage.SQLite.WALMode = DefaultSQLiteWALMode
	}
	if cfg.Storage.SQLite.BusyTimeout == 0 {
		cfg.Storage.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}

	// Anchor defaults
	if cfg.Anchor.Path == "" {
		cfg.Anchor.Path = DefaultAnchorPath
	}
	if cfg.Anchor.BusyTimeout == 0 {
		cfg.Anchor.BusyTimeout = DefaultAnchorBusyTimeout
	}

	// Classifier defaults
	if cfg.Classifier.MinChainEvents == 0 {
		cfg.Classifier.MinChainEvents = DefaultMinChainEvents
	}
	if cfg.Classifier.PreservationPeriod == 0 {
		cfg.Classifier.PreservationPeriod = DefaultPreservationPeriod
	}
	if cfg.Classifier.ChallengeTag == "" {
		cfg.Classifier.ChallengeTag = DefaultChallengeTag
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}
