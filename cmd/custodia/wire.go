package main

import (
	"context"
	"fmt"

	"custodia-hq/custodia/pkg/config"
	"custodia-hq/custodia/pkg/custody"
	"custodia-hq/custodia/pkg/custody/anchor"
	"custodia-hq/custodia/pkg/custody/classifier"
	"custodia-hq/custodia/pkg/custody/ledger"
	"custodia-hq/custodia/pkg/custody/storage"
	"custodia-hq/custodia/pkg/custody/store"
)

// components bundles the wired custody subsystems for a command.
type components struct {
	storage custody.Storage
	anchors anchor.Log
	store   *store.Store
}

// close releases the underlying databases.
func (c *components) close() {
	if c.anchors != nil {
		_ = c.anchors.Close()
	}
	if c.storage != nil {
		_ = c.storage.Close()
	}
}

// buildStore wires storage, anchor log, ledger, classifier, and store from
// the configuration and loads existing items.
func buildStore(ctx context.Context, cfg *config.Config) (*components, error) {
	var st custody.Storage
	var err error

	switch cfg.Storage.Backend {
	case "sqlite":
		st, err = storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.Storage.SQLite.Path,
			MaxOpenConns: cfg.Storage.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.Storage.SQLite.MaxIdleConns,
			WALMode:      cfg.Storage.SQLite.WALMode,
			BusyTimeout:  cfg.Storage.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open custody database: %w", err)
		}
	case "memory":
		st = storage.NewMemoryStorage()
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}

	var anchors anchor.Log
	if cfg.Anchor.Enabled {
		if cfg.Anchor.Path != "" && cfg.Storage.Backend != "memory" {
			anchors, err = anchor.NewSQLiteLog(anchor.SQLiteLogConfig{
				Path:        cfg.Anchor.Path,
				BusyTimeout: cfg.Anchor.BusyTimeout,
			})
			if err != nil {
				_ = st.Close()
				return nil, fmt.Errorf("failed to open anchor log: %w", err)
			}
		} else {
			anchors = anchor.NewMemoryLog()
		}
	}

	cls := classifier.New(classifierConfig(cfg))

	evidenceStore := store.New(st, ledger.New(st), cls, anchors)
	if err := evidenceStore.Load(ctx); err != nil {
		if anchors != nil {
			_ = anchors.Close()
		}
		_ = st.Close()
		return nil, fmt.Errorf("failed to load evidence store: %w", err)
	}

	return &components{
		storage: st,
		anchors: anchors,
		store:   evidenceStore,
	}, nil
}

// classifierConfig maps configuration onto the classifier's thresholds.
func classifierConfig(cfg *config.Config) *classifier.Config {
	return &classifier.Config{
		MinChainEvents:            cfg.Classifier.MinChainEvents,
		RequireCollectionMetadata: cfg.Classifier.RequireCollectionMetadata,
		PreservationPeriod:        cfg.Classifier.PreservationPeriod,
		ChallengeTag:              cfg.Classifier.ChallengeTag,
	}
}
