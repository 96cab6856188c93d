// Package storage provides persistence backends for the custody ledger.
//
// Two implementations of custody.Storage are provided:
//
//   - MemoryStorage: in-process, for tests and ephemeral deployments.
//   - SQLiteStorage: durable, WAL-mode SQLite.
//
// The event table is append-only and keyed by (item_id, sequence) with a
// uniqueness constraint on that pair; the item table holds only
// current-state projections and is rebuildable entirely by replaying the
// event table. Event timestamps are stored as RFC 3339 nanosecond text in
// UTC so a round-trip through the database reproduces the exact bytes the
// chain digests were computed over.
package storage
