package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the custody database schema.
//
// custody_events is append-only: rows are only ever inserted, and the
// primary key on (item_id, sequence) makes sequence reuse impossible at the
// database level. evidence_items holds current-state projections only and
// can be rebuilt entirely by replaying custody_events.
const Schema = `
-- Append-only custody event table
CREATE TABLE IF NOT EXISTS custody_events (
    item_id TEXT NOT NULL,
    sequence INTEGER NOT NULL,
    timestamp TEXT NOT NULL,
    actor TEXT NOT NULL,
    action TEXT NOT NULL,
    from_custodian TEXT,
    to_custodian TEXT,
    notes TEXT,
    prior_hash TEXT NOT NULL,
    hash TEXT NOT NULL,

    PRIMARY KEY (item_id, sequence)
);

-- Derived/cached item projections, rebuildable from custody_events
CREATE TABLE IF NOT EXISTS evidence_items (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    type TEXT NOT NULL,
    case_id TEXT NOT NULL,
    tags TEXT,

    collection_date TEXT,
    collected_by TEXT,
    location TEXT,

    custodian TEXT NOT NULL,
    admissibility TEXT NOT NULL,
    anchor_hash TEXT,

    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_items_case_id ON evidence_items(case_id);
CREATE INDEX IF NOT EXISTS idx_items_custodian ON evidence_items(custodian);
CREATE INDEX IF NOT EXISTS idx_items_admissibility ON evidence_items(admissibility);
CREATE INDEX IF NOT EXISTS idx_items_collection_date ON evidence_items(collection_date);
CREATE INDEX IF NOT EXISTS idx_events_item_id ON custody_events(item_id);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
