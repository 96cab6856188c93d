package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"custodia-hq/custodia/pkg/custody"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/custody.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements custody.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a new SQLite storage backend. It initializes
// the schema and enables WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "custody.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, custody.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return custody.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return custody.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return custody.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return custody.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return custody.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return custody.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// CreateItem atomically inserts a new item projection together with its
// first custody event.
func (s *SQLiteStorage) CreateItem(ctx context.Context, item *custody.EvidenceItem, first *custody.CustodyEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return custody.NewStorageError("sqlite", "create_item", err)
	}
	defer tx.Rollback()

	insertItem := `
		INSERT INTO evidence_items (
			id, title, description, type, case_id, tags,
			collection_date, collected_by, location,
			custodian, admissibility, anchor_hash,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	args, err := itemArgs(item)
	if err != nil {
		return custody.NewStorageError("sqlite", "create_item", err)
	}
	if _, err := tx.ExecContext(ctx, insertItem, args...); err != nil {
		return custody.NewStorageError("sqlite", "create_item", err)
	}

	if _, err := tx.ExecContext(ctx, insertEventSQL,
		first.ItemID, first.Sequence, formatTime(first.Timestamp),
		first.Actor, string(first.Action),
		nullable(first.FromCustodian), nullable(first.ToCustodian), nullable(first.Notes),
		first.PriorHash, first.Hash,
	); err != nil {
		return custody.NewStorageError("sqlite", "create_item", err)
	}

	if err := tx.Commit(); err != nil {
		return custody.NewStorageError("sqlite", "create_item", err)
	}
	return nil
}

// UpdateItem rewrites an existing item projection row.
func (s *SQLiteStorage) UpdateItem(ctx context.Context, item *custody.EvidenceItem) error {
	query := `
		UPDATE evidence_items SET
			title = ?, description = ?, type = ?, case_id = ?, tags = ?,
			collection_date = ?, collected_by = ?, location = ?,
			custodian = ?, admissibility = ?, anchor_hash = ?,
			created_at = ?, updated_at = ?
		WHERE id = ?
	`

	args, err := itemArgs(item)
	if err != nil {
		return custody.NewStorageError("sqlite", "update_item", err)
	}
	// Move id from first position to the WHERE clause.
	args = append(args[1:], args[0])

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return custody.NewStorageError("sqlite", "update_item", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return custody.NewStorageError("sqlite", "update_item", err)
	}
	if affected == 0 {
		return custody.NewStorageError("sqlite", "update_item",
			fmt.Errorf("item %s does not exist", item.ID))
	}
	return nil
}

// AppendEvent atomically inserts a custody event and rewrites the item
// projection in one transaction. The primary key on (item_id, sequence)
// rejects sequence reuse; a failure rolls the whole append back.
func (s *SQLiteStorage) AppendEvent(ctx context.Context, event *custody.CustodyEvent, item *custody.EvidenceItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return custody.NewStorageError("sqlite", "append_event", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, insertEventSQL,
		event.ItemID, event.Sequence, formatTime(event.Timestamp),
		event.Actor, string(event.Action),
		nullable(event.FromCustodian), nullable(event.ToCustodian), nullable(event.Notes),
		event.PriorHash, event.Hash,
	)
	if err != nil {
		return custody.NewStorageError("sqlite", "append_event", err)
	}

	updateItem := `
		UPDATE evidence_items SET
			custodian = ?, admissibility = ?, anchor_hash = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = tx.ExecContext(ctx, updateItem,
		item.Custodian, string(item.Admissibility), nullable(item.AnchorHash),
		formatTime(item.UpdatedAt), item.ID,
	)
	if err != nil {
		return custody.NewStorageError("sqlite", "append_event", err)
	}

	if err := tx.Commit(); err != nil {
		return custody.NewStorageError("sqlite", "append_event", err)
	}
	return nil
}

// Events returns the item's history in ascending sequence order.
func (s *SQLiteStorage) Events(ctx context.Context, itemID string) ([]*custody.CustodyEvent, error) {
	query := selectEvents + " WHERE item_id = ? ORDER BY sequence ASC"

	rows, err := s.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, custody.NewStorageError("sqlite", "events", err)
	}
	defer rows.Close()

	events := []*custody.CustodyEvent{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, custody.NewStorageError("sqlite", "scan_event", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, custody.NewStorageError("sqlite", "events", err)
	}
	return events, nil
}

// AllEvents returns every stored event grouped by item, each group in
// ascending sequence order.
func (s *SQLiteStorage) AllEvents(ctx context.Context) (map[string][]*custody.CustodyEvent, error) {
	query := selectEvents + " ORDER BY item_id ASC, sequence ASC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, custody.NewStorageError("sqlite", "all_events", err)
	}
	defer rows.Close()

	out := make(map[string][]*custody.CustodyEvent)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, custody.NewStorageError("sqlite", "scan_event", err)
		}
		out[event.ItemID] = append(out[event.ItemID], event)
	}
	if err := rows.Err(); err != nil {
		return nil, custody.NewStorageError("sqlite", "all_events", err)
	}
	return out, nil
}

// Items returns all item projections.
func (s *SQLiteStorage) Items(ctx context.Context) ([]*custody.EvidenceItem, error) {
	query := `
		SELECT id, title, description, type, case_id, tags,
		       collection_date, collected_by, location,
		       custodian, admissibility, anchor_hash,
		       created_at, updated_at
		FROM evidence_items
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, custody.NewStorageError("sqlite", "items", err)
	}
	defer rows.Close()

	items := []*custody.EvidenceItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, custody.NewStorageError("sqlite", "scan_item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, custody.NewStorageError("sqlite", "items", err)
	}
	return items, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return custody.NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return custody.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

const insertEventSQL = `
	INSERT INTO custody_events (
		item_id, sequence, timestamp, actor, action,
		from_custodian, to_custodian, notes, prior_hash, hash
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectEvents = `
	SELECT item_id, sequence, timestamp, actor, action,
	       from_custodian, to_custodian, notes, prior_hash, hash
	FROM custody_events
`

// scanEvent scans a database row into a CustodyEvent.
func scanEvent(rows *sql.Rows) (*custody.CustodyEvent, error) {
	var event custody.CustodyEvent
	var timestamp, action string
	var fromCustodian, toCustodian, notes sql.NullString

	err := rows.Scan(
		&event.ItemID, &event.Sequence, &timestamp, &event.Actor, &action,
		&fromCustodian, &toCustodian, &notes, &event.PriorHash, &event.Hash,
	)
	if err != nil {
		return nil, err
	}

	event.Timestamp, err = parseTime(timestamp)
	if err != nil {
		return nil, err
	}
	event.Action = custody.CustodyAction(action)
	event.FromCustodian = fromCustodian.String
	event.ToCustodian = toCustodian.String
	event.Notes = notes.String

	return &event, nil
}

// scanItem scans a database row into an EvidenceItem.
func scanItem(rows *sql.Rows) (*custody.EvidenceItem, error) {
	var item custody.EvidenceItem
	var itemType, admissibility string
	var description, tags, collectionDate, collectedBy, location, anchorHash sql.NullString
	var createdAt, updatedAt string

	err := rows.Scan(
		&item.ID, &item.Title, &description, &itemType, &item.CaseID, &tags,
		&collectionDate, &collectedBy, &location,
		&item.Custodian, &admissibility, &anchorHash,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Description = description.String
	item.Type = custody.EvidenceType(itemType)
	item.Admissibility = custody.AdmissibilityStatus(admissibility)
	item.CollectedBy = collectedBy.String
	item.Location = location.String
	item.AnchorHash = anchorHash.String

	if tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &item.Tags); err != nil {
			return nil, err
		}
	}
	if collectionDate.String != "" {
		if item.CollectionDate, err = parseTime(collectionDate.String); err != nil {
			return nil, err
		}
	}
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &item, nil
}

// itemArgs builds the ordered argument list for item insert statements,
// id first.
func itemArgs(item *custody.EvidenceItem) ([]interface{}, error) {
	var tags interface{}
	if len(item.Tags) > 0 {
		data, err := json.Marshal(item.Tags)
		if err != nil {
			return nil, err
		}
		tags = string(data)
	}

	var collectionDate interface{}
	if !item.CollectionDate.IsZero() {
		collectionDate = formatTime(item.CollectionDate)
	}

	return []interface{}{
		item.ID, item.Title, nullable(item.Description), string(item.Type), item.CaseID, tags,
		collectionDate, nullable(item.CollectedBy), nullable(item.Location),
		item.Custodian, string(item.Admissibility), nullable(item.AnchorHash),
		formatTime(item.CreatedAt), formatTime(item.UpdatedAt),
	}, nil
}

// formatTime renders a timestamp in the exact format the hash chain
// digests over, so round-trips through the database cannot drift.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime is the inverse of formatTime.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// nullable converts empty strings to NULL for optional columns.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
