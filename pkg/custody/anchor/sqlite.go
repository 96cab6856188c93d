package anchor

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // SQLite driver, CGO-free

	"custodia-hq/custodia/pkg/custody"
)

const anchorSchema = `
CREATE TABLE IF NOT EXISTS anchors (
    item_id TEXT NOT NULL,
    sequence INTEGER NOT NULL,
    hash TEXT NOT NULL,
    anchored_at TEXT NOT NULL,

    PRIMARY KEY (item_id, sequence)
);

CREATE INDEX IF NOT EXISTS idx_anchors_item_id ON anchors(item_id);
`

// SQLiteLog implements Log using a dedicated SQLite database, always in a
// separate file from the event store. It uses the pure-Go driver so the
// anchor log can live on hosts where the main event store's CGO driver is
// unavailable.
type SQLiteLog struct {
	db     *sql.DB
	logger *slog.Logger
}

// SQLiteLogConfig configures the SQLite anchor log.
type SQLiteLogConfig struct {
	// Path is the anchor database file path. Keep it on separate storage
	// from the event database where possible.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteLog creates a new SQLite-backed anchor log.
func NewSQLiteLog(config SQLiteLogConfig) (*SQLiteLog, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("anchor log path cannot be empty")
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = 5 * time.Second
	}

	// modernc takes pragmas as _pragma=name(value) pairs; the mattn-style
	// _journal_mode/_busy_timeout keys are silently ignored by this driver.
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)",
		config.Path, config.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, custody.NewStorageError("sqlite", "open_anchor_log", err)
	}

	if _, err := db.Exec(anchorSchema); err != nil {
		db.Close()
		return nil, custody.NewStorageError("sqlite", "create_anchor_schema", err)
	}

	logger := slog.Default().With("component", "custody.anchor")
	logger.Info("anchor log initialized", "path", config.Path)

	return &SQLiteLog{db: db, logger: logger}, nil
}

// Record appends an anchor.
func (l *SQLiteLog) Record(ctx context.Context, a *Anchor) error {
	query := `
		INSERT INTO anchors (item_id, sequence, hash, anchored_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := l.db.ExecContext(ctx, query,
		a.ItemID, a.Sequence, a.Hash, a.AnchoredAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return custody.NewStorageError("sqlite", "record_anchor", err)
	}
	return nil
}

// Latest returns the most recent anchor for an item, or nil.
func (l *SQLiteLog) Latest(ctx context.Context, itemID string) (*Anchor, error) {
	query := `
		SELECT item_id, sequence, hash, anchored_at
		FROM anchors WHERE item_id = ?
		ORDER BY sequence DESC LIMIT 1
	`
	row := l.db.QueryRowContext(ctx, query, itemID)

	a, err := scanAnchor(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, custody.NewStorageError("sqlite", "latest_anchor", err)
	}
	return a, nil
}

// List returns all anchors for an item in recording order.
func (l *SQLiteLog) List(ctx context.Context, itemID string) ([]*Anchor, error) {
	query := `
		SELECT item_id, sequence, hash, anchored_at
		FROM anchors WHERE item_id = ?
		ORDER BY sequence ASC
	`
	rows, err := l.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, custody.NewStorageError("sqlite", "list_anchors", err)
	}
	defer rows.Close()

	anchors := []*Anchor{}
	for rows.Next() {
		a, err := scanAnchor(rows.Scan)
		if err != nil {
			return nil, custody.NewStorageError("sqlite", "scan_anchor", err)
		}
		anchors = append(anchors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, custody.NewStorageError("sqlite", "list_anchors", err)
	}
	return anchors, nil
}

// Close releases the database connection.
func (l *SQLiteLog) Close() error {
	if err := l.db.Close(); err != nil {
		return custody.NewStorageError("sqlite", "close_anchor_log", err)
	}
	return nil
}

// scanAnchor scans one anchor row through the given scan function.
func scanAnchor(scan func(dest ...interface{}) error) (*Anchor, error) {
	var a Anchor
	var anchoredAt string

	if err := scan(&a.ItemID, &a.Sequence, &a.Hash, &anchoredAt); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, anchoredAt)
	if err != nil {
		return nil, err
	}
	a.AnchoredAt = t
	return &a, nil
}
