package anchor

import (
	"context"
	"sync"
	"time"
)

// Anchor is one chain-head digest snapshot.
type Anchor struct {
	ItemID     string    `json:"item_id"`
	Sequence   int64     `json:"sequence"`
	Hash       string    `json:"hash"`
	AnchoredAt time.Time `json:"anchored_at"`
}

// Log is an append-only record of chain-head digests. Implementations must
// be safe for concurrent use.
type Log interface {
	// Record appends an anchor. Anchors are never updated or removed.
	Record(ctx context.Context, a *Anchor) error

	// Latest returns the most recent anchor for an item, or nil if the
	// item has never been anchored.
	Latest(ctx context.Context, itemID string) (*Anchor, error)

	// List returns all anchors for an item in the order they were recorded.
	List(ctx context.Context, itemID string) ([]*Anchor, error)

	// Close releases any resources held by the log.
	Close() error
}

// MemoryLog implements Log with an in-process map, for tests and
// ephemeral deployments.
type MemoryLog struct {
	mu      sync.RWMutex
	anchors map[string][]*Anchor
}

// NewMemoryLog creates a new in-memory anchor log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{anchors: make(map[string][]*Anchor)}
}

// Record appends an anchor.
func (l *MemoryLog) Record(ctx context.Context, a *Anchor) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	anchorCopy := *a
	l.anchors[a.ItemID] = append(l.anchors[a.ItemID], &anchorCopy)
	return nil
}

// Latest returns the most recent anchor for an item, or nil.
func (l *MemoryLog) Latest(ctx context.Context, itemID string) (*Anchor, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	anchors := l.anchors[itemID]
	if len(anchors) == 0 {
		return nil, nil
	}
	anchorCopy := *anchors[len(anchors)-1]
	return &anchorCopy, nil
}

// List returns all anchors for an item in recording order.
func (l *MemoryLog) List(ctx context.Context, itemID string) ([]*Anchor, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	anchors := l.anchors[itemID]
	out := make([]*Anchor, len(anchors))
	for i, a := range anchors {
		anchorCopy := *a
		out[i] = &anchorCopy
	}
	return out, nil
}

// Close releases the backing map.
func (l *MemoryLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.anchors = make(map[string][]*Anchor)
	return nil
}
