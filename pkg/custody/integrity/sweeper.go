package integrity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"custodia-hq/custodia/pkg/custody"
	"custodia-hq/custodia/pkg/custody/anchor"
	"custodia-hq/custodia/pkg/custody/store"
)

// Failure kinds reported by a sweep.
const (
	FailureChainBroken   = "chain_broken"
	FailureOutOfOrder    = "out_of_order"
	FailureAnchorDrift   = "anchor_drift"
	FailureAnchorMissing = "anchor_missing"
)

// Failure describes one integrity finding for one item.
type Failure struct {
	ItemID   string `json:"item_id"`
	Kind     string `json:"kind"`
	Sequence int64  `json:"sequence,omitempty"`
	Detail   string `json:"detail"`
}

// Report summarizes one full sweep.
type Report struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Checked   int           `json:"checked"`
	Failures  []Failure     `json:"failures"`
}

// OK reports whether the sweep found no integrity failures.
func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

// Metrics is the subset of the telemetry collector the sweeper records to.
type Metrics interface {
	RecordVerifyFailure(kind string)
	ObserveSweepDuration(d time.Duration)
}

// Sweeper re-verifies every custody chain and cross-checks each chain head
// against the anchor log.
type Sweeper struct {
	store   *store.Store
	anchors anchor.Log
	metrics Metrics
	logger  *slog.Logger
}

// NewSweeper creates a sweeper. The anchor log and metrics may be nil;
// anchor cross-checking is skipped without a log.
func NewSweeper(st *store.Store, anchors anchor.Log, metrics Metrics) *Sweeper {
	return &Sweeper{
		store:   st,
		anchors: anchors,
		metrics: metrics,
		logger:  slog.Default().With("component", "custody.integrity"),
	}
}

// Sweep verifies all items and returns the findings. The sweep itself
// never fails an item's custody operations; it only reports.
func (s *Sweeper) Sweep(ctx context.Context) (*Report, error) {
	report := &Report{
		StartedAt: time.Now().UTC(),
		Failures:  []Failure{},
	}

	for _, id := range s.store.ItemIDs() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		report.Checked++
		s.sweepItem(ctx, id, report)
	}

	report.Duration = time.Since(report.StartedAt)
	if s.metrics != nil {
		s.metrics.ObserveSweepDuration(report.Duration)
	}

	if report.OK() {
		s.logger.Info("integrity sweep clean",
			"checked", report.Checked,
			"duration", report.Duration,
		)
	} else {
		s.logger.Error("integrity sweep found failures",
			"checked", report.Checked,
			"failures", len(report.Failures),
			"duration", report.Duration,
		)
	}

	return report, nil
}

// sweepItem checks one item's chain and anchor, appending any findings.
func (s *Sweeper) sweepItem(ctx context.Context, itemID string, report *Report) {
	if err := s.store.Verify(itemID); err != nil {
		f := Failure{ItemID: itemID, Kind: FailureChainBroken, Detail: err.Error()}
		if ie, ok := custody.AsIntegrityError(err); ok {
			f.Sequence = ie.Sequence
			if ie.Kind == custody.IntegrityOutOfOrder {
				f.Kind = FailureOutOfOrder
			}
		}
		s.record(report, f)
		return
	}

	if s.anchors == nil {
		return
	}

	item, err := s.store.Get(itemID)
	if err != nil {
		return
	}

	latest, err := s.anchors.Latest(ctx, itemID)
	if err != nil {
		s.logger.Warn("anchor lookup failed during sweep",
			"item_id", itemID,
			"error", err,
		)
		return
	}
	if latest == nil {
		s.record(report, Failure{
			ItemID: itemID,
			Kind:   FailureAnchorMissing,
			Detail: "item has custody events but no recorded anchor",
		})
		return
	}
	if latest.Hash != item.AnchorHash {
		s.record(report, Failure{
			ItemID:   itemID,
			Kind:     FailureAnchorDrift,
			Sequence: latest.Sequence,
			Detail: fmt.Sprintf("chain head %s does not match anchored digest %s",
				item.AnchorHash, latest.Hash),
		})
	}
}

func (s *Sweeper) record(report *Report, f Failure) {
	report.Failures = append(report.Failures, f)
	if s.metrics != nil {
		s.metrics.RecordVerifyFailure(f.Kind)
	}
	s.logger.Warn("integrity failure",
		"item_id", f.ItemID,
		"kind", f.Kind,
		"sequence", f.Sequence,
		"detail", f.Detail,
	)
}
