package classifier

import (
	"strings"
	"time"

	"custodia-hq/custodia/pkg/custody"
	"custodia-hq/custodia/pkg/custody/hashchain"
)

// Config contains the admissibility thresholds. The legal meaning of these
// values is jurisdiction-specific, so they are configuration rather than
// hard-coded rules.
type Config struct {
	// MinChainEvents is the minimum number of custody events before an
	// item can leave Pending.
	// Default: 2
	MinChainEvents int

	// RequireCollectionMetadata demands collected_by, location, and a
	// collection date before an item can leave Pending.
	// Default: true
	RequireCollectionMetadata bool

	// PreservationPeriod is the minimum time an item must be preserved
	// after collection. A Destroyed event inside this window excludes
	// the item.
	// Default: 720h (30 days)
	PreservationPeriod time.Duration

	// ChallengeTag is the reserved note prefix that marks an Analyzed
	// event as a recorded dispute.
	// Default: "[challenge]"
	ChallengeTag string
}

// DefaultConfig returns the default classifier configuration.
func DefaultConfig() *Config {
	return &Config{
		MinChainEvents:            2,
		RequireCollectionMetadata: true,
		PreservationPeriod:        720 * time.Hour,
		ChallengeTag:              "[challenge]",
	}
}

// Classifier evaluates admissibility. It holds only configuration and is
// safe for concurrent use.
type Classifier struct {
	config *Config
}

// New creates a classifier with the given configuration. A nil config uses
// the defaults.
func New(config *Config) *Classifier {
	if config == nil {
		config = DefaultConfig()
	}
	return &Classifier{config: config}
}

// Classify derives the admissibility status for an item from its event
// history. The evaluation order is fixed:
//
//  1. Excluded: chain fails integrity verification, or the item was
//     destroyed before the preservation period elapsed.
//  2. Challenged: a dispute event is recorded (an Analyzed event whose
//     notes carry the reserved challenge tag).
//  3. Pending: chain shorter than the minimum, or required collection
//     metadata missing.
//  4. Admissible: everything above passed.
func (c *Classifier) Classify(item *custody.EvidenceItem, history []*custody.CustodyEvent) custody.AdmissibilityStatus {
	if err := hashchain.VerifyChain(history); err != nil {
		return custody.AdmissibilityExcluded
	}
	if c.destroyedEarly(item, history) {
		return custody.AdmissibilityExcluded
	}
	if c.challenged(history) {
		return custody.AdmissibilityChallenged
	}
	if len(history) < c.config.MinChainEvents {
		return custody.AdmissibilityPending
	}
	if c.config.RequireCollectionMetadata && !hasCollectionMetadata(item) {
		return custody.AdmissibilityPending
	}
	return custody.AdmissibilityAdmissible
}

// destroyedEarly reports whether the item was destroyed before its
// preservation period elapsed, measured from the collection date.
func (c *Classifier) destroyedEarly(item *custody.EvidenceItem, history []*custody.CustodyEvent) bool {
	if c.config.PreservationPeriod <= 0 {
		return false
	}
	for _, event := range history {
		if event.Action != custody.ActionDestroyed {
			continue
		}
		collected := item.CollectionDate
		if collected.IsZero() && len(history) > 0 {
			collected = history[0].Timestamp
		}
		return event.Timestamp.Before(collected.Add(c.config.PreservationPeriod))
	}
	return false
}

// challenged reports whether any Analyzed event carries the reserved
// challenge tag in its notes.
func (c *Classifier) challenged(history []*custody.CustodyEvent) bool {
	if c.config.ChallengeTag == "" {
		return false
	}
	tag := strings.ToLower(c.config.ChallengeTag)
	for _, event := range history {
		if event.Action != custody.ActionAnalyzed {
			continue
		}
		if strings.Contains(strings.ToLower(event.Notes), tag) {
			return true
		}
	}
	return false
}

// hasCollectionMetadata reports whether the provenance fields are present.
func hasCollectionMetadata(item *custody.EvidenceItem) bool {
	return item.CollectedBy != "" && item.Location != "" && !item.CollectionDate.IsZero()
}
