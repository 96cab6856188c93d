package query

import (
	"fmt"

	"custodia-hq/custodia/pkg/custody"
)

const (
	// DefaultLimit is the number of items returned when no limit is set
	// by an HTTP or CLI caller.
	DefaultLimit = 100

	// MaxLimit caps the number of items a single query may return.
	MaxLimit = 10000
)

// ValidSortFields contains the fields that can be used for sorting.
var ValidSortFields = map[string]bool{
	"title":           true,
	"case_id":         true,
	"collection_date": true,
	"updated_at":      true,
}

// ValidSortOrders contains the valid sort orders.
var ValidSortOrders = map[string]bool{
	"asc":  true,
	"desc": true,
}

// Validate checks a filter and returns a QueryError for any invalid
// parameter. A zero-value filter is always valid: unset predicates impose
// no constraint.
func Validate(f *custody.Filter) error {
	if f.Limit < 0 {
		return custody.NewQueryError(f, fmt.Errorf("limit must be >= 0, got %d", f.Limit))
	}
	if f.Limit > MaxLimit {
		return custody.NewQueryError(f, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, f.Limit))
	}
	if f.Offset < 0 {
		return custody.NewQueryError(f, fmt.Errorf("offset must be >= 0, got %d", f.Offset))
	}

	if f.Type != "" && !f.Type.Valid() {
		return custody.NewQueryError(f, fmt.Errorf("invalid evidence type: %s", f.Type))
	}
	if f.Admissibility != "" && !f.Admissibility.Valid() {
		return custody.NewQueryError(f, fmt.Errorf("invalid admissibility status: %s", f.Admissibility))
	}

	if f.SortBy != "" && !ValidSortFields[f.SortBy] {
		return custody.NewQueryError(f, fmt.Errorf("invalid sort field: %s", f.SortBy))
	}
	if f.SortOrder != "" && !ValidSortOrders[f.SortOrder] {
		return custody.NewQueryError(f, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", f.SortOrder))
	}

	if f.CollectedFrom != nil && f.CollectedTo != nil {
		if f.CollectedFrom.After(*f.CollectedTo) {
			return custody.NewQueryError(f, fmt.Errorf("collected_from must be before collected_to"))
		}
	}

	return nil
}

// ApplyDefaults fills in the default limit for paginated callers. The
// query engine itself applies no default: programmatic callers that want
// the whole collection simply leave the limit unset.
func ApplyDefaults(f *custody.Filter) {
	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
}
