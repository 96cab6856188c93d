package query

import (
	"sort"
	"strings"

	"custodia-hq/custodia/pkg/custody"
)

// Evaluate returns the items satisfying every active predicate of the
// filter, in input order unless the filter requests a sort. Pagination is
// applied after filtering and sorting. The returned slice holds the same
// pointers it was given; Evaluate never copies or mutates items.
func Evaluate(items []*custody.EvidenceItem, filter *custody.Filter) []*custody.EvidenceItem {
	if filter == nil {
		filter = &custody.Filter{}
	}

	results := make([]*custody.EvidenceItem, 0, len(items))
	for _, item := range items {
		if Matches(item, filter) {
			results = append(results, item)
		}
	}

	if filter.SortBy != "" {
		sortItems(results, filter.SortBy, filter.SortOrder)
	}

	return paginate(results, filter.Offset, filter.Limit)
}

// Matches reports whether a single item satisfies every active predicate.
func Matches(item *custody.EvidenceItem, filter *custody.Filter) bool {
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(item.Title), needle) &&
			!strings.Contains(strings.ToLower(item.Description), needle) {
			return false
		}
	}

	if filter.Type != "" && item.Type != filter.Type {
		return false
	}
	if filter.Admissibility != "" && item.Admissibility != filter.Admissibility {
		return false
	}

	if !containsFold(item.CaseID, filter.CaseID) {
		return false
	}
	if !containsFold(item.Custodian, filter.Custodian) {
		return false
	}
	if !containsFold(item.Location, filter.Location) {
		return false
	}
	if !containsFold(item.CollectedBy, filter.CollectedBy) {
		return false
	}

	if filter.CollectedFrom != nil && item.CollectionDate.Before(*filter.CollectedFrom) {
		return false
	}
	if filter.CollectedTo != nil && item.CollectionDate.After(*filter.CollectedTo) {
		return false
	}

	if len(filter.Tags) > 0 && !hasAnyTag(item.Tags, filter.Tags) {
		return false
	}

	if filter.HasIntegrityAnchor != nil {
		if *filter.HasIntegrityAnchor != (item.AnchorHash != "") {
			return false
		}
	}

	return true
}

// containsFold is a case-insensitive substring predicate. An empty needle
// imposes no constraint.
func containsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// hasAnyTag reports whether the item carries any of the wanted tags.
// Tag comparison is exact but case-insensitive.
func hasAnyTag(itemTags, wanted []string) bool {
	for _, w := range wanted {
		for _, t := range itemTags {
			if strings.EqualFold(t, w) {
				return true
			}
		}
	}
	return false
}

// sortItems orders results by the requested key. SortStable keeps items
// with equal keys in input order.
func sortItems(items []*custody.EvidenceItem, sortBy, sortOrder string) {
	less := func(a, b *custody.EvidenceItem) bool {
		switch sortBy {
		case "collection_date":
			return a.CollectionDate.Before(b.CollectionDate)
		case "updated_at":
			return a.UpdatedAt.Before(b.UpdatedAt)
		case "case_id":
			return a.CaseID < b.CaseID
		default: // "title"
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if sortOrder == "desc" {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}

// paginate applies offset and limit. A zero limit means no limit.
func paginate(items []*custody.EvidenceItem, offset, limit int) []*custody.EvidenceItem {
	if offset >= len(items) {
		return []*custody.EvidenceItem{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
