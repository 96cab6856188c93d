package query

import (
	"errors"
	"testing"
	"time"

	"custodia-hq/custodia/pkg/custody"
)

func TestValidate(t *testing.T) {
	early := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		filter  *custody.Filter
		wantErr bool
	}{
		{"zero filter is valid", &custody.Filter{}, false},
		{"valid type", &custody.Filter{Type: custody.TypePhysical}, false},
		{"invalid type", &custody.Filter{Type: "hologram"}, true},
		{"valid admissibility", &custody.Filter{Admissibility: custody.AdmissibilityChallenged}, false},
		{"invalid admissibility", &custody.Filter{Admissibility: "maybe"}, true},
		{"negative limit", &custody.Filter{Limit: -1}, true},
		{"limit at cap", &custody.Filter{Limit: MaxLimit}, false},
		{"limit over cap", &custody.Filter{Limit: MaxLimit + 1}, true},
		{"negative offset", &custody.Filter{Offset: -5}, true},
		{"valid sort", &custody.Filter{SortBy: "collection_date", SortOrder: "desc"}, false},
		{"invalid sort field", &custody.Filter{SortBy: "custodian"}, true},
		{"invalid sort order", &custody.Filter{SortBy: "title", SortOrder: "sideways"}, true},
		{"ordered date range", &custody.Filter{CollectedFrom: &early, CollectedTo: &late}, false},
		{"inverted date range", &custody.Filter{CollectedFrom: &late, CollectedTo: &early}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.filter)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var qerr *custody.QueryError
				if !errors.As(err, &qerr) {
					t.Errorf("Validate() returned %T, want *custody.QueryError", err)
				}
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	f := &custody.Filter{}
	ApplyDefaults(f)
	if f.Limit != DefaultLimit {
		t.Errorf("Limit = %d, want %d", f.Limit, DefaultLimit)
	}

	explicit := &custody.Filter{Limit: 7}
	ApplyDefaults(explicit)
	if explicit.Limit != 7 {
		t.Errorf("Limit = %d, want the explicit 7 preserved", explicit.Limit)
	}
}
