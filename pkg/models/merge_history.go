package models

import (
	"encoding/json"
	"time"
)

// MergeHistory is an append-only record of one merge. DataContributed holds
// the fields the losing record added to the canonical one, serialized as
// JSON so the audit trail survives schema changes.
type MergeHistory struct {
	ID                  string          `json:"id" db:"id"`
	CanonicalLocationID string          `json:"canonical_location_id" db:"canonical_location_id"`
	MergedLocationID    string          `json:"merged_location_id" db:"merged_location_id"`
	MergedSource        LocationSource  `json:"merged_source" db:"merged_source"`
	MergedExternalID    *string         `json:"merged_external_id,omitempty" db:"merged_external_id"`
	DataContributed     json.RawMessage `json:"data_contributed" db:"data_contributed"`
	MergedAt            time.Time       `json:"merged_at" db:"merged_at"`
	MergedBy            string          `json:"merged_by" db:"merged_by"`
}

// DataContribution enumerates what a merged-away record contributed to its
// canonical location. Only fields the winner was missing appear.
type DataContribution struct {
	City           *string `json:"city,omitempty"`
	AlternateName  *string `json:"alternate_name,omitempty"`
	SourceRecorded string  `json:"source_recorded"`
}
