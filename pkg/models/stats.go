package models

// DuplicateStats is a consistent snapshot of dedup progress. All counts are
// read in a single statement so they never disagree with each other.
type DuplicateStats struct {
	TotalLocations      int `json:"total_locations" db:"total_locations"`
	CanonicalLocations  int `json:"canonical_locations" db:"canonical_locations"`
	MergedLocations     int `json:"merged_locations" db:"merged_locations"`
	PendingCandidates   int `json:"pending_candidates" db:"pending_candidates"`
	ConfirmedCandidates int `json:"confirmed_candidates" db:"confirmed_candidates"`
	RejectedCandidates  int `json:"rejected_candidates" db:"rejected_candidates"`
	MergedCandidates    int `json:"merged_candidates" db:"merged_candidates"`
}
