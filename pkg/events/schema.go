package events

// Event types published to the location events topic.
const (
	// EventTypeLocationMerged is emitted after a merge transaction commits.
	EventTypeLocationMerged = "location.merged"
	// EventTypeCandidatesFlagged is emitted when a populate cycle stores new
	// or rescored duplicate candidates.
	EventTypeCandidatesFlagged = "candidate.flagged"
)

// Event types consumed from the ingestion topic.
const (
	// EventTypeLocationIngested carries one geocoded source record from the
	// ingestion pipeline.
	EventTypeLocationIngested = "location.ingested"
)

// MergedPayload is the data body of a location.merged event.
type MergedPayload struct {
	SchemaVersion       string `json:"schema_version"`
	CanonicalLocationID string `json:"canonical_location_id"`
	MergedLocationID    string `json:"merged_location_id"`
	CandidateID         string `json:"candidate_id"`
	Redirected          bool   `json:"redirected"`
	MergedBy            string `json:"merged_by"`
	SourceCount         int    `json:"source_count"`
}

// FlaggedPayload is the data body of a candidate.flagged event.
type FlaggedPayload struct {
	SchemaVersion string `json:"schema_version"`
	AffectedCount int    `json:"affected_count"`
	MinConfidence int    `json:"min_confidence"`
}
