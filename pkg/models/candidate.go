package models

import (
	"time"
)

// DuplicateCandidate is a scored pair of locations suspected to be the same
// place. The pair is stored once with location_id_1 < location_id_2.
type DuplicateCandidate struct {
	ID                string     `json:"id" db:"id"`
	LocationID1       string     `json:"location_id_1" db:"location_id_1"`
	LocationID2       string     `json:"location_id_2" db:"location_id_2"`
	GeoScore          int        `json:"geo_score" db:"geo_proximity_score"`
	NameScore         int        `json:"name_score" db:"name_similarity_score"`
	OverallConfidence int        `json:"overall_confidence" db:"overall_confidence"`
	DistanceMeters    float64    `json:"distance_meters" db:"distance_meters"`
	Status            string     `json:"status" db:"status"` // pending, confirmed, rejected, merged
	ResolvedAt        *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy        *string    `json:"resolved_by,omitempty" db:"resolved_by"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// DuplicateCandidate status values
const (
	CandidateStatusPending   = "pending"
	CandidateStatusConfirmed = "confirmed"
	CandidateStatusRejected  = "rejected"
	CandidateStatusMerged    = "merged"
)

// CandidatePair is one scored pairing produced by a scan. Unlike
// DuplicateCandidate it is not persisted; it carries the raw measurements
// alongside the derived scores.
type CandidatePair struct {
	LocationID1    string  `json:"location_id_1"`
	LocationID2    string  `json:"location_id_2"`
	DistanceMeters float64 `json:"distance_meters"`
	NameSimilarity float64 `json:"name_similarity"`
	SameCity       bool    `json:"same_city"`
	GeoScore       int     `json:"geo_score"`
	NameScore      int     `json:"name_score"`
	OverallScore   int     `json:"overall_score"`
}

// ScanRequest tunes a read-only duplicate scan. Zero values fall back to the
// service defaults.
type ScanRequest struct {
	DistanceThresholdMeters float64 `json:"distance_threshold_meters" validate:"gte=0"`
	NameSimilarityThreshold float64 `json:"name_similarity_threshold" validate:"gte=0,lte=1"`
	BatchSize               int     `json:"batch_size" validate:"gte=0"`
}

// ScanResponse carries the ordered pairs found by a scan
type ScanResponse struct {
	Pairs []CandidatePair `json:"pairs"`
	Count int             `json:"count"`
}

// PopulateRequest tunes a candidate population run
type PopulateRequest struct {
	DistanceThresholdMeters float64 `json:"distance_threshold_meters" validate:"gte=0"`
	MinConfidence           int     `json:"min_confidence" validate:"gte=0,lte=100"`
}

// PopulateResponse reports how many candidate rows were created or rescored
type PopulateResponse struct {
	AffectedCount int `json:"affected_count"`
}

// ResolveCandidateRequest records who confirmed or rejected a candidate
type ResolveCandidateRequest struct {
	ResolvedBy string `json:"resolved_by" validate:"required"`
}

// MergeCandidateRequest executes a merge for a confirmed candidate. WinnerID
// must be one of the candidate's two locations.
type MergeCandidateRequest struct {
	WinnerID string `json:"winner_id" validate:"required,uuid"`
	MergedBy string `json:"merged_by" validate:"required"`
}

// CandidateListResponse is a paginated page of candidates
type CandidateListResponse struct {
	Items      []DuplicateCandidate `json:"items"`
	TotalCount int                  `json:"total_count"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
}
