package models

import (
	"time"
)

// LocationSource identifies the provider a location record came from
type LocationSource string

const (
	LocationSourceOSM          LocationSource = "osm"
	LocationSourceGooglePlaces LocationSource = "google_places"
	LocationSourceScraper      LocationSource = "scraper"
	LocationSourceManual       LocationSource = "manual"
)

// Location is a geocoded place record. Canonical locations represent a real
// place after deduplication; merged-away locations keep a single-hop
// reference to their canonical record and are never deleted.
type Location struct {
	ID           string         `json:"id" db:"id"`
	Name         string         `json:"name" db:"name"`
	Latitude     float64        `json:"latitude" db:"latitude"`
	Longitude    float64        `json:"longitude" db:"longitude"`
	City         *string        `json:"city,omitempty" db:"city"`
	Source       LocationSource `json:"source" db:"source"`
	IsActive     bool           `json:"is_active" db:"is_active"`
	IsCanonical  bool           `json:"is_canonical" db:"is_canonical"`
	CanonicalID  *string        `json:"canonical_id,omitempty" db:"canonical_id"`
	MergedAt     *time.Time     `json:"merged_at,omitempty" db:"merged_at"`
	SourceCount  int            `json:"source_count" db:"source_count"`
	LastSyncedAt *time.Time     `json:"last_synced_at,omitempty" db:"last_synced_at"`
	H3CellR8     int64          `json:"-" db:"h3_cell_r8"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// SourceMapping binds one external (source, external_id) pair to the
// canonical location it currently resolves to. Repointed on merge so
// re-ingestion of a merged-away record lands on the canonical row.
type SourceMapping struct {
	ID         string         `json:"id" db:"id"`
	ExternalID string         `json:"external_id" db:"external_id"`
	Source     LocationSource `json:"source" db:"source"`
	LocationID string         `json:"location_id" db:"location_id"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at" db:"updated_at"`
}

// LocationRecord is an ingested source record (Kafka input payload)
type LocationRecord struct {
	ExternalID string  `json:"external_id" validate:"required"`
	Source     string  `json:"source" validate:"required"`
	Name       string  `json:"name" validate:"required"`
	Latitude   float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude  float64 `json:"longitude" validate:"gte=-180,lte=180"`
	City       *string `json:"city,omitempty"`
}

// ResolveLocationResponse is returned when a location id is resolved to its
// canonical record. Redirected is true when the requested id had been merged
// away and the response carries a different location.
type ResolveLocationResponse struct {
	RequestedID string    `json:"requested_id"`
	Canonical   *Location `json:"canonical"`
	Redirected  bool      `json:"redirected"`
}
