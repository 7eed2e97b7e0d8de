// Package matching implements duplicate-location detection with a clear
// separation:
// - Scanner = pure read, spatially pruned pair finding
// - Scoring = pure arithmetic over (distance, similarity, city match)
// Persistence of candidates is the caller's concern, never the scanner's.
package matching

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/juniper/internal/repositories/location"
	"github.com/Ramsey-B/juniper/pkg/geo"
	"github.com/Ramsey-B/juniper/pkg/models"
	"github.com/Ramsey-B/juniper/pkg/tracing"
)

// scanChunkSize is how many locations are pulled per keyset page while
// walking the id space. Independent of the caller's result cap.
const scanChunkSize = 500

// ScanParams are the validated inputs of one scan.
type ScanParams struct {
	DistanceThresholdMeters float64
	NameSimilarityThreshold float64
	BatchSize               int
}

// Engine walks active canonical locations and emits scored candidate pairs.
// Read-only; safe to run concurrently with other scans.
type Engine struct {
	log          ectologger.Logger
	locationRepo *location.Repository
}

// NewEngine creates a new scan engine.
func NewEngine(log ectologger.Logger, locationRepo *location.Repository) *Engine {
	return &Engine{
		log:          log,
		locationRepo: locationRepo,
	}
}

// Scan finds cross-source pairs within the distance threshold whose names
// overlap enough (or that sit closer than the unconditional override
// distance), scores them, and returns them ordered by overall score
// descending with (id1, id2) ascending tie-breaks. The result is capped at
// params.BatchSize.
//
// Pairs are found by an h3 cell disk lookup around each location, so name
// similarity only runs for near neighbors rather than all pairs. Each pair
// is considered exactly once: partners are restricted to ids greater than
// the current location's id, which also yields location_id_1 < location_id_2.
func (e *Engine) Scan(ctx context.Context, params ScanParams) ([]models.CandidatePair, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.Scan")
	defer span.End()

	log := e.log.WithContext(ctx).WithFields(map[string]any{
		"distance_threshold_meters": params.DistanceThresholdMeters,
		"name_similarity_threshold": params.NameSimilarityThreshold,
		"batch_size":                params.BatchSize,
	})

	pairs := make([]models.CandidatePair, 0)
	afterID := ""
	scanned := 0

	for {
		// scans can be long; allow cancellation between pages
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, err := e.locationRepo.ListCanonicalBatch(ctx, afterID, scanChunkSize)
		if err != nil {
			log.WithError(err).Error("Failed to list canonical locations")
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		for i := range batch {
			loc := batch[i]

			cells, err := geo.DiskCellsRes8(loc.Latitude, loc.Longitude, params.DistanceThresholdMeters)
			if err != nil {
				log.WithError(err).WithFields(map[string]any{"location_id": loc.ID}).Warn("Failed to compute cell disk; skipping location")
				continue
			}

			neighbors, err := e.locationRepo.FindNeighbors(ctx, loc.ID, loc.Source, cells)
			if err != nil {
				log.WithError(err).WithFields(map[string]any{"location_id": loc.ID}).Error("Failed to query neighbors")
				return nil, err
			}

			for j := range neighbors {
				if pair, ok := scorePair(loc, neighbors[j], params); ok {
					pairs = append(pairs, pair)
				}
			}
		}

		scanned += len(batch)
		afterID = batch[len(batch)-1].ID
	}

	sortPairs(pairs)
	if params.BatchSize > 0 && len(pairs) > params.BatchSize {
		pairs = pairs[:params.BatchSize]
	}

	log.WithFields(map[string]any{
		"locations_scanned": scanned,
		"pairs_found":       len(pairs),
	}).Infof("Scan found %d candidate pairs", len(pairs))

	return pairs, nil
}

// scorePair applies the exact distance filter, the similarity threshold with
// its close-distance override, and the scoring arithmetic.
func scorePair(a, b models.Location, params ScanParams) (models.CandidatePair, bool) {
	distance := geo.Point{Lat: a.Latitude, Lng: a.Longitude}.
		HaversineDistance(geo.Point{Lat: b.Latitude, Lng: b.Longitude})
	if distance > params.DistanceThresholdMeters {
		return models.CandidatePair{}, false
	}

	similarity := TrigramSimilarity(a.Name, b.Name)
	if similarity < params.NameSimilarityThreshold && distance >= OverrideDistanceMeters {
		return models.CandidatePair{}, false
	}

	sameCity := SameCity(a.City, b.City)
	geoScore := GeoScore(distance, params.DistanceThresholdMeters)
	nameScore := NameScore(similarity)

	return models.CandidatePair{
		LocationID1:    a.ID,
		LocationID2:    b.ID,
		DistanceMeters: distance,
		NameSimilarity: similarity,
		SameCity:       sameCity,
		GeoScore:       geoScore,
		NameScore:      nameScore,
		OverallScore:   OverallScore(geoScore, nameScore, sameCity),
	}, true
}

// sortPairs orders by overall score descending, then (id1, id2) ascending so
// equal-score runs are deterministic.
func sortPairs(pairs []models.CandidatePair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].OverallScore != pairs[j].OverallScore {
			return pairs[i].OverallScore > pairs[j].OverallScore
		}
		if pairs[i].LocationID1 != pairs[j].LocationID1 {
			return pairs[i].LocationID1 < pairs[j].LocationID1
		}
		return pairs[i].LocationID2 < pairs[j].LocationID2
	})
}
