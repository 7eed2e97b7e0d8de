package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/juniper/pkg/models"
)

func strPtr(s string) *string { return &s }

func testLocation(id, name string, lat, lng float64, source models.LocationSource, city *string) models.Location {
	return models.Location{
		ID:          id,
		Name:        name,
		Latitude:    lat,
		Longitude:   lng,
		City:        city,
		Source:      source,
		IsActive:    true,
		IsCanonical: true,
	}
}

func TestScorePair_DiacriticVariantNeighbors(t *testing.T) {
	// Two records of the same Brussels cafe, ~18m apart, one name with a
	// diacritic, from different sources
	a := testLocation("loc-a", "Cafe Central", 50.8503, 4.3517, models.LocationSourceOSM, strPtr("Brussels"))
	b := testLocation("loc-b", "Café Central", 50.8504, 4.3519, models.LocationSourceScraper, strPtr("Brussels"))

	params := ScanParams{
		DistanceThresholdMeters: 100,
		NameSimilarityThreshold: 0.4,
	}

	pair, ok := scorePair(a, b, params)
	require.True(t, ok)

	assert.Equal(t, "loc-a", pair.LocationID1)
	assert.Equal(t, "loc-b", pair.LocationID2)
	assert.InDelta(t, 18, pair.DistanceMeters, 4)
	assert.Equal(t, 1.0, pair.NameSimilarity)
	assert.True(t, pair.SameCity)
	assert.Equal(t, 100, pair.NameScore)
	assert.Equal(t, GeoScore(pair.DistanceMeters, 100), pair.GeoScore)
	assert.Equal(t, OverallScore(pair.GeoScore, 100, true), pair.OverallScore)
	assert.GreaterOrEqual(t, pair.OverallScore, 90)
}

func TestScorePair_CloseDistanceOverride(t *testing.T) {
	// Under 30m apart, pairs are emitted even when the names share nothing
	a := testLocation("loc-a", "Cafe Central", 50.8503, 4.3517, models.LocationSourceOSM, nil)
	b := testLocation("loc-b", "Burger Palace", 50.8504, 4.3519, models.LocationSourceScraper, nil)

	params := ScanParams{
		DistanceThresholdMeters: 100,
		NameSimilarityThreshold: 0.4,
	}

	pair, ok := scorePair(a, b, params)
	require.True(t, ok)
	assert.Less(t, pair.DistanceMeters, OverrideDistanceMeters)
	assert.Less(t, pair.NameSimilarity, 0.4)
}

func TestScorePair_DissimilarBeyondOverride(t *testing.T) {
	// ~50m apart with unrelated names: past the override distance the
	// similarity threshold applies
	a := testLocation("loc-a", "Cafe Central", 50.8503, 4.3517, models.LocationSourceOSM, nil)
	b := testLocation("loc-b", "Burger Palace", 50.85075, 4.3517, models.LocationSourceScraper, nil)

	params := ScanParams{
		DistanceThresholdMeters: 100,
		NameSimilarityThreshold: 0.4,
	}

	_, ok := scorePair(a, b, params)
	assert.False(t, ok)
}

func TestScorePair_DistancePrune(t *testing.T) {
	// Identical names 5km apart never pair under a 100m threshold
	a := testLocation("loc-a", "Cafe Central", 50.8503, 4.3517, models.LocationSourceOSM, nil)
	b := testLocation("loc-b", "Cafe Central", 50.8952, 4.3517, models.LocationSourceScraper, nil)

	params := ScanParams{
		DistanceThresholdMeters: 100,
		NameSimilarityThreshold: 0.4,
	}

	_, ok := scorePair(a, b, params)
	assert.False(t, ok)
}

func TestSortPairs(t *testing.T) {
	pairs := []models.CandidatePair{
		{LocationID1: "b", LocationID2: "c", OverallScore: 80},
		{LocationID1: "a", LocationID2: "d", OverallScore: 95},
		{LocationID1: "a", LocationID2: "c", OverallScore: 80},
		{LocationID1: "a", LocationID2: "b", OverallScore: 80},
	}

	sortPairs(pairs)

	// Highest score first, then (id1, id2) ascending within equal scores
	assert.Equal(t, 95, pairs[0].OverallScore)
	assert.Equal(t, "a", pairs[1].LocationID1)
	assert.Equal(t, "b", pairs[1].LocationID2)
	assert.Equal(t, "a", pairs[2].LocationID1)
	assert.Equal(t, "c", pairs[2].LocationID2)
	assert.Equal(t, "b", pairs[3].LocationID1)
}

func TestSortPairs_Deterministic(t *testing.T) {
	build := func() []models.CandidatePair {
		return []models.CandidatePair{
			{LocationID1: "c", LocationID2: "d", OverallScore: 70},
			{LocationID1: "a", LocationID2: "b", OverallScore: 70},
			{LocationID1: "b", LocationID2: "c", OverallScore: 90},
		}
	}

	first := build()
	second := build()
	sortPairs(first)
	sortPairs(second)

	assert.Equal(t, first, second)
}
