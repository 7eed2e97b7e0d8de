package matching

import (
	"math"
)

// Weights for combining the geographic and name signals into the overall
// confidence. Kept as constants: they were tuned against labeled pairs and
// changing them silently reshuffles every stored candidate score.
const (
	GeoWeight  = 0.4
	NameWeight = 0.5

	// CityBonus is added when both records carry the same city value.
	CityBonus = 10

	// OverrideDistanceMeters marks pairs so close together they are always
	// candidates, whatever their names look like. GPS noise at street level
	// regularly desynchronizes names of the same venue.
	OverrideDistanceMeters = 30.0
)

// GeoScore converts a distance into a 0-100 proximity score: 100 at zero
// distance, falling linearly to 0 at the threshold.
func GeoScore(distanceMeters, thresholdMeters float64) int {
	if thresholdMeters <= 0 {
		return 0
	}
	score := math.Round(100 * (1 - distanceMeters/thresholdMeters))
	if score < 0 {
		return 0
	}
	return int(score)
}

// NameScore converts a 0-1 similarity into a 0-100 score.
func NameScore(similarity float64) int {
	return int(math.Round(100 * similarity))
}

// SameCity reports whether both cities are present and equal. The comparison
// is case sensitive as stored; differently cased values are not assumed to be
// the same city.
func SameCity(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

// OverallScore combines the sub-scores into the confidence used for ranking
// and thresholds. Bounded to [0,100] by construction, but it is an
// informational confidence, not a probability.
func OverallScore(geoScore, nameScore int, sameCity bool) int {
	bonus := 0
	if sameCity {
		bonus = CityBonus
	}
	return int(math.Round(float64(geoScore)*GeoWeight + float64(nameScore)*NameWeight + float64(bonus)))
}
