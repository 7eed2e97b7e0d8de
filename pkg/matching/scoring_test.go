package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeoScore(t *testing.T) {
	t.Run("zero distance scores 100", func(t *testing.T) {
		assert.Equal(t, 100, GeoScore(0, 100))
	})

	t.Run("falls linearly to the threshold", func(t *testing.T) {
		assert.Equal(t, 80, GeoScore(20, 100))
		assert.Equal(t, 50, GeoScore(50, 100))
		assert.Equal(t, 0, GeoScore(100, 100))
	})

	t.Run("beyond the threshold clamps to 0", func(t *testing.T) {
		assert.Equal(t, 0, GeoScore(150, 100))
	})

	t.Run("invalid threshold scores 0", func(t *testing.T) {
		assert.Equal(t, 0, GeoScore(10, 0))
		assert.Equal(t, 0, GeoScore(10, -5))
	})
}

func TestNameScore(t *testing.T) {
	assert.Equal(t, 100, NameScore(1.0))
	assert.Equal(t, 40, NameScore(0.4))
	assert.Equal(t, 0, NameScore(0))
	assert.Equal(t, 67, NameScore(0.666))
}

func TestSameCity(t *testing.T) {
	vienna := "Vienna"
	viennaAgain := "Vienna"
	graz := "Graz"

	assert.True(t, SameCity(&vienna, &viennaAgain))
	assert.False(t, SameCity(&vienna, &graz))
	assert.False(t, SameCity(&vienna, nil))
	assert.False(t, SameCity(nil, nil))
}

func TestOverallScore(t *testing.T) {
	t.Run("perfect pair with city bonus", func(t *testing.T) {
		// 100*0.4 + 100*0.5 + 10
		assert.Equal(t, 100, OverallScore(100, 100, true))
	})

	t.Run("perfect pair without city bonus", func(t *testing.T) {
		assert.Equal(t, 90, OverallScore(100, 100, false))
	})

	t.Run("weights the name signal heavier", func(t *testing.T) {
		geoOnly := OverallScore(100, 0, false)
		nameOnly := OverallScore(0, 100, false)
		assert.Equal(t, 40, geoOnly)
		assert.Equal(t, 50, nameOnly)
	})

	t.Run("zero scores", func(t *testing.T) {
		assert.Equal(t, 0, OverallScore(0, 0, false))
		assert.Equal(t, 10, OverallScore(0, 0, true))
	})
}
