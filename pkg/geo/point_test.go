package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineDistance(t *testing.T) {
	t.Run("zero for identical points", func(t *testing.T) {
		p := Point{Lat: 50.8503, Lng: 4.3517}
		assert.Equal(t, 0.0, p.HaversineDistance(p))
	})

	t.Run("symmetric", func(t *testing.T) {
		a := Point{Lat: 50.8503, Lng: 4.3517}
		b := Point{Lat: 48.8566, Lng: 2.3522}
		assert.InDelta(t, a.HaversineDistance(b), b.HaversineDistance(a), 1e-9)
	})

	t.Run("street-scale distance", func(t *testing.T) {
		// one ten-thousandth of a degree of latitude is ~11m
		a := Point{Lat: 50.8503, Lng: 4.3517}
		b := Point{Lat: 50.8504, Lng: 4.3517}
		assert.InDelta(t, 11.1, a.HaversineDistance(b), 0.5)
	})

	t.Run("city-scale distance", func(t *testing.T) {
		// Brussels to Paris is ~264km
		brussels := Point{Lat: 50.8503, Lng: 4.3517}
		paris := Point{Lat: 48.8566, Lng: 2.3522}
		assert.InDelta(t, 264000, brussels.HaversineDistance(paris), 3000)
	})
}

func TestValidLatLng(t *testing.T) {
	assert.True(t, ValidLatLng(0, 0))
	assert.True(t, ValidLatLng(90, 180))
	assert.True(t, ValidLatLng(-90, -180))
	assert.False(t, ValidLatLng(90.1, 0))
	assert.False(t, ValidLatLng(0, 180.1))
	assert.False(t, ValidLatLng(-91, 0))
}
