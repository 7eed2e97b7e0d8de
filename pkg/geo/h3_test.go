package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellRes8(t *testing.T) {
	t.Run("stable for the same coordinates", func(t *testing.T) {
		a, err := CellRes8(50.8503, 4.3517)
		require.NoError(t, err)
		b, err := CellRes8(50.8503, 4.3517)
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.NotZero(t, a)
	})

	t.Run("nearby points share a cell", func(t *testing.T) {
		// ~11m apart, far inside one res-8 cell
		a, err := CellRes8(50.8503, 4.3517)
		require.NoError(t, err)
		b, err := CellRes8(50.8504, 4.3517)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("distant points land in different cells", func(t *testing.T) {
		a, err := CellRes8(50.8503, 4.3517)
		require.NoError(t, err)
		b, err := CellRes8(48.8566, 2.3522)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}

func TestDiskCellsRes8(t *testing.T) {
	t.Run("contains the origin cell", func(t *testing.T) {
		origin, err := CellRes8(50.8503, 4.3517)
		require.NoError(t, err)

		cells, err := DiskCellsRes8(50.8503, 4.3517, 100)
		require.NoError(t, err)
		assert.Contains(t, cells, origin)
	})

	t.Run("covers a neighbor within the radius", func(t *testing.T) {
		cells, err := DiskCellsRes8(50.8503, 4.3517, 100)
		require.NoError(t, err)

		// a point 90m north must fall inside the disk
		neighborCell, err := CellRes8(50.85111, 4.3517)
		require.NoError(t, err)
		assert.Contains(t, cells, neighborCell)
	})

	t.Run("larger radius yields more cells", func(t *testing.T) {
		small, err := DiskCellsRes8(50.8503, 4.3517, 100)
		require.NoError(t, err)
		large, err := DiskCellsRes8(50.8503, 4.3517, 5000)
		require.NoError(t, err)
		assert.Greater(t, len(large), len(small))
	})
}

func TestDiskK(t *testing.T) {
	assert.Equal(t, 0, diskK(0))
	assert.Equal(t, 0, diskK(-10))
	// anything up to one edge length needs k=2 to over-cover edge positions
	assert.Equal(t, 2, diskK(100))
	assert.Equal(t, 2, diskK(461))
	assert.Equal(t, 3, diskK(500))
}
