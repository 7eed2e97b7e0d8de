package geo

import (
	"fmt"
	"math"

	"github.com/uber/h3-go/v4"
)

// Resolution 8 cells average a 461m edge, small enough that a disk of a few
// cells bounds any practical proximity threshold.
const (
	cellRes        = 8
	res8EdgeMeters = 461.35
)

// CellRes8 returns the resolution 8 cell index for the coordinates.
func CellRes8(lat, lng float64) (int64, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lng), cellRes)
	if err != nil {
		return 0, fmt.Errorf("error converting to h3 cell: %w", err)
	}
	return int64(cell), nil
}

// diskK returns the grid distance that over-covers radiusMeters around any
// point of the origin cell. Over-covering is fine; callers filter with exact
// distances.
func diskK(radiusMeters float64) int {
	if radiusMeters <= 0 {
		return 0
	}
	return int(math.Ceil(radiusMeters/res8EdgeMeters)) + 1
}

// DiskCellsRes8 returns every resolution 8 cell that could contain a point
// within radiusMeters of the coordinates.
func DiskCellsRes8(lat, lng, radiusMeters float64) ([]int64, error) {
	origin, err := h3.LatLngToCell(h3.NewLatLng(lat, lng), cellRes)
	if err != nil {
		return nil, fmt.Errorf("error converting to h3 cell: %w", err)
	}

	cells, err := h3.GridDisk(origin, diskK(radiusMeters))
	if err != nil {
		return nil, fmt.Errorf("error computing h3 disk: %w", err)
	}

	out := make([]int64, 0, len(cells))
	for _, cell := range cells {
		out = append(out, int64(cell))
	}
	return out, nil
}
