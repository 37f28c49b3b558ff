package domain

import (
	"math"
	"strconv"
)

// BuildGrid lays a regular lattice over the bounding extent of the given
// coordinates and returns one target site per occupied cell, in row-major
// order from the southwest corner.
//
// The spacing in kilometers is converted to degree steps at the extent's mid
// latitude, so cells are approximately square on the ground within the data's
// latitude band. The lattice carries a one-cell margin on every side; margin
// cells can never contain a coordinate and are dropped with the rest of the
// empty cells. Each surviving cell is represented by its centroid and
// identified by its row-major cell index, which makes the synthesized set
// reproducible for identical inputs and spacing.
func BuildGrid(coords []Coordinate, spacingKm float64) []TargetSite {
	if len(coords) == 0 || spacingKm <= 0 {
		return nil
	}

	minLon, maxLon := coords[0].Lon, coords[0].Lon
	minLat, maxLat := coords[0].Lat, coords[0].Lat
	for _, c := range coords[1:] {
		minLon = math.Min(minLon, c.Lon)
		maxLon = math.Max(maxLon, c.Lon)
		minLat = math.Min(minLat, c.Lat)
		maxLat = math.Max(maxLat, c.Lat)
	}

	cosMid := math.Max(math.Cos((minLat+maxLat)/2*math.Pi/180), minCosLat)
	stepLat := spacingKm / kmPerDegree
	stepLon := spacingKm / (kmPerDegree * cosMid)

	// Interior cell counts: enough steps to span the extent, at least one.
	spanCols := int(math.Ceil((maxLon - minLon) / stepLon))
	if spanCols < 1 {
		spanCols = 1
	}
	spanRows := int(math.Ceil((maxLat - minLat) / stepLat))
	if spanRows < 1 {
		spanRows = 1
	}

	west := minLon - stepLon
	south := minLat - stepLat
	nCols := spanCols + 2
	nRows := spanRows + 2

	// Bucket relative to the extent origin, not the margin edge: subtracting
	// the shifted west/south edge first loses a ulp or two to cancellation
	// and can push an extent-edge coordinate into a margin cell. Indices are
	// clamped to the interior band on both ends, so extent-edge coordinates
	// always land in an interior cell.
	occupied := make(map[int]struct{}, len(coords))
	for _, c := range coords {
		col := int((c.Lon-minLon)/stepLon) + 1
		row := int((c.Lat-minLat)/stepLat) + 1
		occupied[clamp(row, 1, spanRows)*nCols+clamp(col, 1, spanCols)] = struct{}{}
	}

	out := make([]TargetSite, 0, len(occupied))
	for row := 0; row < nRows; row++ {
		for col := 0; col < nCols; col++ {
			cell := row*nCols + col
			if _, ok := occupied[cell]; !ok {
				continue
			}
			out = append(out, TargetSite{
				ID:  strconv.Itoa(cell),
				Lon: west + (float64(col)+0.5)*stepLon,
				Lat: south + (float64(row)+0.5)*stepLat,
			})
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
