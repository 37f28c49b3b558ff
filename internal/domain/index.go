package domain

import (
	"math"

	"github.com/dhconnelly/rtreego"
)

// bruteForceThreshold is the point-set size at or below which Nearest scans
// every point instead of consulting the R-tree. Small sets are faster to scan
// than to index, and the scan doubles as the reference implementation the
// index is tested against.
const bruteForceThreshold = 64

// minCosLat keeps the longitude scale factor away from zero near the poles.
const minCosLat = 0.05

// PointIndex answers nearest-neighbor queries over an immutable set of
// ground-condition points. Queries are safe for concurrent use: the index is
// read-only after construction.
//
// The R-tree stores coordinates in a local equirectangular projection
// (longitude scaled by the cosine of the data's mid latitude) so planar
// proximity approximates ground distance. The planar candidate only seeds a
// search window; the reported match is always the exact great-circle minimum
// over every point that could possibly beat the candidate.
type PointIndex struct {
	points    []Point
	tree      *rtreego.Rtree
	cosMid    float64
	maxAbsLat float64
}

// indexEntry adapts a loaded point to the rtreego.Spatial interface.
type indexEntry struct {
	rect rtreego.Rect
	idx  int
}

func (e *indexEntry) Bounds() rtreego.Rect { return e.rect }

// NewPointIndex builds an index over the given points. The slice is retained;
// callers must not mutate it afterwards.
func NewPointIndex(points []Point) *PointIndex {
	idx := &PointIndex{points: points, cosMid: 1}

	if len(points) == 0 {
		return idx
	}

	minLat, maxLat := points[0].Lat, points[0].Lat
	for _, p := range points {
		minLat = math.Min(minLat, p.Lat)
		maxLat = math.Max(maxLat, p.Lat)
		idx.maxAbsLat = math.Max(idx.maxAbsLat, math.Abs(p.Lat))
	}
	idx.cosMid = math.Max(math.Cos((minLat+maxLat)/2*math.Pi/180), minCosLat)

	if len(points) <= bruteForceThreshold {
		return idx
	}

	idx.tree = rtreego.NewTree(2, 25, 50)
	for i, p := range points {
		entry := &indexEntry{
			rect: rtreego.Point{p.Lon * idx.cosMid, p.Lat}.ToRect(1e-9),
			idx:  i,
		}
		idx.tree.Insert(entry)
	}
	return idx
}

// Size reports the number of indexed points.
func (idx *PointIndex) Size() int { return len(idx.points) }

// Nearest returns the point minimizing great-circle distance to the given
// coordinate, and that distance in kilometers. Ties at exactly equal distance
// resolve to the lowest load order. The boolean is false only for an empty
// index.
func (idx *PointIndex) Nearest(lon, lat float64) (Point, float64, bool) {
	if len(idx.points) == 0 {
		return Point{}, 0, false
	}
	if idx.tree == nil {
		return idx.scanNearest(lon, lat)
	}

	q := rtreego.Point{lon * idx.cosMid, lat}
	seed := idx.tree.NearestNeighbor(q).(*indexEntry)
	best := idx.points[seed.idx]
	bestDist := HaversineKm(lon, lat, best.Lon, best.Lat)

	// Any point closer on the sphere than bestDist differs by at most
	// bestDist km along a meridian and along the widest relevant parallel,
	// so a window of those half-widths around the query is guaranteed to
	// contain the true nearest point (and every tie).
	halfLat := bestDist/kmPerDegree + 1e-9
	bandLat := math.Min(idx.maxAbsLat+halfLat, 89.9)
	cosBand := math.Max(math.Cos(bandLat*math.Pi/180), minCosLat)
	halfX := bestDist/kmPerDegree*(idx.cosMid/cosBand) + 1e-9

	low := rtreego.Point{q[0] - halfX, q[1] - halfLat}
	size := []float64{2 * halfX, 2 * halfLat}

	// The tree stores longitudes in [-180, 180) scaled by cosMid. A window
	// reaching past either edge wraps around the antimeridian, so the
	// overhang must also be searched shifted by a full revolution or points
	// across the dateline stay invisible.
	windows := make([]rtreego.Rect, 0, 3)
	if w, err := rtreego.NewRect(low, size); err == nil {
		windows = append(windows, w)
	}
	revolution := 360 * idx.cosMid
	if low[0] < -180*idx.cosMid {
		if w, err := rtreego.NewRect(rtreego.Point{low[0] + revolution, low[1]}, size); err == nil {
			windows = append(windows, w)
		}
	}
	if low[0]+size[0] > 180*idx.cosMid {
		if w, err := rtreego.NewRect(rtreego.Point{low[0] - revolution, low[1]}, size); err == nil {
			windows = append(windows, w)
		}
	}

	for _, window := range windows {
		for _, s := range idx.tree.SearchIntersect(window) {
			p := idx.points[s.(*indexEntry).idx]
			d := HaversineKm(lon, lat, p.Lon, p.Lat)
			if d < bestDist || (d == bestDist && p.Seq < best.Seq) {
				best, bestDist = p, d
			}
		}
	}
	return best, bestDist, true
}

// scanNearest is the exhaustive reference search. Points are stored in load
// order, so keeping the first strict minimum implements the tie-break.
func (idx *PointIndex) scanNearest(lon, lat float64) (Point, float64, bool) {
	best := idx.points[0]
	bestDist := HaversineKm(lon, lat, best.Lon, best.Lat)
	for _, p := range idx.points[1:] {
		if d := HaversineKm(lon, lat, p.Lon, p.Lat); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, bestDist, true
}
