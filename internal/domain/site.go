package domain

import "time"

// Coordinate is a bare WGS-84 longitude/latitude pair in degrees.
type Coordinate struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Point is one ground-condition sample loaded from a source file.
// Immutable once loaded.
type Point struct {
	Lon        float64
	Lat        float64
	Vs30       float64
	SourceFile string
	// Seq is the global load order (file order, then row order within a
	// file). It breaks exact-distance ties deterministically.
	Seq int
}

// TargetSite is one location awaiting site parameters. The ID is the explicit
// site id when one was supplied, the emission ordinal for deduplicated asset
// locations, or the row-major cell index in grid mode.
type TargetSite struct {
	ID  string
	Lon float64
	Lat float64
}

// Association pairs a target site with its nearest ground-condition point.
type Association struct {
	Target     TargetSite
	Point      Point
	DistanceKm float64
}

// Fields selects which optional columns a run emits.
type Fields struct {
	Z1pt0        bool
	Z2pt5        bool
	Vs30Measured bool
}

// SiteRecord is one output row. Optional fields are meaningful only when the
// run's Fields enable the corresponding column.
type SiteRecord struct {
	Lon          float64
	Lat          float64
	Vs30         float64
	Z1pt0        float64
	Z2pt5        float64
	Vs30Measured bool
}

// DiscardWarning reports a target site dropped because its nearest
// ground-condition point was beyond the association cutoff.
type DiscardWarning struct {
	RunID         string    `json:"run_id,omitempty"`
	Lon           float64   `json:"lon"`
	Lat           float64   `json:"lat"`
	SiteID        string    `json:"site_id,omitempty"`
	DistanceKm    float64   `json:"distance_km"`
	MaxDistanceKm float64   `json:"max_distance_km"`
	NearestFile   string    `json:"nearest_file,omitempty"`
	DiscardedAt   time.Time `json:"discarded_at"`
}

// NewDiscardWarning stamps a warning for a rejected association.
func NewDiscardWarning(runID string, a Association, maxDistanceKm float64) DiscardWarning {
	return DiscardWarning{
		RunID:         runID,
		Lon:           a.Target.Lon,
		Lat:           a.Target.Lat,
		SiteID:        a.Target.ID,
		DistanceKm:    a.DistanceKm,
		MaxDistanceKm: maxDistanceKm,
		NearestFile:   a.Point.SourceFile,
		DiscardedAt:   clock.Now().UTC(),
	}
}
