// Package domain models the preparation of seismic site models: the
// association of target locations with point-sampled ground-condition data.
//
// # Data Source
//
// Ground-condition files are plain CSV tables with three columns and no
// header:
//
//	longitude, latitude, vs30
//
// Vs30 is the time-averaged shear-wave velocity over the top 30 m of soil,
// in m/s, the standard soil-stiffness proxy consumed by ground-motion models.
// Several files may be loaded for one run (e.g. one per country or per survey
// campaign); rows keep their file-then-row load order and are never
// deduplicated across files.
//
// # Target sites
//
// The locations needing parameters come from one of two modes:
//
//	Deduplicated mode: explicit site coordinates and/or asset (exposure)
//	locations, collapsed to unique (lon, lat) pairs. Equality is bit-exact
//	on the float64 pair; no rounding or tolerance is applied, and the first
//	occurrence wins so ordering is stable.
//
//	Grid mode: a regular lattice laid over the bounding extent of the input
//	coordinates, with the configured spacing in kilometers converted to
//	degree steps at the extent's mid latitude so cells are roughly square on
//	the ground. Only cells containing at least one input coordinate are
//	kept; each surviving cell is represented by its centroid. Gridding
//	trades a bounded coordinate displacement (at most half a cell diagonal)
//	for a much smaller site count downstream.
//
// # Association
//
// Every target site is matched to the closest ground-condition point by
// great-circle distance on a 6371 km sphere. Matches farther than the
// configured cutoff (5 km unless overridden) are discarded with a warning;
// a discard is an expected outcome, not an error, and never affects other
// targets. Ties at exactly equal distance resolve to the earliest-loaded
// point, so results do not depend on index traversal order.
//
// The output row always carries the target's own coordinate, never the
// matched point's: the matched point only donates its vs30 value.
//
// # Derived parameters
//
// Basin-depth proxies z1pt0 (depth to the 1.0 km/s velocity horizon, meters)
// and z2pt5 (depth to 2.5 km/s, kilometers) can be derived from vs30 via
// injected regression functions; the coefficients belong to ground-motion
// science, not to this pipeline, so [DeriveOptions] accepts any
// func(float64) float64. The shipped defaults are the widely used
// California-calibrated forms. A vs30measured flag column can also be
// emitted; prepared models mark every row as inferred.
package domain
