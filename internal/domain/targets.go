package domain

import "strconv"

// MergeTargets collapses explicit sites and asset locations into one target
// set with exact duplicate coordinates removed. Equality is bit-exact on the
// (lon, lat) float64 pair; first occurrence wins, so the result preserves
// site order followed by asset order. Explicit sites keep their ids; targets
// synthesized from asset locations are numbered by emission position.
func MergeTargets(sites []TargetSite, assets []Coordinate) []TargetSite {
	seen := make(map[Coordinate]struct{}, len(sites)+len(assets))
	out := make([]TargetSite, 0, len(sites)+len(assets))

	for _, s := range sites {
		key := Coordinate{Lon: s.Lon, Lat: s.Lat}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}

	for _, c := range assets {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, TargetSite{
			ID:  strconv.Itoa(len(out)),
			Lon: c.Lon,
			Lat: c.Lat,
		})
	}

	return out
}
