package domain

import "math"

// DepthFunc derives a basin-depth parameter from a vs30 value. The regression
// coefficients are a ground-motion-science concern, so callers inject the
// formula rather than this package hard-coding one.
type DepthFunc func(vs30 float64) float64

// DeriveOptions configures the optional output columns for a run. A nil
// function leaves the corresponding column out entirely; partial requests
// (say, z1pt0 without z2pt5) are fine.
type DeriveOptions struct {
	Z1pt0 DepthFunc
	Z2pt5 DepthFunc
	// Vs30Measured emits the vs30measured flag column. Prepared models mark
	// every row as inferred; measured-vs-inferred attribution would have to
	// come from the source files, which do not carry it.
	Vs30Measured bool
}

// Fields reports which optional columns the options enable.
func (o DeriveOptions) Fields() Fields {
	return Fields{
		Z1pt0:        o.Z1pt0 != nil,
		Z2pt5:        o.Z2pt5 != nil,
		Vs30Measured: o.Vs30Measured,
	}
}

// DeriveRecord builds the output row for an accepted association. The row
// keeps the target's coordinate, never the matched point's.
func DeriveRecord(a Association, opts DeriveOptions) SiteRecord {
	rec := SiteRecord{
		Lon:  a.Target.Lon,
		Lat:  a.Target.Lat,
		Vs30: a.Point.Vs30,
	}
	if opts.Z1pt0 != nil {
		rec.Z1pt0 = opts.Z1pt0(a.Point.Vs30)
	}
	if opts.Z2pt5 != nil {
		rec.Z2pt5 = opts.Z2pt5(a.Point.Vs30)
	}
	return rec
}

// DefaultZ1pt0 is the California-calibrated vs30 to z1pt0 relation:
//
//	ln z1pt0 [m] = -7.15/4 * ln((vs30^4 + 571^4) / (1360^4 + 571^4))
func DefaultZ1pt0(vs30 float64) float64 {
	v4 := math.Pow(vs30, 4)
	return math.Exp(-7.15 / 4 * math.Log((v4+math.Pow(571, 4))/(math.Pow(1360, 4)+math.Pow(571, 4))))
}

// DefaultZ2pt5 is the California-calibrated vs30 to z2pt5 relation:
//
//	ln z2pt5 [km] = 7.089 - 1.144 * ln vs30
func DefaultZ2pt5(vs30 float64) float64 {
	return math.Exp(7.089 - 1.144*math.Log(vs30))
}
