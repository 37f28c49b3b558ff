package domain

import "math"

const (
	// earthRadiusKm is the mean spherical earth radius used throughout.
	earthRadiusKm = 6371.0

	// kmPerDegree is the length of one degree of latitude (or of longitude
	// at the equator) on that sphere, ~111.195 km.
	kmPerDegree = 2 * math.Pi * earthRadiusKm / 360
)

// HaversineKm returns the great-circle distance in kilometers between two
// lon/lat coordinates in degrees. The planar small-angle approximation is not
// good enough here: inputs span whole degrees and the association cutoff is
// on the order of kilometers.
func HaversineKm(lon1, lat1, lon2, lat2 float64) float64 {
	const degToRad = math.Pi / 180

	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lon2 - lon1) * degToRad

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
