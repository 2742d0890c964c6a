package grid

import "math"

// EarthRadiusKM is the mean Earth radius used for geodesic distances.
const EarthRadiusKM = 6371.0

// HaversineKM returns the great-circle distance in kilometers between two
// lon/lat points in degrees.
func HaversineKM(lon1, lat1, lon2, lat2 float64) float64 {
	const degToRad = math.Pi / 180.0

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * EarthRadiusKM * math.Asin(math.Min(1, math.Sqrt(a)))
}

// PlanarKM returns the equirectangular approximation of the distance in
// kilometers between two lon/lat points, using the flat 1 degree = 111 km
// conversion on both axes.
func PlanarKM(lon1, lat1, lon2, lat2 float64) float64 {
	dx := (lon2 - lon1) * KMPerDegree
	dy := (lat2 - lat1) * KMPerDegree
	return math.Hypot(dx, dy)
}
