package tracking

import "math"

const earthRadiusKm = 6371

// DistanceKm returns the great-circle distance between two coordinates using
// the haversine formula. Identical endpoints yield exactly 0 and the function
// is symmetric in its arguments.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	latDistance := toRadians(lat2 - lat1)
	lonDistance := toRadians(lon2 - lon1)

	a := math.Sin(latDistance/2)*math.Sin(latDistance/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(lonDistance/2)*math.Sin(lonDistance/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
