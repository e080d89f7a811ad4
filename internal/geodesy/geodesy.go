// Package geodesy provides spherical-Earth distance and projection math.
// All functions are pure; distances are in statute miles, headings in
// degrees clockwise from true north.
package geodesy

import "math"

// EarthRadiusMiles is the spherical Earth radius used for all calculations.
const EarthRadiusMiles = 3958.8

// Distance returns the great-circle distance in miles between two
// coordinates, using the haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := radians(lat1)
	lat2Rad := radians(lat2)
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(lat1Rad)*math.Cos(lat2Rad)*sinLon*sinLon
	return EarthRadiusMiles * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Project returns the coordinate reached by travelling distanceMiles from
// (lat, lon) along the given heading on a spherical Earth.
func Project(lat, lon, headingDeg, distanceMiles float64) (float64, float64) {
	angular := distanceMiles / EarthRadiusMiles
	headingRad := radians(headingDeg)
	latRad := radians(lat)

	newLatRad := math.Asin(
		math.Sin(latRad)*math.Cos(angular) +
			math.Cos(latRad)*math.Sin(angular)*math.Cos(headingRad))
	newLonRad := radians(lon) + math.Atan2(
		math.Sin(headingRad)*math.Sin(angular)*math.Cos(latRad),
		math.Cos(angular)-math.Sin(latRad)*math.Sin(newLatRad))

	return degrees(newLatRad), degrees(newLonRad)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
