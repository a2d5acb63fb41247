// Package location contains pure geographic computation helpers.
package location

import (
	"math"

	"petcare/internal/types"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points in
// decimal degrees, rounded to 2 decimal places.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	return roundTo2(haversineKm(lat1, lng1, lat2, lng2))
}

// Between is DistanceKm for two points.
func Between(a, b types.Point) float64 {
	return DistanceKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
