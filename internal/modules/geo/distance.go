// README: Pure great-circle distance and travel-time estimation helpers.
package geo

import (
	"math"

	"fleet/internal/types"
)

const earthRadiusKm = 6371.0

// Average road speeds in km/h per vehicle class. Unknown classes fall back
// to the car speed.
const (
	speedBikeKmh = 25.0
	speedCarKmh  = 30.0
	speedAutoKmh = 20.0
)

// etaBuffer inflates straight-line travel time to account for the road network.
const etaBuffer = 1.2

// DistanceKm returns the haversine distance in kilometres between two points,
// rounded to two decimal places.
func DistanceKm(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return roundKm(earthRadiusKm * c)
}

// EstimateMinutes converts a distance into an ETA for the given vehicle class,
// inflated by the fixed road-network buffer and rounded to the nearest minute.
func EstimateMinutes(distanceKm float64, vehicleClass string) int {
	speed := speedCarKmh
	switch vehicleClass {
	case "bike":
		speed = speedBikeKmh
	case "auto":
		speed = speedAutoKmh
	case "car":
		speed = speedCarKmh
	}
	return int(math.Round(distanceKm / speed * 60 * etaBuffer))
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func roundKm(km float64) float64 {
	return math.Round(km*100) / 100
}
