package services

import (
	"cmp"
	"math"

	"golang.org/x/exp/slices"

	"github.com/vsinha/relief/pkg/domain/entities"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances
const EarthRadiusKm = 6371.0

// Haversine returns the great-circle distance between two locations in kilometers
func Haversine(from, to entities.Location) float64 {
	lat1, lat2 := toRadians(from.Lat), toRadians(to.Lat)
	dLat := lat2 - lat1
	dLon := toRadians(to.Lon - from.Lon)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// SortByDistance orders hubs nearest first from origin.
// Equidistant hubs keep their relative order.
func SortByDistance(origin entities.Location, hubs []*entities.Hub) {
	distances := make(map[*entities.Hub]float64, len(hubs))
	for _, hub := range hubs {
		distances[hub] = Haversine(origin, hub.Location)
	}
	slices.SortStableFunc(hubs, func(a, b *entities.Hub) int {
		return cmp.Compare(distances[a], distances[b])
	})
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
