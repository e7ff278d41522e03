package testing

import (
	"fmt"
	"sync/atomic"

	"github.com/vsinha/relief/pkg/domain/entities"
)

// KmPerDegreeLat is the haversine length of one degree of latitude
const KmPerDegreeLat = 111.19492664455873

// mustCreateHub is a helper for tests - panics on validation error
func mustCreateHub(name string, location entities.Location, resources map[entities.Resource]entities.Units) *entities.Hub {
	hub, err := entities.NewHub(name, location, resources)
	if err != nil {
		panic(err)
	}
	return hub
}

// LocationNorthOfOrigin returns a point km kilometers due north of (0, 0)
func LocationNorthOfOrigin(km float64) entities.Location {
	return entities.Location{Lat: km / KmPerDegreeLat, Lon: 0}
}

// BuildTwoHubScenario builds hubs A(water=5 at 0,0) and B(water=10 at 1,1)
// with a single camp
func BuildTwoHubScenario(campName string) *entities.Snapshot {
	return &entities.Snapshot{
		Hubs: []*entities.Hub{
			mustCreateHub("A", entities.Location{Lat: 0, Lon: 0}, map[entities.Resource]entities.Units{"water": 5}),
			mustCreateHub("B", entities.Location{Lat: 1, Lon: 1}, map[entities.Resource]entities.Units{"water": 10}),
		},
		ReliefCamps: []*entities.ReliefCamp{
			{Name: campName, Allocations: []entities.AllocationRecord{}},
		},
	}
}

// BuildDistanceScenario builds three hubs at 10, 50 and 5 km north of the
// origin, in that stored order, each holding units of resource
func BuildDistanceScenario(resource entities.Resource, units entities.Units, campName string) *entities.Snapshot {
	return &entities.Snapshot{
		Hubs: []*entities.Hub{
			mustCreateHub("HUB_10KM", LocationNorthOfOrigin(10), map[entities.Resource]entities.Units{resource: units}),
			mustCreateHub("HUB_50KM", LocationNorthOfOrigin(50), map[entities.Resource]entities.Units{resource: units}),
			mustCreateHub("HUB_5KM", LocationNorthOfOrigin(5), map[entities.Resource]entities.Units{resource: units}),
		},
		ReliefCamps: []*entities.ReliefCamp{
			{Name: campName, Allocations: []entities.AllocationRecord{}},
		},
	}
}

// BuildEvenHubsScenario builds hubCount hubs named HUB_1..HUB_n each holding
// units of resource, plus the named camps
func BuildEvenHubsScenario(hubCount int, resource entities.Resource, units entities.Units, campNames ...string) *entities.Snapshot {
	snapshot := entities.NewSnapshot()
	for i := 1; i <= hubCount; i++ {
		snapshot.Hubs = append(snapshot.Hubs, mustCreateHub(
			fmt.Sprintf("HUB_%d", i),
			entities.Location{Lat: float64(i), Lon: float64(i)},
			map[entities.Resource]entities.Units{resource: units},
		))
	}
	for _, name := range campNames {
		snapshot.ReliefCamps = append(snapshot.ReliefCamps, &entities.ReliefCamp{
			Name:        name,
			Allocations: []entities.AllocationRecord{},
		})
	}
	return snapshot
}

// SequentialIDs returns a record ID generator producing rec-1, rec-2, ...
func SequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("rec-%d", n.Add(1))
	}
}

// TotalStock sums a resource across all hubs
func TotalStock(snapshot *entities.Snapshot, resource entities.Resource) entities.Units {
	var total entities.Units
	for _, hub := range snapshot.Hubs {
		total += hub.Available(resource)
	}
	return total
}

// CheckNonNegative reports the first hub holding negative stock
func CheckNonNegative(snapshot *entities.Snapshot) error {
	for _, hub := range snapshot.Hubs {
		for resource, units := range hub.Resources {
			if units < 0 {
				return fmt.Errorf("hub %s has negative %s: %d", hub.Name, resource, units)
			}
		}
	}
	return nil
}
