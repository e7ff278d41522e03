package shared

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vsinha/relief/pkg/domain/entities"
)

// AllocationContext summarizes what a camp has received of one resource
type AllocationContext struct {
	Allocated   entities.Units
	Outstanding entities.Units
	// Unfulfilled counts legacy shortfall records that carry a note but no
	// remaining amount, so the size of the gap is unknown
	Unfulfilled int
}

// CoverageEntry is one camp and resource row of an AllocationMap
type CoverageEntry struct {
	Camp     string
	Resource entities.Resource
	AllocationContext
}

// AllocationMap manages allocation context by camp and resource
type AllocationMap map[string]*AllocationContext

// NewAllocationMapFromSnapshot folds every camp history into per camp and
// resource totals
func NewAllocationMapFromSnapshot(snapshot *entities.Snapshot) AllocationMap {
	allocMap := make(AllocationMap)
	for _, camp := range snapshot.ReliefCamps {
		for _, record := range camp.Allocations {
			allocMap.Record(camp.Name, record)
		}
	}
	return allocMap
}

// Record adds one history record to the totals
func (am AllocationMap) Record(camp string, record entities.AllocationRecord) {
	key := am.makeKey(camp, record.Resource)
	ctx, ok := am[key]
	if !ok {
		ctx = &AllocationContext{}
		am[key] = ctx
	}

	ctx.Allocated += record.AllocatedUnits
	switch {
	case record.IsOutstanding():
		ctx.Outstanding += record.UnitsRemaining
	case record.Status == "" && record.Hub == entities.HubUnfulfilled:
		ctx.Unfulfilled++
	}
}

// Entries returns every row sorted by camp then resource
func (am AllocationMap) Entries() []CoverageEntry {
	entries := make([]CoverageEntry, 0, len(am))
	for key, context := range am {
		if camp, resource, found := am.parseKey(key); found {
			entries = append(entries, CoverageEntry{Camp: camp, Resource: resource, AllocationContext: *context})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Camp != entries[j].Camp {
			return entries[i].Camp < entries[j].Camp
		}
		return entries[i].Resource < entries[j].Resource
	})
	return entries
}

// GetTotalAllocated returns the total allocated units across all rows
func (am AllocationMap) GetTotalAllocated() entities.Units {
	var total entities.Units
	for _, context := range am {
		total += context.Allocated
	}
	return total
}

// GetTotalOutstanding returns the units still owed across all rows
func (am AllocationMap) GetTotalOutstanding() entities.Units {
	var total entities.Units
	for _, context := range am {
		total += context.Outstanding
	}
	return total
}

// GetCoverageRatio returns allocated / (allocated + outstanding), 0 when
// nothing was requested
func (am AllocationMap) GetCoverageRatio() float64 {
	allocated := am.GetTotalAllocated()
	demand := allocated + am.GetTotalOutstanding()
	if demand == 0 {
		return 0.0
	}
	return float64(allocated) / float64(demand)
}

// makeKey creates a consistent key for camp and resource. Camp names may
// contain any character, so the resource is placed first and split on the
// first separator.
func (am AllocationMap) makeKey(camp string, resource entities.Resource) string {
	return fmt.Sprintf("%s|%s", resource, camp)
}

// parseKey extracts camp and resource from a key
func (am AllocationMap) parseKey(key string) (string, entities.Resource, bool) {
	resource, camp, found := strings.Cut(key, "|")
	if !found {
		return "", "", false
	}
	return camp, entities.Resource(resource), true
}

