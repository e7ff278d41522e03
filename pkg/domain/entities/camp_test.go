package entities

import (
	"encoding/json"
	"testing"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	document := `{
		"hubs": [
			{"name": "A", "location": [0, 0], "resources": {"water": 5}},
			{"name": "B", "location": [1, 1], "resources": {"water": 10, "food": 2}}
		],
		"relief_camps": [
			{"name": "Camp 1", "allocations": [
				{"resource": "water", "allocated_to": "Camp 1", "hub": "N/A", "allocated_units": 0, "status": "Pending", "units_remaining": 4}
			]},
			{"name": "Camp 2"}
		]
	}`

	var snapshot Snapshot
	if err := json.Unmarshal([]byte(document), &snapshot); err != nil {
		t.Fatalf("Failed to decode snapshot: %v", err)
	}
	snapshot.Normalize()

	if len(snapshot.Hubs) != 2 || len(snapshot.ReliefCamps) != 2 {
		t.Fatalf("Expected 2 hubs and 2 camps, got %d and %d", len(snapshot.Hubs), len(snapshot.ReliefCamps))
	}
	if snapshot.FindCamp("Camp 2").Allocations == nil {
		t.Error("Expected Normalize to create an empty allocation list")
	}

	encoded, err := json.Marshal(&snapshot)
	if err != nil {
		t.Fatalf("Failed to encode snapshot: %v", err)
	}

	var decoded Snapshot
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Failed to decode encoded snapshot: %v", err)
	}
	decoded.Normalize()

	if decoded.FindHub("B").Available("water") != 10 {
		t.Errorf("Expected hub B water 10, got %d", decoded.FindHub("B").Available("water"))
	}
	pending := decoded.FindCamp("Camp 1").Allocations[0]
	if pending.Status != StatusPending || pending.UnitsRemaining != 4 {
		t.Errorf("Expected pending record with 4 remaining, got %+v", pending)
	}
}

func TestSnapshot_FindMissing(t *testing.T) {
	snapshot := NewSnapshot()
	if snapshot.FindHub("nope") != nil {
		t.Error("Expected nil hub")
	}
	if snapshot.FindCamp("nope") != nil {
		t.Error("Expected nil camp")
	}
}

func TestSnapshot_CloneIsDeep(t *testing.T) {
	snapshot := &Snapshot{
		Hubs:        []*Hub{{Name: "A", Resources: map[Resource]Units{"water": 5}}},
		ReliefCamps: []*ReliefCamp{{Name: "C", Allocations: []AllocationRecord{{Resource: "water", Status: StatusPending, UnitsRemaining: 2}}}},
		Version:     3,
	}

	clone := snapshot.Clone()
	clone.Hubs[0].Draw("water", 5)
	clone.ReliefCamps[0].Allocations[0].UnitsRemaining = 0
	clone.ReliefCamps[0].Append(AllocationRecord{Resource: "food"})

	if snapshot.Hubs[0].Available("water") != 5 {
		t.Error("Expected original hub stock untouched")
	}
	if snapshot.ReliefCamps[0].Allocations[0].UnitsRemaining != 2 {
		t.Error("Expected original record untouched")
	}
	if len(snapshot.ReliefCamps[0].Allocations) != 1 {
		t.Error("Expected original history length untouched")
	}
	if clone.Version != 3 {
		t.Errorf("Expected version to carry over, got %d", clone.Version)
	}
}
