package entities

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPriority_Rank(t *testing.T) {
	tests := []struct {
		priority Priority
		rank     int
	}{
		{PriorityChildren, 1},
		{PriorityElderly, 2},
		{PriorityWomen, 3},
		{PriorityMen, 4},
		{"", 4},
		{"unknown", 4},
	}

	for _, tt := range tests {
		if got := tt.priority.Rank(); got != tt.rank {
			t.Errorf("Priority %q: expected rank %d, got %d", tt.priority, tt.rank, got)
		}
	}
}

func TestAllocationRequest_Valid(t *testing.T) {
	tests := []struct {
		name    string
		request AllocationRequest
		valid   bool
	}{
		{"valid", AllocationRequest{Resource: "water", Units: 5}, true},
		{"missing resource", AllocationRequest{Units: 5}, false},
		{"zero units", AllocationRequest{Resource: "water"}, false},
		{"negative units", AllocationRequest{Resource: "water", Units: -1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.request.Valid(); got != tt.valid {
				t.Errorf("Expected valid=%t, got %t", tt.valid, got)
			}
		})
	}
}

func TestAllocationRecord_UnmarshalLegacyNotes(t *testing.T) {
	tests := []struct {
		name          string
		payload       string
		expectedUnits Units
		expectedNote  string
	}{
		{
			name:          "numeric units",
			payload:       `{"resource":"water","allocated_to":"C1","hub":"A","allocated_units":7,"status":"Allocated"}`,
			expectedUnits: 7,
		},
		{
			name:          "unfulfilled note",
			payload:       `{"resource":"water","allocated_to":"C1","hub":"N/A","allocated_units":"Not fully allocated"}`,
			expectedUnits: 0,
			expectedNote:  NoteNotFullyAllocated,
		},
		{
			name:          "across hubs note",
			payload:       `{"resource":"food","allocated_to":"C1","hub":"Multiple","allocated_units":"Allocated across hubs","status":"Allocated","units_remaining":0}`,
			expectedUnits: 0,
			expectedNote:  NoteAllocatedAcrossHubs,
		},
		{
			name:          "whole float units",
			payload:       `{"resource":"water","allocated_to":"C1","hub":"A","allocated_units":7.0,"status":"Allocated"}`,
			expectedUnits: 7,
		},
		{
			name:          "quoted number",
			payload:       `{"resource":"food","allocated_to":"C1","hub":"A","allocated_units":"4"}`,
			expectedUnits: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var record AllocationRecord
			if err := json.Unmarshal([]byte(tt.payload), &record); err != nil {
				t.Fatalf("Failed to decode record: %v", err)
			}
			if record.AllocatedUnits != tt.expectedUnits {
				t.Errorf("Expected %d units, got %d", tt.expectedUnits, record.AllocatedUnits)
			}
			if record.Note != tt.expectedNote {
				t.Errorf("Expected note %q, got %q", tt.expectedNote, record.Note)
			}
			if record.AllocatedTo != "C1" {
				t.Errorf("Expected allocated_to C1, got %q", record.AllocatedTo)
			}
		})
	}
}

func TestAllocationRecord_IsOutstanding(t *testing.T) {
	pending := AllocationRecord{Status: StatusPending, UnitsRemaining: 3}
	if !pending.IsOutstanding() {
		t.Error("Expected pending record with remaining units to be outstanding")
	}

	settled := AllocationRecord{Status: StatusPending, UnitsRemaining: 0}
	if settled.IsOutstanding() {
		t.Error("Expected pending record with zero remaining to be settled")
	}

	allocated := AllocationRecord{Status: StatusAllocated, AllocatedUnits: 3}
	if allocated.IsOutstanding() {
		t.Error("Expected allocated record to be settled")
	}
}

func TestAllocationRecord_MarshalUnitsRemaining(t *testing.T) {
	tests := []struct {
		name   string
		record AllocationRecord
		want   string
	}{
		{"allocated omits remaining", AllocationRecord{Hub: "A", AllocatedUnits: 3, Status: StatusAllocated}, ""},
		{"pending carries remaining", AllocationRecord{Hub: HubUnfulfilled, Status: StatusPending, UnitsRemaining: 4}, `"units_remaining":4`},
		{"settled keeps zero", AllocationRecord{Hub: HubMultiple, Status: StatusAllocated, Note: NoteAllocatedAcrossHubs}, `"units_remaining":0`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := json.Marshal(tt.record)
			if err != nil {
				t.Fatalf("Failed to encode record: %v", err)
			}
			if tt.want == "" {
				if strings.Contains(string(encoded), "units_remaining") {
					t.Errorf("Expected no units_remaining in %s", encoded)
				}
				return
			}
			if !strings.Contains(string(encoded), tt.want) {
				t.Errorf("Expected %s in %s", tt.want, encoded)
			}
			if strings.Count(string(encoded), "units_remaining") != 1 {
				t.Errorf("Expected a single units_remaining key in %s", encoded)
			}

			var decoded AllocationRecord
			if err := json.Unmarshal(encoded, &decoded); err != nil {
				t.Fatalf("Failed to decode record: %v", err)
			}
			if decoded != tt.record {
				t.Errorf("Expected %+v after round trip, got %+v", tt.record, decoded)
			}
		})
	}
}
