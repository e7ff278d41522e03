package entities

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Hub sentinels used on allocation records
const (
	HubUnfulfilled = "N/A"
	HubMultiple    = "Multiple"
)

// Notes carried by records whose units were not granted by a single hub
const (
	NoteNotFullyAllocated   = "Not fully allocated"
	NoteAllocatedAcrossHubs = "Allocated across hubs"
)

// AllocationStatus represents the state of an allocation record
type AllocationStatus string

const (
	StatusAllocated AllocationStatus = "Allocated"
	StatusPending   AllocationStatus = "Pending"
)

// Priority is the population class a request serves
type Priority string

const (
	PriorityChildren Priority = "children"
	PriorityElderly  Priority = "elderly"
	PriorityWomen    Priority = "women"
	PriorityMen      Priority = "men"
)

// Rank orders priorities, lower is served first. Unknown or empty
// priorities rank with men.
func (p Priority) Rank() int {
	switch p {
	case PriorityChildren:
		return 1
	case PriorityElderly:
		return 2
	case PriorityWomen:
		return 3
	default:
		return 4
	}
}

// AllocationRequest is a transient demand for a resource on behalf of a camp.
// Units of zero or less mark a malformed request that allocators skip.
type AllocationRequest struct {
	ReliefCamp           string
	Resource             Resource
	Units                Units
	Priority             Priority
	TimeSinceLastRequest float64
}

// Valid reports whether allocators should act on the request
func (r AllocationRequest) Valid() bool {
	return r.Resource != "" && r.Units > 0
}

// AllocationRecord is a persisted allocation decision in a camp's history
type AllocationRecord struct {
	ID             string           `json:"id,omitempty"`
	Resource       Resource         `json:"resource"`
	AllocatedTo    string           `json:"allocated_to"`
	Hub            string           `json:"hub"`
	AllocatedUnits Units            `json:"allocated_units"`
	Status         AllocationStatus `json:"status,omitempty"`
	UnitsRemaining Units            `json:"units_remaining,omitempty"`
	Note           string           `json:"note,omitempty"`
}

// IsOutstanding reports whether the record still owes units to its camp
func (r *AllocationRecord) IsOutstanding() bool {
	return r.Status == StatusPending && r.UnitsRemaining > 0
}

// UnmarshalJSON accepts documents where allocated_units holds a text note
// instead of a number; those load as zero units with the note preserved.
func (r *AllocationRecord) UnmarshalJSON(data []byte) error {
	type plain AllocationRecord
	var raw struct {
		plain
		AllocatedUnits json.RawMessage `json:"allocated_units"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = AllocationRecord(raw.plain)
	units := bytes.TrimSpace(raw.AllocatedUnits)
	if len(units) == 0 || bytes.Equal(units, []byte("null")) {
		return nil
	}
	if units[0] == '"' {
		var note string
		if err := json.Unmarshal(units, &note); err != nil {
			return err
		}
		if n, err := strconv.ParseInt(note, 10, 64); err == nil {
			r.AllocatedUnits = Units(n)
			return nil
		}
		if r.Note == "" {
			r.Note = note
		}
		return nil
	}

	return json.Unmarshal(units, &r.AllocatedUnits)
}

// MarshalJSON writes units_remaining on every record that was ever Pending,
// including settled ones where it is zero
func (r AllocationRecord) MarshalJSON() ([]byte, error) {
	type plain AllocationRecord
	if r.Status != StatusPending && r.Hub != HubMultiple {
		return json.Marshal(plain(r))
	}
	return json.Marshal(struct {
		plain
		UnitsRemaining Units `json:"units_remaining"`
	}{plain(r), r.UnitsRemaining})
}
