package events

import (
	"time"

	"github.com/vsinha/relief/pkg/domain/entities"
)

const (
	InventoryUpdatedEvent = "inventory.updated"

	AllocationRecordedEvent  = "allocation.recorded"
	AllocationPendingEvent   = "allocation.pending"
	PendingResolvedEvent     = "allocation.pending_resolved"
	AllocationCompletedEvent = "allocation.completed"

	PersistFailedEvent = "persist.failed"
)

// InventoryStream is the stream for events that concern the whole snapshot
const InventoryStream = "inventory"

// Strategy names the allocator that produced a record
type Strategy string

const (
	StrategyProximity  Strategy = "proximity"
	StrategyRoundRobin Strategy = "round_robin"
	StrategyReconcile  Strategy = "reconcile"
)

// AllEventTypes lists every relief event type
var AllEventTypes = []string{
	InventoryUpdatedEvent,
	AllocationRecordedEvent,
	AllocationPendingEvent,
	PendingResolvedEvent,
	AllocationCompletedEvent,
	PersistFailedEvent,
}

type InventoryUpdated struct {
	Hub    string                               `json:"hub"`
	Mode   string                               `json:"mode"`
	Deltas map[entities.Resource]entities.Units `json:"deltas"`
}

type AllocationRecorded struct {
	Strategy Strategy                  `json:"strategy"`
	Record   entities.AllocationRecord `json:"record"`
}

type AllocationPending struct {
	Strategy Strategy                  `json:"strategy"`
	Record   entities.AllocationRecord `json:"record"`
}

type PendingResolved struct {
	Record entities.AllocationRecord `json:"record"`
}

type AllocationCompleted struct {
	Strategy Strategy      `json:"strategy"`
	Requests int           `json:"requests"`
	Records  int           `json:"records"`
	Duration time.Duration `json:"duration"`
}

type PersistFailed struct {
	Operation string `json:"operation"`
	Error     string `json:"error"`
}

func NewInventoryUpdatedEvent(hub, mode string, deltas map[entities.Resource]entities.Units) Event {
	return NewEvent(InventoryUpdatedEvent, hub, InventoryUpdated{Hub: hub, Mode: mode, Deltas: deltas})
}

// NewRecordEvent classifies a freshly written record as allocated or pending
func NewRecordEvent(strategy Strategy, record entities.AllocationRecord) Event {
	if record.Status == entities.StatusPending {
		return NewEvent(AllocationPendingEvent, record.AllocatedTo, AllocationPending{Strategy: strategy, Record: record})
	}
	return NewEvent(AllocationRecordedEvent, record.AllocatedTo, AllocationRecorded{Strategy: strategy, Record: record})
}

func NewPendingResolvedEvent(record entities.AllocationRecord) Event {
	return NewEvent(PendingResolvedEvent, record.AllocatedTo, PendingResolved{Record: record})
}

func NewAllocationCompletedEvent(strategy Strategy, requests, records int, duration time.Duration) Event {
	return NewEvent(AllocationCompletedEvent, InventoryStream, AllocationCompleted{
		Strategy: strategy,
		Requests: requests,
		Records:  records,
		Duration: duration,
	})
}

func NewPersistFailedEvent(operation string, err error) Event {
	return NewEvent(PersistFailedEvent, InventoryStream, PersistFailed{Operation: operation, Error: err.Error()})
}
