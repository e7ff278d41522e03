package memory

import (
	"sync"

	"github.com/vsinha/relief/pkg/domain/entities"
	"github.com/vsinha/relief/pkg/domain/repositories"
)

// AllocationLog keeps allocation records for the lifetime of the process
type AllocationLog struct {
	mu      sync.RWMutex
	records []entities.AllocationRecord
}

// NewAllocationLog creates an empty in-memory allocation log
func NewAllocationLog() *AllocationLog {
	return &AllocationLog{
		records: []entities.AllocationRecord{},
	}
}

// Verify interface compliance
var _ repositories.AllocationLog = (*AllocationLog)(nil)

// Append adds records to the end of the log
func (l *AllocationLog) Append(records ...entities.AllocationRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, records...)
}

// All returns a copy of every record in append order
func (l *AllocationLog) All() []entities.AllocationRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	records := make([]entities.AllocationRecord, len(l.records))
	copy(records, l.records)
	return records
}

// Len returns the number of records logged
func (l *AllocationLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
