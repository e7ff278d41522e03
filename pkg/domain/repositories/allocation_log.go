package repositories

import "github.com/vsinha/relief/pkg/domain/entities"

// AllocationLog is an append-only record of allocations made while the
// process runs
type AllocationLog interface {
	Append(records ...entities.AllocationRecord)
	All() []entities.AllocationRecord
	Len() int
}
