package allocation

import (
	"context"

	"github.com/pkg/errors"

	"github.com/vsinha/relief/pkg/domain/entities"
)

// ReconcileResult holds the outcome of a reconciliation sweep
type ReconcileResult struct {
	// Records are the new Allocated records created by the sweep
	Records []entities.AllocationRecord
	// Resolved holds the Pending records whose remaining units reached zero,
	// as they read after the sweep
	Resolved []entities.AllocationRecord
	// Outstanding counts Pending records still owed units after the sweep
	Outstanding int
}

// ReconcilePending re-attempts every outstanding Pending record against the
// current stock. Hubs are scanned in stored order and the first hub with
// stock wins. Each draw appends a new Allocated record to the camp; the
// Pending record tracks what is left and flips to Allocated across hubs once
// nothing remains. Records that are already settled are never touched.
func (e *Engine) ReconcilePending(ctx context.Context, snapshot *entities.Snapshot) (*ReconcileResult, error) {
	result := &ReconcileResult{
		Records:  []entities.AllocationRecord{},
		Resolved: []entities.AllocationRecord{},
	}

	for _, camp := range snapshot.ReliefCamps {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "reconciliation interrupted")
		}

		var filled []entities.AllocationRecord
		for i := range camp.Allocations {
			record := &camp.Allocations[i]
			if !record.IsOutstanding() {
				continue
			}

			remaining := record.UnitsRemaining
			for _, hub := range snapshot.Hubs {
				if remaining <= 0 {
					break
				}
				if taken := hub.Draw(record.Resource, remaining); taken > 0 {
					remaining -= taken
					filled = append(filled, e.allocated(record.Resource, camp.Name, hub.Name, taken))
				}
			}

			record.UnitsRemaining = remaining
			if remaining > 0 {
				result.Outstanding++
				continue
			}
			record.Status = entities.StatusAllocated
			record.Hub = entities.HubMultiple
			record.Note = entities.NoteAllocatedAcrossHubs
			result.Resolved = append(result.Resolved, *record)
		}

		camp.Append(filled...)
		result.Records = append(result.Records, filled...)
	}

	return result, nil
}
