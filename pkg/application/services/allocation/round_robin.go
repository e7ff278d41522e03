package allocation

import (
	"cmp"
	"context"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/vsinha/relief/pkg/domain/entities"
)

// RoundRobinResult holds the outcome of a round-robin pass
type RoundRobinResult struct {
	Records []entities.AllocationRecord
	// Cursor is the hub index the next pass should start from
	Cursor int
	// Skipped counts malformed requests and requests for unknown camps
	Skipped int
}

// SortByPriority orders requests by priority rank, then by longest wait.
// Requests equal on both keys keep their submission order.
func SortByPriority(requests []entities.AllocationRequest) []entities.AllocationRequest {
	sorted := make([]entities.AllocationRequest, len(requests))
	copy(sorted, requests)
	slices.SortStableFunc(sorted, func(a, b entities.AllocationRequest) int {
		if c := cmp.Compare(a.Priority.Rank(), b.Priority.Rank()); c != 0 {
			return c
		}
		return cmp.Compare(b.TimeSinceLastRequest, a.TimeSinceLastRequest)
	})
	return sorted
}

// AllocateRoundRobin serves requests for many camps in priority order. A single
// hub cursor, starting at cursor, rotates across all requests so that no hub
// carries every high priority draw. Each request scans at most one full
// rotation; whatever is still unmet becomes a Pending record.
func (e *Engine) AllocateRoundRobin(
	ctx context.Context,
	snapshot *entities.Snapshot,
	requests []entities.AllocationRequest,
	cursor int,
) (*RoundRobinResult, error) {
	hubs := snapshot.Hubs
	result := &RoundRobinResult{Records: []entities.AllocationRecord{}}

	if len(hubs) == 0 || cursor < 0 {
		cursor = 0
	} else {
		cursor %= len(hubs)
	}

	for i, req := range SortByPriority(requests) {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "round-robin allocation interrupted")
		}
		if !req.Valid() {
			e.skip("round_robin", i, req, "missing resource or non-positive units")
			result.Skipped++
			continue
		}
		camp := snapshot.FindCamp(req.ReliefCamp)
		if camp == nil {
			e.skip("round_robin", i, req, "unknown relief camp")
			result.Skipped++
			continue
		}

		var records []entities.AllocationRecord
		remaining := req.Units
		for visited := 0; visited < len(hubs) && remaining > 0; visited++ {
			hub := hubs[cursor]
			cursor = (cursor + 1) % len(hubs)

			if taken := hub.Draw(req.Resource, remaining); taken > 0 {
				remaining -= taken
				records = append(records, e.allocated(req.Resource, camp.Name, hub.Name, taken))
			}
		}

		if remaining > 0 {
			records = append(records, e.pending(req.Resource, camp.Name, remaining))
		}

		camp.Append(records...)
		result.Records = append(result.Records, records...)
	}

	result.Cursor = cursor
	return result, nil
}
