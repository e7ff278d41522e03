package allocation

import (
	"context"

	"github.com/pkg/errors"

	"github.com/vsinha/relief/pkg/domain/entities"
	"github.com/vsinha/relief/pkg/domain/services"
)

// AllocateByProximity satisfies one camp's requests by draining the nearest
// hubs first. Requests are served in order, so later requests see stock
// consumed by earlier ones. Unmet need produces a Pending record that the
// reconciler can fill later. The records are appended to the camp's history
// when the camp exists in the snapshot.
func (e *Engine) AllocateByProximity(
	ctx context.Context,
	snapshot *entities.Snapshot,
	campName string,
	origin entities.Location,
	requests []entities.AllocationRequest,
) ([]entities.AllocationRecord, error) {
	records := []entities.AllocationRecord{}

	for i, req := range requests {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "proximity allocation interrupted")
		}
		if !req.Valid() {
			e.skip("proximity", i, req, "missing resource or non-positive units")
			continue
		}

		var candidates []*entities.Hub
		for _, hub := range snapshot.Hubs {
			if hub.Available(req.Resource) > 0 {
				candidates = append(candidates, hub)
			}
		}
		services.SortByDistance(origin, candidates)

		remaining := req.Units
		for _, hub := range candidates {
			if remaining <= 0 {
				break
			}
			taken := hub.Draw(req.Resource, remaining)
			remaining -= taken
			records = append(records, e.allocated(req.Resource, campName, hub.Name, taken))
		}

		if remaining > 0 {
			records = append(records, e.pending(req.Resource, campName, remaining))
		}
	}

	if camp := snapshot.FindCamp(campName); camp != nil {
		camp.Append(records...)
	}

	return records, nil
}
