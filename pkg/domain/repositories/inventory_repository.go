package repositories

import (
	"context"

	"github.com/vsinha/relief/pkg/domain/entities"
)

// InventoryRepository loads and persists the full hub and camp snapshot.
//
// Load returns entities.ErrDataUnavailable together with an empty snapshot
// when the backing store is missing or unreadable. Persist writes the whole
// snapshot so that readers never observe a partial document, and reports
// failures as entities.ErrPersistFailure.
type InventoryRepository interface {
	Load(ctx context.Context) (*entities.Snapshot, error)
	Persist(ctx context.Context, snapshot *entities.Snapshot) error
}
