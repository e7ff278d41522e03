package memory

import (
	"context"
	"sync"

	"github.com/vsinha/relief/pkg/domain/entities"
	"github.com/vsinha/relief/pkg/domain/repositories"
)

// InventoryRepository provides in-memory snapshot storage.
// Snapshots are copied on the way in and out so callers never share state
// with the stored document.
type InventoryRepository struct {
	mu       sync.RWMutex
	snapshot *entities.Snapshot
	version  int64
}

// NewInventoryRepository creates a new in-memory inventory repository
func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{}
}

// NewInventoryRepositoryWith creates a repository seeded with a snapshot
func NewInventoryRepositoryWith(snapshot *entities.Snapshot) *InventoryRepository {
	r := &InventoryRepository{}
	if snapshot != nil {
		r.snapshot = snapshot.Clone()
		r.snapshot.Normalize()
	}
	return r
}

// Verify interface compliance
var _ repositories.InventoryRepository = (*InventoryRepository)(nil)

// Load returns a copy of the stored snapshot.
// An unseeded repository reports ErrDataUnavailable with an empty snapshot.
func (r *InventoryRepository) Load(ctx context.Context) (*entities.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.snapshot == nil {
		return entities.NewSnapshot(), entities.ErrDataUnavailable
	}

	snapshot := r.snapshot.Clone()
	snapshot.Version = r.version
	return snapshot, nil
}

// Persist replaces the stored snapshot with a copy of the given one
func (r *InventoryRepository) Persist(ctx context.Context, snapshot *entities.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.snapshot = snapshot.Clone()
	r.snapshot.Normalize()
	r.version++
	return nil
}

// Version returns how many times the snapshot has been persisted
func (r *InventoryRepository) Version() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}
