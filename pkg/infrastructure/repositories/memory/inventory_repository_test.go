package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/vsinha/relief/pkg/domain/entities"
)

func seedSnapshot() *entities.Snapshot {
	return &entities.Snapshot{
		Hubs: []*entities.Hub{
			{Name: "HUB_A", Location: entities.Location{Lat: 1, Lon: 2}, Resources: map[entities.Resource]entities.Units{"water": 100}},
		},
		ReliefCamps: []*entities.ReliefCamp{
			{Name: "CAMP_1"},
		},
	}
}

func TestInventoryRepository_LoadUnseeded(t *testing.T) {
	repo := NewInventoryRepository()

	snapshot, err := repo.Load(context.Background())
	if !errors.Is(err, entities.ErrDataUnavailable) {
		t.Fatalf("Expected ErrDataUnavailable, got %v", err)
	}
	if snapshot == nil || len(snapshot.Hubs) != 0 || len(snapshot.ReliefCamps) != 0 {
		t.Errorf("Expected empty snapshot, got %+v", snapshot)
	}
}

func TestInventoryRepository_PersistAndLoad(t *testing.T) {
	repo := NewInventoryRepositoryWith(seedSnapshot())

	snapshot, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Failed to load snapshot: %v", err)
	}

	snapshot.FindHub("HUB_A").Draw("water", 30)
	snapshot.FindCamp("CAMP_1").Append(entities.AllocationRecord{Resource: "water", AllocatedUnits: 30})

	// Mutations are invisible until persisted
	reloaded, _ := repo.Load(context.Background())
	if reloaded.FindHub("HUB_A").Available("water") != 100 {
		t.Errorf("Expected stored stock 100 before persist, got %d", reloaded.FindHub("HUB_A").Available("water"))
	}

	if err := repo.Persist(context.Background(), snapshot); err != nil {
		t.Fatalf("Failed to persist snapshot: %v", err)
	}

	reloaded, _ = repo.Load(context.Background())
	if reloaded.FindHub("HUB_A").Available("water") != 70 {
		t.Errorf("Expected stored stock 70, got %d", reloaded.FindHub("HUB_A").Available("water"))
	}
	if len(reloaded.FindCamp("CAMP_1").Allocations) != 1 {
		t.Errorf("Expected 1 allocation, got %d", len(reloaded.FindCamp("CAMP_1").Allocations))
	}
	if repo.Version() != 1 {
		t.Errorf("Expected version 1, got %d", repo.Version())
	}
}

func TestInventoryRepository_PersistCancelled(t *testing.T) {
	repo := NewInventoryRepositoryWith(seedSnapshot())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := repo.Persist(ctx, entities.NewSnapshot()); err == nil {
		t.Fatal("Expected error for cancelled context")
	}

	snapshot, _ := repo.Load(context.Background())
	if len(snapshot.Hubs) != 1 {
		t.Errorf("Expected stored snapshot untouched, got %d hubs", len(snapshot.Hubs))
	}
}

func TestAllocationLog_AppendAndAll(t *testing.T) {
	log := NewAllocationLog()

	log.Append(entities.AllocationRecord{ID: "1"}, entities.AllocationRecord{ID: "2"})
	log.Append(entities.AllocationRecord{ID: "3"})

	records := log.All()
	if len(records) != 3 || log.Len() != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	for i, id := range []string{"1", "2", "3"} {
		if records[i].ID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, records[i].ID)
		}
	}

	records[0].ID = "mutated"
	if log.All()[0].ID != "1" {
		t.Error("Expected All to return a copy")
	}
}

func TestAllocationLog_ConcurrentAppend(t *testing.T) {
	log := NewAllocationLog()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Append(entities.AllocationRecord{Resource: "water"})
		}()
	}
	wg.Wait()

	if log.Len() != 50 {
		t.Errorf("Expected 50 records, got %d", log.Len())
	}
}
