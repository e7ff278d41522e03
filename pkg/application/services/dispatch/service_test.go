package dispatch

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vsinha/relief/pkg/application/services/allocation"
	"github.com/vsinha/relief/pkg/domain/entities"
	"github.com/vsinha/relief/pkg/infrastructure/events"
	"github.com/vsinha/relief/pkg/infrastructure/repositories/memory"
	testhelpers "github.com/vsinha/relief/pkg/infrastructure/testing"
)

// flakyRepository fails persists on demand
type flakyRepository struct {
	*memory.InventoryRepository
	failPersist bool
}

func (r *flakyRepository) Persist(ctx context.Context, snapshot *entities.Snapshot) error {
	if r.failPersist {
		return errors.New("disk full")
	}
	return r.InventoryRepository.Persist(ctx, snapshot)
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturePublisher) Publish(event events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturePublisher) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Type())
	}
	return out
}

func water(n int64) map[entities.Resource]decimal.Decimal {
	return map[entities.Resource]decimal.Decimal{"water": decimal.NewFromInt(n)}
}

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		repo      *flakyRepository
		log       *memory.AllocationLog
		publisher *capturePublisher
		cfg       Config
		service   *Service
	)

	build := func(snapshot *entities.Snapshot) {
		if snapshot == nil {
			repo = &flakyRepository{InventoryRepository: memory.NewInventoryRepository()}
		} else {
			repo = &flakyRepository{InventoryRepository: memory.NewInventoryRepositoryWith(snapshot)}
		}
		log = memory.NewAllocationLog()
		publisher = &capturePublisher{}
		engine := allocation.NewEngine(allocation.WithIDGenerator(testhelpers.SequentialIDs()))
		service = NewService(repo, log, engine, WithPublisher(publisher), WithConfig(cfg))
	}

	stored := func() *entities.Snapshot {
		snapshot, err := repo.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		return snapshot
	}

	BeforeEach(func() {
		ctx = context.Background()
		cfg = Config{Timeout: time.Second}
	})

	Describe("ProximityAllocate", func() {
		BeforeEach(func() {
			build(testhelpers.BuildTwoHubScenario("Camp 1"))
		})

		It("drains the nearest hub first and persists the result", func() {
			records, err := service.ProximityAllocate(ctx, "Camp 1", entities.Location{}, []entities.AllocationRequest{
				{Resource: "water", Units: 12},
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(records).To(HaveLen(2))
			Expect(records[0].Hub).To(Equal("A"))
			Expect(records[0].AllocatedUnits).To(Equal(entities.Units(5)))
			Expect(records[1].Hub).To(Equal("B"))
			Expect(records[1].AllocatedUnits).To(Equal(entities.Units(7)))

			snapshot := stored()
			Expect(snapshot.FindHub("A").Available("water")).To(Equal(entities.Units(0)))
			Expect(snapshot.FindHub("B").Available("water")).To(Equal(entities.Units(3)))
			Expect(snapshot.FindCamp("Camp 1").Allocations).To(Equal(records))

			Expect(log.Len()).To(Equal(0))
			Expect(publisher.types()).To(Equal([]string{
				events.AllocationRecordedEvent,
				events.AllocationRecordedEvent,
				events.AllocationCompletedEvent,
			}))
		})

		It("records a Pending shortfall", func() {
			records, err := service.ProximityAllocate(ctx, "Camp 1", entities.Location{}, []entities.AllocationRequest{
				{Resource: "water", Units: 20},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(3))
			Expect(records[2].Status).To(Equal(entities.StatusPending))
			Expect(records[2].UnitsRemaining).To(Equal(entities.Units(5)))
			Expect(publisher.types()).To(ContainElement(events.AllocationPendingEvent))
		})

		It("rejects missing input without touching the store", func() {
			_, err := service.ProximityAllocate(ctx, "", entities.Location{}, []entities.AllocationRequest{{Resource: "water", Units: 1}})
			Expect(errors.Is(err, entities.ErrInvalidRequest)).To(BeTrue())

			_, err = service.ProximityAllocate(ctx, "Camp 1", entities.Location{}, nil)
			Expect(errors.Is(err, entities.ErrInvalidRequest)).To(BeTrue())

			Expect(repo.Version()).To(Equal(int64(0)))
		})

		It("reports an unknown camp as not found", func() {
			_, err := service.ProximityAllocate(ctx, "Camp 9", entities.Location{}, []entities.AllocationRequest{{Resource: "water", Units: 1}})
			Expect(errors.Is(err, entities.ErrNotFound)).To(BeTrue())
			Expect(repo.Version()).To(Equal(int64(0)))
		})

		It("surfaces persist failures and keeps the stored state", func() {
			repo.failPersist = true

			_, err := service.ProximityAllocate(ctx, "Camp 1", entities.Location{}, []entities.AllocationRequest{{Resource: "water", Units: 3}})
			Expect(errors.Is(err, entities.ErrPersistFailure)).To(BeTrue())

			Expect(stored().FindHub("A").Available("water")).To(Equal(entities.Units(5)))
			Expect(stored().FindCamp("Camp 1").Allocations).To(BeEmpty())
			Expect(publisher.types()).To(Equal([]string{events.PersistFailedEvent}))
		})

		It("persists nothing when the context is already done", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := service.ProximityAllocate(cancelled, "Camp 1", entities.Location{}, []entities.AllocationRequest{{Resource: "water", Units: 3}})
			Expect(err).To(HaveOccurred())
			Expect(repo.Version()).To(Equal(int64(0)))
		})
	})

	Describe("with an unreadable store", func() {
		BeforeEach(func() {
			build(nil)
		})

		It("fails writes with data unavailable", func() {
			_, err := service.RoundRobinAllocate(ctx, []entities.AllocationRequest{{ReliefCamp: "Camp 1", Resource: "water", Units: 1}})
			Expect(errors.Is(err, entities.ErrDataUnavailable)).To(BeTrue())

			_, err = service.UpdateInventory(ctx, "A", water(1), entities.UpdateSet)
			Expect(errors.Is(err, entities.ErrDataUnavailable)).To(BeTrue())
		})

		It("serves an empty snapshot to readers", func() {
			snapshot, err := service.Snapshot(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(snapshot.Hubs).To(BeEmpty())
			Expect(snapshot.ReliefCamps).To(BeEmpty())
		})
	})

	Describe("RoundRobinAllocate", func() {
		request := []entities.AllocationRequest{{ReliefCamp: "Camp 1", Resource: "water", Units: 5}}

		Context("with the default cursor reset", func() {
			BeforeEach(func() {
				build(testhelpers.BuildEvenHubsScenario(3, "water", 10, "Camp 1"))
			})

			It("starts every call at the first hub and logs the session", func() {
				first, err := service.RoundRobinAllocate(ctx, request)
				Expect(err).NotTo(HaveOccurred())
				second, err := service.RoundRobinAllocate(ctx, request)
				Expect(err).NotTo(HaveOccurred())

				Expect(first[0].Hub).To(Equal("HUB_1"))
				Expect(second[0].Hub).To(Equal("HUB_1"))
				Expect(stored().FindHub("HUB_1").Available("water")).To(Equal(entities.Units(0)))
				Expect(service.Cursor()).To(Equal(0))

				session := service.SessionAllocations()
				Expect(session).To(HaveLen(2))
				Expect(session[1].ID).To(Equal("rec-2"))
			})

			It("serves higher priority first", func() {
				records, err := service.RoundRobinAllocate(ctx, []entities.AllocationRequest{
					{ReliefCamp: "Camp 1", Resource: "water", Units: 30, Priority: entities.PriorityMen},
					{ReliefCamp: "Camp 1", Resource: "water", Units: 10, Priority: entities.PriorityChildren},
				})
				Expect(err).NotTo(HaveOccurred())

				Expect(records[0].Hub).To(Equal("HUB_1"))
				Expect(records[0].AllocatedUnits).To(Equal(entities.Units(10)))
				last := records[len(records)-1]
				Expect(last.Status).To(Equal(entities.StatusPending))
				Expect(last.UnitsRemaining).To(Equal(entities.Units(10)))
			})

			It("rejects an empty batch", func() {
				_, err := service.RoundRobinAllocate(ctx, nil)
				Expect(errors.Is(err, entities.ErrInvalidRequest)).To(BeTrue())
			})

			It("leaves the session log untouched when persisting fails", func() {
				repo.failPersist = true
				_, err := service.RoundRobinAllocate(ctx, request)
				Expect(errors.Is(err, entities.ErrPersistFailure)).To(BeTrue())
				Expect(service.SessionAllocations()).To(BeEmpty())
			})
		})

		Context("with the cursor carried across calls", func() {
			BeforeEach(func() {
				cfg.PersistCursor = true
				build(testhelpers.BuildEvenHubsScenario(3, "water", 10, "Camp 1"))
			})

			It("continues from the hub after the last one visited", func() {
				first, err := service.RoundRobinAllocate(ctx, request)
				Expect(err).NotTo(HaveOccurred())
				second, err := service.RoundRobinAllocate(ctx, request)
				Expect(err).NotTo(HaveOccurred())

				Expect(first[0].Hub).To(Equal("HUB_1"))
				Expect(second[0].Hub).To(Equal("HUB_2"))
				Expect(service.Cursor()).To(Equal(2))
			})
		})
	})

	Describe("UpdateInventory", func() {
		BeforeEach(func() {
			build(testhelpers.BuildTwoHubScenario("Camp 1"))
		})

		It("sets and adds stock", func() {
			hub, err := service.UpdateInventory(ctx, "B", water(4), entities.UpdateSet)
			Expect(err).NotTo(HaveOccurred())
			Expect(hub.Available("water")).To(Equal(entities.Units(4)))

			hub, err = service.UpdateInventory(ctx, "B", map[entities.Resource]decimal.Decimal{
				"water": decimal.NewFromInt(-1),
				"food":  decimal.NewFromInt(6),
			}, entities.UpdateAdd)
			Expect(err).NotTo(HaveOccurred())
			Expect(hub.Available("water")).To(Equal(entities.Units(3)))
			Expect(hub.Available("food")).To(Equal(entities.Units(6)))
			Expect(stored().FindHub("B").Resources).To(Equal(map[entities.Resource]entities.Units{"water": 3, "food": 6}))
		})

		It("reports an unknown hub", func() {
			_, err := service.UpdateInventory(ctx, "Z", water(1), entities.UpdateSet)
			Expect(errors.Is(err, entities.ErrNotFound)).To(BeTrue())
		})

		DescribeTable("rejects bad values without partial mutation",
			func(deltas map[entities.Resource]decimal.Decimal, mode entities.UpdateMode) {
				_, err := service.UpdateInventory(ctx, "A", deltas, mode)
				Expect(errors.Is(err, entities.ErrInvalidValue)).To(BeTrue())
				Expect(repo.Version()).To(Equal(int64(0)))
				Expect(stored().FindHub("A").Resources).To(Equal(map[entities.Resource]entities.Units{"water": 5}))
			},
			Entry("fractional", map[entities.Resource]decimal.Decimal{"food": decimal.NewFromInt(9), "water": decimal.RequireFromString("1.5")}, entities.UpdateSet),
			Entry("negative set", map[entities.Resource]decimal.Decimal{"food": decimal.NewFromInt(9), "water": decimal.NewFromInt(-1)}, entities.UpdateSet),
			Entry("add below zero", map[entities.Resource]decimal.Decimal{"food": decimal.NewFromInt(9), "water": decimal.NewFromInt(-6)}, entities.UpdateAdd),
		)

		It("rejects an unknown mode", func() {
			_, err := service.UpdateInventory(ctx, "A", water(1), entities.UpdateMode("replace"))
			Expect(errors.Is(err, entities.ErrInvalidRequest)).To(BeTrue())
		})

		It("fills outstanding Pending records after a replenishment", func() {
			_, err := service.ProximityAllocate(ctx, "Camp 1", entities.Location{}, []entities.AllocationRequest{
				{Resource: "water", Units: 20},
			})
			Expect(err).NotTo(HaveOccurred())

			hub, err := service.UpdateInventory(ctx, "A", water(8), entities.UpdateSet)
			Expect(err).NotTo(HaveOccurred())
			Expect(hub.Available("water")).To(Equal(entities.Units(8)))

			snapshot := stored()
			Expect(snapshot.FindHub("A").Available("water")).To(Equal(entities.Units(3)))

			history := snapshot.FindCamp("Camp 1").Allocations
			Expect(history).To(HaveLen(4))
			Expect(history[2].Status).To(Equal(entities.StatusAllocated))
			Expect(history[2].Hub).To(Equal(entities.HubMultiple))
			Expect(history[2].UnitsRemaining).To(Equal(entities.Units(0)))
			Expect(history[3].Hub).To(Equal("A"))
			Expect(history[3].AllocatedUnits).To(Equal(entities.Units(5)))

			var granted entities.Units
			for _, record := range history {
				granted += record.AllocatedUnits + record.UnitsRemaining
			}
			Expect(granted).To(Equal(entities.Units(20)))

			Expect(service.SessionAllocations()).To(HaveLen(1))
			Expect(publisher.types()).To(ContainElements(events.InventoryUpdatedEvent, events.PendingResolvedEvent))
		})

		It("leaves Pending records alone when nothing can fill them", func() {
			_, err := service.ProximityAllocate(ctx, "Camp 1", entities.Location{}, []entities.AllocationRequest{
				{Resource: "food", Units: 4},
			})
			Expect(err).NotTo(HaveOccurred())
			version := repo.Version()

			_, err = service.UpdateInventory(ctx, "A", water(1), entities.UpdateAdd)
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.Version()).To(Equal(version + 1))
			Expect(stored().FindCamp("Camp 1").Allocations[0].IsOutstanding()).To(BeTrue())
		})
	})
})
