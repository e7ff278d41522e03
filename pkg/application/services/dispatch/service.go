// Package dispatch owns the inventory snapshot for the running process. It
// serializes every load, mutate and persist cycle behind one lock and turns
// engine results into events.
package dispatch

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/relief/pkg/application/services/allocation"
	"github.com/vsinha/relief/pkg/domain/entities"
	"github.com/vsinha/relief/pkg/domain/repositories"
	"github.com/vsinha/relief/pkg/infrastructure/events"
)

var maxUnits = decimal.NewFromInt(math.MaxInt64)

// Publisher receives the events produced by the service
type Publisher interface {
	Publish(event events.Event) error
}

// Config tunes the service
type Config struct {
	// Timeout bounds each allocation or reconciliation pass; zero disables it
	Timeout time.Duration
	// PersistCursor carries the round-robin cursor from one call to the next
	PersistCursor bool
}

// Service coordinates allocation against a repository
type Service struct {
	mu     sync.Mutex
	repo   repositories.InventoryRepository
	log    repositories.AllocationLog
	engine *allocation.Engine
	events Publisher
	logger *zap.Logger
	cfg    Config
	cursor int
}

// Option configures a Service
type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

// NewService creates a dispatch service
func NewService(
	repo repositories.InventoryRepository,
	log repositories.AllocationLog,
	engine *allocation.Engine,
	opts ...Option,
) *Service {
	s := &Service{
		repo:   repo,
		log:    log,
		engine: engine,
		events: nopPublisher{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProximityAllocate serves one camp from the hubs nearest to location and
// persists the result
func (s *Service) ProximityAllocate(
	ctx context.Context,
	campName string,
	location entities.Location,
	requests []entities.AllocationRequest,
) ([]entities.AllocationRecord, error) {
	if campName == "" || len(requests) == 0 {
		return nil, errors.Wrap(entities.ErrInvalidRequest, "Invalid request data")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	snapshot, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if snapshot.FindCamp(campName) == nil {
		return nil, errors.Wrapf(entities.ErrNotFound, "relief camp %s", campName)
	}

	actx, cancel := s.withTimeout(ctx)
	defer cancel()

	records, err := s.engine.AllocateByProximity(actx, snapshot, campName, location, requests)
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, snapshot, "allocate"); err != nil {
		return nil, err
	}

	s.publishRecords(events.StrategyProximity, records)
	s.publish(events.NewAllocationCompletedEvent(events.StrategyProximity, len(requests), len(records), time.Since(start)))
	s.logger.Info("proximity allocation complete",
		zap.String("camp", campName),
		zap.Int("requests", len(requests)),
		zap.Int("records", len(records)),
	)

	return records, nil
}

// RoundRobinAllocate serves requests for many camps in priority order,
// rotating across hubs, and appends the outcome to the session log
func (s *Service) RoundRobinAllocate(ctx context.Context, requests []entities.AllocationRequest) ([]entities.AllocationRecord, error) {
	if len(requests) == 0 {
		return nil, errors.Wrap(entities.ErrInvalidRequest, "Invalid request data")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	snapshot, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	cursor := 0
	if s.cfg.PersistCursor {
		cursor = s.cursor
	}

	actx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.engine.AllocateRoundRobin(actx, snapshot, requests, cursor)
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, snapshot, "allocate_hub"); err != nil {
		return nil, err
	}

	if s.cfg.PersistCursor {
		s.cursor = result.Cursor
	}
	s.log.Append(result.Records...)
	s.publishRecords(events.StrategyRoundRobin, result.Records)
	s.publish(events.NewAllocationCompletedEvent(events.StrategyRoundRobin, len(requests), len(result.Records), time.Since(start)))
	s.logger.Info("round-robin allocation complete",
		zap.Int("requests", len(requests)),
		zap.Int("skipped", result.Skipped),
		zap.Int("records", len(result.Records)),
		zap.Int("cursor", result.Cursor),
	)

	return result.Records, nil
}

// UpdateInventory sets or adds resource counts on a hub, persists, and then
// runs a reconciliation sweep over outstanding Pending records. Every delta
// is checked before any stock changes. The returned hub reflects the update
// before reconciliation drew from it.
func (s *Service) UpdateInventory(
	ctx context.Context,
	hubName string,
	deltas map[entities.Resource]decimal.Decimal,
	mode entities.UpdateMode,
) (*entities.Hub, error) {
	if hubName == "" || len(deltas) == 0 {
		return nil, errors.Wrap(entities.ErrInvalidRequest, "hub_name and resources are required")
	}
	if mode != entities.UpdateSet && mode != entities.UpdateAdd {
		return nil, errors.Wrapf(entities.ErrInvalidRequest, "update_type must be either 'set' or 'add', got %q", mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	hub := snapshot.FindHub(hubName)
	if hub == nil {
		return nil, errors.Wrapf(entities.ErrNotFound, "Hub not found: %s", hubName)
	}

	next, err := resolveDeltas(hub, deltas, mode)
	if err != nil {
		return nil, err
	}
	applied := make(map[entities.Resource]entities.Units, len(next))
	for resource, units := range next {
		hub.Resources[resource] = units
		applied[resource] = units
	}

	if err := s.persist(ctx, snapshot, "update_inventory"); err != nil {
		return nil, err
	}
	updated := hub.Clone()

	s.publish(events.NewInventoryUpdatedEvent(hubName, string(mode), applied))
	s.logger.Info("hub inventory updated", zap.String("hub", hubName), zap.String("mode", string(mode)))

	if err := s.reconcile(ctx, snapshot); err != nil {
		return nil, err
	}

	return updated, nil
}

// reconcile fills outstanding Pending records from current stock. A sweep
// that runs out of time is abandoned unpersisted; the records stay Pending
// for the next update.
func (s *Service) reconcile(ctx context.Context, snapshot *entities.Snapshot) error {
	start := time.Now()
	rctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.engine.ReconcilePending(rctx, snapshot)
	if err != nil {
		s.logger.Warn("reconciliation abandoned", zap.Error(err))
		return nil
	}
	if len(result.Records) == 0 {
		return nil
	}

	if err := s.persist(ctx, snapshot, "reconcile"); err != nil {
		return err
	}

	s.log.Append(result.Records...)
	s.publishRecords(events.StrategyReconcile, result.Records)
	for _, record := range result.Resolved {
		s.publish(events.NewPendingResolvedEvent(record))
	}
	s.publish(events.NewAllocationCompletedEvent(events.StrategyReconcile, len(result.Resolved)+result.Outstanding, len(result.Records), time.Since(start)))
	s.logger.Info("pending allocations reconciled",
		zap.Int("records", len(result.Records)),
		zap.Int("resolved", len(result.Resolved)),
		zap.Int("outstanding", result.Outstanding),
	)
	return nil
}

// SessionAllocations returns every round-robin and reconciliation record
// made since the process started
func (s *Service) SessionAllocations() []entities.AllocationRecord {
	return s.log.All()
}

// Snapshot returns the stored state. An unreadable store yields an empty
// snapshot rather than an error.
func (s *Service) Snapshot(ctx context.Context) (*entities.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, entities.ErrDataUnavailable) {
			s.logger.Error("serving empty snapshot", zap.Error(err))
			return entities.NewSnapshot(), nil
		}
		return nil, err
	}
	return snapshot, nil
}

// Cursor returns the round-robin cursor carried between calls
func (s *Service) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Service) load(ctx context.Context) (*entities.Snapshot, error) {
	snapshot, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.Error("failed to load inventory", zap.Error(err))
		return nil, err
	}
	return snapshot, nil
}

func (s *Service) persist(ctx context.Context, snapshot *entities.Snapshot, operation string) error {
	if err := s.repo.Persist(ctx, snapshot); err != nil {
		s.logger.Error("failed to persist inventory", zap.String("operation", operation), zap.Error(err))
		s.publish(events.NewPersistFailedEvent(operation, err))
		if !errors.Is(err, entities.ErrPersistFailure) {
			err = errors.Wrapf(entities.ErrPersistFailure, "%s: %v", operation, err)
		}
		return err
	}
	return nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

func (s *Service) publishRecords(strategy events.Strategy, records []entities.AllocationRecord) {
	for _, record := range records {
		s.publish(events.NewRecordEvent(strategy, record))
	}
}

func (s *Service) publish(event events.Event) {
	if err := s.events.Publish(event); err != nil {
		s.logger.Warn("failed to publish event", zap.String("event", event.Type()), zap.Error(err))
	}
}

// resolveDeltas computes the new stock for every resource in deltas without
// touching the hub
func resolveDeltas(
	hub *entities.Hub,
	deltas map[entities.Resource]decimal.Decimal,
	mode entities.UpdateMode,
) (map[entities.Resource]entities.Units, error) {
	next := make(map[entities.Resource]entities.Units, len(deltas))
	for resource, delta := range deltas {
		if resource == "" {
			return nil, errors.Wrap(entities.ErrInvalidValue, "resource name cannot be empty")
		}
		if !delta.IsInteger() {
			return nil, errors.Wrapf(entities.ErrInvalidValue, "Value for resource '%s' must be a whole number", resource)
		}

		value := delta
		if mode == entities.UpdateAdd {
			value = decimal.NewFromInt(int64(hub.Available(resource))).Add(delta)
		}
		if value.IsNegative() {
			return nil, errors.Wrapf(entities.ErrInvalidValue, "Value for resource '%s' would leave %s units", resource, value)
		}
		if value.GreaterThan(maxUnits) {
			return nil, errors.Wrapf(entities.ErrInvalidValue, "Value for resource '%s' is too large", resource)
		}
		next[resource] = entities.Units(value.IntPart())
	}
	return next, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(events.Event) error { return nil }
