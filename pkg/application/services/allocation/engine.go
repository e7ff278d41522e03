// Package allocation matches camp demand to hub stock. Every method mutates
// the snapshot it is given in place; callers own loading and persisting it.
package allocation

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vsinha/relief/pkg/domain/entities"
)

// Engine runs the proximity, round-robin and reconciliation passes
type Engine struct {
	logger *zap.Logger
	newID  func() string
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger used for skipped requests
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithIDGenerator replaces the record ID generator
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// NewEngine creates an allocation engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger: zap.NewNop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) allocated(resource entities.Resource, camp, hub string, units entities.Units) entities.AllocationRecord {
	return entities.AllocationRecord{
		ID:             e.newID(),
		Resource:       resource,
		AllocatedTo:    camp,
		Hub:            hub,
		AllocatedUnits: units,
		Status:         entities.StatusAllocated,
	}
}

func (e *Engine) pending(resource entities.Resource, camp string, remaining entities.Units) entities.AllocationRecord {
	return entities.AllocationRecord{
		ID:             e.newID(),
		Resource:       resource,
		AllocatedTo:    camp,
		Hub:            entities.HubUnfulfilled,
		AllocatedUnits: 0,
		Status:         entities.StatusPending,
		UnitsRemaining: remaining,
		Note:           entities.NoteNotFullyAllocated,
	}
}

func (e *Engine) skip(strategy string, index int, req entities.AllocationRequest, reason string) {
	e.logger.Debug("skipping allocation request",
		zap.String("strategy", strategy),
		zap.Int("index", index),
		zap.String("camp", req.ReliefCamp),
		zap.String("resource", string(req.Resource)),
		zap.Int64("units", int64(req.Units)),
		zap.String("reason", reason),
	)
}
