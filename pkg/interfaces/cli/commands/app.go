package commands

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vsinha/relief/pkg/application/services/allocation"
	"github.com/vsinha/relief/pkg/application/services/dispatch"
	"github.com/vsinha/relief/pkg/domain/entities"
	"github.com/vsinha/relief/pkg/domain/repositories"
	"github.com/vsinha/relief/pkg/infrastructure/config"
	"github.com/vsinha/relief/pkg/infrastructure/events"
	"github.com/vsinha/relief/pkg/infrastructure/metrics"
	"github.com/vsinha/relief/pkg/infrastructure/repositories/dynamo"
	"github.com/vsinha/relief/pkg/infrastructure/repositories/jsonfile"
	"github.com/vsinha/relief/pkg/infrastructure/repositories/memory"
)

// App is the wired object graph shared by the subcommands
type App struct {
	Config  config.Config
	Logger  *zap.Logger
	Store   repositories.InventoryRepository
	Events  *events.InMemoryEventStore
	Metrics *metrics.Recorder
	Service *dispatch.Service
}

// NewApp wires the store, events, metrics and dispatch service. A memory
// backend starts from seed, or from an empty snapshot when seed is nil.
func NewApp(cfg config.Config, logger *zap.Logger, seed *entities.Snapshot) (*App, error) {
	store, err := NewStore(cfg.Store, logger, seed)
	if err != nil {
		return nil, err
	}

	eventStore := events.NewInMemoryEventStore(logger, events.WithRetention(cfg.Events.Retention))
	recorder := metrics.NewRecorder()
	if err := recorder.Attach(eventStore); err != nil {
		return nil, errors.Wrap(err, "failed to attach metrics")
	}

	engine := allocation.NewEngine(allocation.WithLogger(logger))
	svc := dispatch.NewService(store, memory.NewAllocationLog(), engine,
		dispatch.WithLogger(logger),
		dispatch.WithPublisher(eventStore),
		dispatch.WithConfig(dispatch.Config{
			Timeout:       cfg.Allocation.Timeout,
			PersistCursor: cfg.Allocation.PersistCursor,
		}),
	)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Events:  eventStore,
		Metrics: recorder,
		Service: svc,
	}, nil
}

// NewStore builds the inventory repository for the configured backend
func NewStore(cfg config.StoreConfig, logger *zap.Logger, seed *entities.Snapshot) (repositories.InventoryRepository, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return jsonfile.NewStore(cfg.Path,
			jsonfile.WithLogger(logger),
			jsonfile.WithRetry(cfg.PersistRetries, cfg.PersistBackoff),
		), nil
	case config.BackendMemory:
		if seed == nil {
			seed = entities.NewSnapshot()
		}
		return memory.NewInventoryRepositoryWith(seed), nil
	case config.BackendDynamoDB:
		db, err := dynamo.NewClient(cfg.DynamoDB.Region, cfg.DynamoDB.Endpoint)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create dynamodb client")
		}
		return dynamo.NewStore(db, cfg.DynamoDB.Table, cfg.DynamoDB.Key, logger), nil
	default:
		return nil, errors.Errorf("unknown store backend %q", cfg.Backend)
	}
}
