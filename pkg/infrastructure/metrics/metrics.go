// Package metrics exposes allocation activity as Prometheus metrics. The
// Recorder subscribes to the event store so that services never touch
// collectors directly.
package metrics

import (
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vsinha/relief/pkg/domain/entities"
	"github.com/vsinha/relief/pkg/infrastructure/events"
)

const namespace = "relief"

// DefaultResourceLimit is how many distinct resource names get their own
// label value; later names are counted under OtherResource
const DefaultResourceLimit = 32

// OtherResource labels resources past the limit
const OtherResource = "other"

type Recorder struct {
	registry *prometheus.Registry

	unitsAllocated   *prometheus.CounterVec
	pendingRecords   *prometheus.CounterVec
	unitsPending     *prometheus.CounterVec
	pendingResolved  *prometheus.CounterVec
	inventoryUpdates *prometheus.CounterVec
	persistFailures  *prometheus.CounterVec
	allocDuration    *prometheus.HistogramVec

	mu            sync.Mutex
	resources     map[string]struct{}
	resourceLimit int
}

// Option configures a Recorder
type Option func(*Recorder)

// WithResourceLimit caps the distinct resource label values; values below 1
// are ignored
func WithResourceLimit(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.resourceLimit = n
		}
	}
}

// NewRecorder creates a recorder with its own registry. Process and Go
// runtime collectors are registered alongside the relief metrics.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		registry:      prometheus.NewRegistry(),
		resources:     make(map[string]struct{}),
		resourceLimit: DefaultResourceLimit,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.unitsAllocated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "units_allocated_total",
		Help:      "Units granted to camps by resource and strategy",
	}, []string{"resource", "strategy"})
	r.pendingRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pending_records_total",
		Help:      "Pending records written by resource and strategy",
	}, []string{"resource", "strategy"})
	r.unitsPending = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "units_pending_total",
		Help:      "Units left unmet when a pending record was written",
	}, []string{"resource"})
	r.pendingResolved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pending_resolved_total",
		Help:      "Pending records settled by reconciliation",
	}, []string{"resource"})
	r.inventoryUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inventory_updates_total",
		Help:      "Hub inventory updates by mode",
	}, []string{"mode"})
	r.persistFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persist_failures_total",
		Help:      "Snapshot writes that failed by operation",
	}, []string{"operation"})
	r.allocDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "allocation_duration_seconds",
		Help:      "Time spent running an allocation call",
		Buckets:   prometheus.DefBuckets,
	}, []string{"strategy"})

	r.registry.MustRegister(
		r.unitsAllocated, r.pendingRecords, r.unitsPending, r.pendingResolved,
		r.inventoryUpdates, r.persistFailures, r.allocDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the registry backing the recorder
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Attach subscribes the recorder to every relief event type
func (r *Recorder) Attach(store events.EventStore) error {
	return store.Subscribe(events.AllEventTypes, r)
}

func (r *Recorder) CanHandle(eventType string) bool {
	for _, t := range events.AllEventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

func (r *Recorder) Handle(event events.Event) error {
	switch data := event.Data().(type) {
	case events.AllocationRecorded:
		r.unitsAllocated.WithLabelValues(r.resourceLabel(data.Record.Resource), string(data.Strategy)).
			Add(float64(data.Record.AllocatedUnits))
	case events.AllocationPending:
		resource := r.resourceLabel(data.Record.Resource)
		r.pendingRecords.WithLabelValues(resource, string(data.Strategy)).Inc()
		r.unitsPending.WithLabelValues(resource).Add(float64(data.Record.UnitsRemaining))
	case events.PendingResolved:
		r.pendingResolved.WithLabelValues(r.resourceLabel(data.Record.Resource)).Inc()
	case events.InventoryUpdated:
		r.inventoryUpdates.WithLabelValues(data.Mode).Inc()
	case events.PersistFailed:
		r.persistFailures.WithLabelValues(data.Operation).Inc()
	case events.AllocationCompleted:
		r.allocDuration.WithLabelValues(string(data.Strategy)).Observe(data.Duration.Seconds())
	default:
		return errors.Errorf("unexpected payload %T for %s", event.Data(), event.Type())
	}
	return nil
}

// resourceLabel keeps the first resourceLimit names seen and folds the rest
// into OtherResource, since resource names come from clients
func (r *Recorder) resourceLabel(resource entities.Resource) string {
	name := string(resource)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.resources[name]; ok {
		return name
	}
	if len(r.resources) >= r.resourceLimit {
		return OtherResource
	}
	r.resources[name] = struct{}{}
	return name
}
