package events

import (
	"sync"

	"go.uber.org/zap"
)

// DefaultRetention is how many events the in-memory store keeps
const DefaultRetention = 1000

// InMemoryEventStore keeps the most recent events in process and delivers
// them to subscribers asynchronously. Once retention is reached the oldest
// event is dropped from both the global log and its stream; a stream whose
// events have all aged out starts again at version 1.
type InMemoryEventStore struct {
	streams     map[string][]Event
	subscribers map[string][]EventHandler
	mutex       sync.RWMutex
	position    int
	allEvents   []Event
	retention   int
	logger      *zap.Logger
	inflight    sync.WaitGroup
}

// StoreOption configures an InMemoryEventStore
type StoreOption func(*InMemoryEventStore)

// WithRetention caps the number of events kept; values below 1 are ignored
func WithRetention(n int) StoreOption {
	return func(s *InMemoryEventStore) {
		if n > 0 {
			s.retention = n
		}
	}
}

func NewInMemoryEventStore(logger *zap.Logger, opts ...StoreOption) *InMemoryEventStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &InMemoryEventStore{
		streams:     make(map[string][]Event),
		subscribers: make(map[string][]EventHandler),
		allEvents:   make([]Event, 0),
		retention:   DefaultRetention,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify interface compliance
var _ EventStore = (*InMemoryEventStore)(nil)

func (s *InMemoryEventStore) AppendEvent(streamID string, event Event) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	stream := s.streams[streamID]
	version := 1
	if n := len(stream); n > 0 {
		version = stream[n-1].Version() + 1
	}

	eventWithVersion := BaseEvent{
		EventType:    event.Type(),
		Stream:       streamID,
		EventData:    event.Data(),
		EventTime:    event.Timestamp(),
		EventVersion: version,
	}

	s.streams[streamID] = append(stream, eventWithVersion)
	s.allEvents = append(s.allEvents, eventWithVersion)
	s.position++
	s.evict()

	s.inflight.Add(1)
	go s.notifySubscribers(eventWithVersion)

	return nil
}

// evict drops the oldest events past retention. The oldest event overall
// is also the oldest of its stream.
func (s *InMemoryEventStore) evict() {
	for len(s.allEvents) > s.retention {
		oldest := s.allEvents[0]
		s.allEvents[0] = nil
		s.allEvents = s.allEvents[1:]

		stream := s.streams[oldest.StreamID()]
		if len(stream) <= 1 {
			delete(s.streams, oldest.StreamID())
			continue
		}
		stream[0] = nil
		s.streams[oldest.StreamID()] = stream[1:]
	}
}

// Publish appends the event to its own stream
func (s *InMemoryEventStore) Publish(event Event) error {
	return s.AppendEvent(event.StreamID(), event)
}

// ReadEvents returns the retained events of a stream with a version of at
// least fromVersion
func (s *InMemoryEventStore) ReadEvents(streamID string, fromVersion int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	events := s.streams[streamID]
	start := len(events)
	for i, event := range events {
		if event.Version() >= fromVersion {
			start = i
			break
		}
	}

	out := make([]Event, len(events)-start)
	copy(out, events[start:])
	return out, nil
}

// ReadAllEvents returns the retained events from the absolute position
// fromPosition on. Positions older than the retained window start at the
// oldest event still held.
func (s *InMemoryEventStore) ReadAllEvents(fromPosition int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	dropped := s.position - len(s.allEvents)
	start := fromPosition - dropped
	if start < 0 {
		start = 0
	}
	if start >= len(s.allEvents) {
		return []Event{}, nil
	}

	out := make([]Event, len(s.allEvents)-start)
	copy(out, s.allEvents[start:])
	return out, nil
}

func (s *InMemoryEventStore) Subscribe(eventTypes []string, handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, eventType := range eventTypes {
		s.subscribers[eventType] = append(s.subscribers[eventType], handler)
	}

	return nil
}

// Wait blocks until every event appended so far has been delivered
func (s *InMemoryEventStore) Wait() {
	s.inflight.Wait()
}

func (s *InMemoryEventStore) notifySubscribers(event Event) {
	defer s.inflight.Done()

	s.mutex.RLock()
	handlers := make([]EventHandler, len(s.subscribers[event.Type()]))
	copy(handlers, s.subscribers[event.Type()])
	s.mutex.RUnlock()

	for _, handler := range handlers {
		if handler.CanHandle(event.Type()) {
			s.inflight.Add(1)
			go func(h EventHandler, e Event) {
				defer s.inflight.Done()
				if err := h.Handle(e); err != nil {
					s.logger.Warn("event handler failed",
						zap.String("event", e.Type()),
						zap.String("stream", e.StreamID()),
						zap.Error(err),
					)
				}
			}(handler, event)
		}
	}
}
