package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/vsinha/relief/pkg/application/dto"
	"github.com/vsinha/relief/pkg/infrastructure/events"
)

const defaultEventLimit = 100

// EventReader exposes the retained event history
type EventReader interface {
	ReadEvents(streamID string, fromVersion int) ([]events.Event, error)
	ReadAllEvents(fromPosition int) ([]events.Event, error)
}

type eventView struct {
	Type      string      `json:"type"`
	Stream    string      `json:"stream"`
	Version   int         `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// recentEvents serves the newest retained events, oldest first. The
// optional stream parameter narrows them to one hub or camp and limit caps
// how many are returned.
func (h *Handler) recentEvents(reader EventReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultEventLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				h.writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "limit must be a positive integer"})
				return
			}
			limit = n
		}

		var (
			history []events.Event
			err     error
		)
		if stream := r.URL.Query().Get("stream"); stream != "" {
			history, err = reader.ReadEvents(stream, 0)
		} else {
			history, err = reader.ReadAllEvents(0)
		}
		if err != nil {
			h.writeError(w, err)
			return
		}

		if len(history) > limit {
			history = history[len(history)-limit:]
		}
		views := make([]eventView, 0, len(history))
		for _, e := range history {
			views = append(views, eventView{
				Type:      e.Type(),
				Stream:    e.StreamID(),
				Version:   e.Version(),
				Timestamp: e.Timestamp(),
				Data:      e.Data(),
			})
		}
		h.writeJSON(w, http.StatusOK, views)
	}
}
