// Package httpapi exposes the dispatch service over HTTP with JSON bodies
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vsinha/relief/pkg/application/dto"
	"github.com/vsinha/relief/pkg/application/services/dispatch"
	"github.com/vsinha/relief/pkg/domain/entities"
)

const maxBodyBytes = 1 << 20

// Handler serves the relief API
type Handler struct {
	svc    *dispatch.Service
	logger *zap.Logger
}

// NewHandler creates the API handlers
func NewHandler(svc *dispatch.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) allocate(w http.ResponseWriter, r *http.Request) {
	var body dto.AllocateRequest
	if !h.decode(w, r, &body) {
		return
	}
	if err := body.Validate(); err != nil {
		h.writeError(w, err)
		return
	}

	records, err := h.svc.ProximityAllocate(r.Context(), body.ReliefCamp, *body.Location, body.DomainRequests())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, records)
}

func (h *Handler) allocateHub(w http.ResponseWriter, r *http.Request) {
	var body dto.AllocateHubRequest
	if !h.decode(w, r, &body) {
		return
	}
	if err := body.Validate(); err != nil {
		h.writeError(w, err)
		return
	}

	records, err := h.svc.RoundRobinAllocate(r.Context(), body.DomainRequests())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, records)
}

func (h *Handler) updateInventory(w http.ResponseWriter, r *http.Request) {
	var body dto.UpdateInventoryRequest
	if !h.decode(w, r, &body) {
		return
	}
	mode, err := body.Validate()
	if err != nil {
		h.writeError(w, err)
		return
	}
	deltas, err := body.Deltas()
	if err != nil {
		h.writeError(w, err)
		return
	}

	hub, err := h.svc.UpdateInventory(r.Context(), body.HubName, deltas, mode)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.UpdateInventoryResponse{
		Message: "Hub inventory updated successfully",
		Hub:     hub,
	})
}

func (h *Handler) sessionAllocations(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.SessionAllocations())
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.svc.Snapshot(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Debug("bad json", zap.String("path", r.URL.Path), zap.Error(err))
		h.writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request data"})
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to encode response", zap.Error(err))
	}
}

// writeError maps an error class to its status code. The message is the
// context the error was wrapped with, without the class suffix.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, class := classify(err)
	msg := err.Error()
	if class != nil {
		msg = strings.TrimSuffix(msg, ": "+class.Error())
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	h.writeJSON(w, status, dto.ErrorResponse{Error: msg})
}

func classify(err error) (int, error) {
	switch {
	case errors.Is(err, entities.ErrInvalidRequest):
		return http.StatusBadRequest, entities.ErrInvalidRequest
	case errors.Is(err, entities.ErrInvalidValue):
		return http.StatusBadRequest, entities.ErrInvalidValue
	case errors.Is(err, entities.ErrNotFound):
		return http.StatusNotFound, entities.ErrNotFound
	case errors.Is(err, entities.ErrDataUnavailable):
		return http.StatusServiceUnavailable, entities.ErrDataUnavailable
	case errors.Is(err, entities.ErrPersistFailure):
		return http.StatusInternalServerError, entities.ErrPersistFailure
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, nil
	default:
		return http.StatusInternalServerError, nil
	}
}
