package dto

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vsinha/relief/pkg/domain/entities"
)

var maxUnits = decimal.NewFromInt(math.MaxInt64)

// RequestItem is one resource request as it arrives on the wire. Numeric
// fields stay raw until converted so that malformed values can be skipped
// instead of failing the whole batch.
type RequestItem struct {
	ReliefCamp           string          `json:"relief_camp,omitempty"`
	Resource             string          `json:"resource"`
	Units                json.RawMessage `json:"units"`
	Priority             string          `json:"priority,omitempty"`
	TimeSinceLastRequest json.RawMessage `json:"time_since_last_request,omitempty"`
}

// ToDomain converts the item. Units that are missing, quoted, written as a
// float or not positive convert to zero, which allocators treat as malformed.
func (r RequestItem) ToDomain() entities.AllocationRequest {
	return entities.AllocationRequest{
		ReliefCamp:           r.ReliefCamp,
		Resource:             entities.Resource(r.Resource),
		Units:                parseUnits(r.Units),
		Priority:             entities.Priority(r.Priority),
		TimeSinceLastRequest: parseWait(r.TimeSinceLastRequest),
	}
}

// AllocateRequest is the body of a proximity allocation
type AllocateRequest struct {
	ReliefCamp string             `json:"relief_camp"`
	Location   *entities.Location `json:"location"`
	Requests   []RequestItem      `json:"requests"`
}

// Validate reports ErrInvalidRequest when the camp, location or requests are absent
func (r *AllocateRequest) Validate() error {
	if r.ReliefCamp == "" || r.Location == nil || len(r.Requests) == 0 {
		return errors.Wrap(entities.ErrInvalidRequest, "Invalid request data")
	}
	return nil
}

// DomainRequests converts every item, stamping the body's camp onto each
func (r *AllocateRequest) DomainRequests() []entities.AllocationRequest {
	out := make([]entities.AllocationRequest, 0, len(r.Requests))
	for _, item := range r.Requests {
		req := item.ToDomain()
		req.ReliefCamp = r.ReliefCamp
		out = append(out, req)
	}
	return out
}

// AllocateHubRequest is the body of a round-robin allocation
type AllocateHubRequest struct {
	Requests []RequestItem `json:"requests"`
}

// Validate reports ErrInvalidRequest when no requests are present
func (r *AllocateHubRequest) Validate() error {
	if len(r.Requests) == 0 {
		return errors.Wrap(entities.ErrInvalidRequest, "Invalid request data")
	}
	return nil
}

func (r *AllocateHubRequest) DomainRequests() []entities.AllocationRequest {
	out := make([]entities.AllocationRequest, 0, len(r.Requests))
	for _, item := range r.Requests {
		out = append(out, item.ToDomain())
	}
	return out
}

// UpdateInventoryRequest is the body of an inventory update
type UpdateInventoryRequest struct {
	HubName    string                     `json:"hub_name"`
	Resources  map[string]json.RawMessage `json:"resources"`
	UpdateType string                     `json:"update_type,omitempty"`
}

// Validate checks the required fields and the update type
func (r *UpdateInventoryRequest) Validate() (entities.UpdateMode, error) {
	if r.HubName == "" || len(r.Resources) == 0 {
		return "", errors.Wrap(entities.ErrInvalidRequest, "hub_name and resources are required")
	}
	mode, err := entities.ParseUpdateMode(r.UpdateType)
	if err != nil {
		return "", errors.Wrap(entities.ErrInvalidRequest, err.Error())
	}
	return mode, nil
}

// Deltas parses every resource value as a JSON number. The first value
// that is not a number fails the whole update with ErrInvalidValue.
func (r *UpdateInventoryRequest) Deltas() (map[entities.Resource]decimal.Decimal, error) {
	deltas := make(map[entities.Resource]decimal.Decimal, len(r.Resources))
	for name, raw := range r.Resources {
		if name == "" {
			return nil, errors.Wrap(entities.ErrInvalidValue, "resource name cannot be empty")
		}
		value, ok := parseNumber(raw)
		if !ok {
			return nil, errors.Wrapf(entities.ErrInvalidValue, "Value for resource '%s' must be numeric", name)
		}
		deltas[entities.Resource(name)] = value
	}
	return deltas, nil
}

// UpdateInventoryResponse answers a successful inventory update
type UpdateInventoryResponse struct {
	Message string        `json:"message"`
	Hub     *entities.Hub `json:"hub"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// parseNumber accepts an unquoted JSON number only
func parseNumber(raw json.RawMessage) (decimal.Decimal, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return decimal.Zero, false
	}
	if c := raw[0]; c != '-' && (c < '0' || c > '9') {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// parseUnits only takes integer literals; 12.0 and 1e2 are floats on the
// wire and are rejected like any other non-integer
func parseUnits(raw json.RawMessage) entities.Units {
	if bytes.ContainsAny(raw, ".eE") {
		return 0
	}
	d, ok := parseNumber(raw)
	if !ok || !d.IsInteger() || !d.IsPositive() || d.GreaterThan(maxUnits) {
		return 0
	}
	return entities.Units(d.IntPart())
}

func parseWait(raw json.RawMessage) float64 {
	d, ok := parseNumber(raw)
	if !ok || d.IsNegative() {
		return 0
	}
	return d.InexactFloat64()
}
