package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Resource identifies a kind of relief supply (water, food, medicine, ...)
type Resource string

// Units represents an integer count of a resource
type Units int64

var (
	maxUnits = decimal.NewFromInt(math.MaxInt64)
	minUnits = decimal.NewFromInt(math.MinInt64)
)

// UnmarshalJSON accepts any JSON number with a whole value, so documents
// holding 10.0 load the same as 10. Fractional, quoted or out of range
// values are errors.
func (u *Units) UnmarshalJSON(data []byte) error {
	text := string(bytes.TrimSpace(data))
	if text == "null" {
		return nil
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return fmt.Errorf("units must be a number, got %s", text)
	}
	if !d.IsInteger() {
		return fmt.Errorf("units must be a whole number, got %s", text)
	}
	if d.GreaterThan(maxUnits) || d.LessThan(minUnits) {
		return fmt.Errorf("units out of range: %s", text)
	}
	*u = Units(d.IntPart())
	return nil
}

// Location is a geographic coordinate in degrees.
// It is serialized as a [latitude, longitude] pair.
type Location struct {
	Lat float64
	Lon float64
}

// MarshalJSON encodes the location as [lat, lon]
func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{l.Lat, l.Lon})
}

// UnmarshalJSON decodes a [lat, lon] pair
func (l *Location) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("location must be a [lat, lon] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("location must have exactly 2 coordinates, got %d", len(pair))
	}
	l.Lat, l.Lon = pair[0], pair[1]
	return nil
}

// Hub represents a supply site and the authoritative stock it holds
type Hub struct {
	Name      string             `json:"name"`
	Location  Location           `json:"location"`
	Resources map[Resource]Units `json:"resources"`
}

// NewHub creates a validated Hub
func NewHub(name string, location Location, resources map[Resource]Units) (*Hub, error) {
	if name == "" {
		return nil, fmt.Errorf("hub name cannot be empty")
	}
	stock := make(map[Resource]Units, len(resources))
	for resource, units := range resources {
		if resource == "" {
			return nil, fmt.Errorf("resource name cannot be empty")
		}
		if units < 0 {
			return nil, fmt.Errorf("units cannot be negative, got %d for %s", units, resource)
		}
		stock[resource] = units
	}

	return &Hub{
		Name:      name,
		Location:  location,
		Resources: stock,
	}, nil
}

// Available returns the stock of a resource, zero when the hub does not carry it
func (h *Hub) Available(resource Resource) Units {
	return h.Resources[resource]
}

// Draw takes up to want units of a resource and returns how many were taken.
// Stock never goes below zero.
func (h *Hub) Draw(resource Resource, want Units) Units {
	available := h.Resources[resource]
	if want <= 0 || available <= 0 {
		return 0
	}

	taken := want
	if taken > available {
		taken = available
	}
	h.Resources[resource] = available - taken
	return taken
}

// Clone returns a deep copy of the hub
func (h *Hub) Clone() *Hub {
	resources := make(map[Resource]Units, len(h.Resources))
	for resource, units := range h.Resources {
		resources[resource] = units
	}
	return &Hub{
		Name:      h.Name,
		Location:  h.Location,
		Resources: resources,
	}
}

// UpdateMode selects how an inventory update combines with current stock
type UpdateMode string

const (
	UpdateSet UpdateMode = "set"
	UpdateAdd UpdateMode = "add"
)

// ParseUpdateMode accepts "set" or "add"; empty selects set
func ParseUpdateMode(s string) (UpdateMode, error) {
	switch UpdateMode(s) {
	case "", UpdateSet:
		return UpdateSet, nil
	case UpdateAdd:
		return UpdateAdd, nil
	default:
		return "", fmt.Errorf("update_type must be either 'set' or 'add', got %q", s)
	}
}
