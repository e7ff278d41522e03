package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/vsinha/relief/pkg/domain/entities"
)

var (
	hubsHeader  = []string{"hub_name", "latitude", "longitude", "resource", "units"}
	campsHeader = []string{"camp_name"}
)

// Loader handles loading seed data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadHubs loads hubs from a long-format CSV with one row per hub resource.
// Rows for the same hub must agree on its location; a row with an empty
// resource declares a hub with no stock. Hubs keep the order in which they
// first appear.
func (l *Loader) LoadHubs(filename string) ([]*entities.Hub, error) {
	records, err := readTable(filename, "hubs", hubsHeader)
	if err != nil {
		return nil, err
	}

	var hubs []*entities.Hub
	byName := make(map[string]*entities.Hub)

	for i, record := range records {
		row := i + 2
		name := strings.TrimSpace(record[0])

		location, err := parseLocation(record[1], record[2])
		if err != nil {
			return nil, fmt.Errorf("hubs CSV row %d: %w", row, err)
		}

		hub, seen := byName[name]
		if !seen {
			hub, err = entities.NewHub(name, location, nil)
			if err != nil {
				return nil, fmt.Errorf("hubs CSV row %d: %w", row, err)
			}
			byName[name] = hub
			hubs = append(hubs, hub)
		} else if hub.Location != location {
			return nil, fmt.Errorf("hubs CSV row %d: hub %s location %v conflicts with %v", row, name, location, hub.Location)
		}

		resource := entities.Resource(strings.TrimSpace(record[3]))
		if resource == "" {
			continue
		}
		units, err := strconv.ParseInt(strings.TrimSpace(record[4]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("hubs CSV row %d: invalid units: %s", row, record[4])
		}
		if units < 0 {
			return nil, fmt.Errorf("hubs CSV row %d: units cannot be negative, got %d for %s", row, units, resource)
		}
		if _, dup := hub.Resources[resource]; dup {
			return nil, fmt.Errorf("hubs CSV row %d: duplicate resource %s for hub %s", row, resource, name)
		}
		hub.Resources[resource] = entities.Units(units)
	}

	return hubs, nil
}

// LoadCamps loads relief camp names from a CSV file
func (l *Loader) LoadCamps(filename string) ([]*entities.ReliefCamp, error) {
	records, err := readTable(filename, "camps", campsHeader)
	if err != nil {
		return nil, err
	}

	var camps []*entities.ReliefCamp
	seen := make(map[string]bool)
	for i, record := range records {
		name := strings.TrimSpace(record[0])
		if name == "" {
			return nil, fmt.Errorf("camps CSV row %d: camp name cannot be empty", i+2)
		}
		if seen[name] {
			return nil, fmt.Errorf("camps CSV row %d: duplicate camp %s", i+2, name)
		}
		seen[name] = true
		camps = append(camps, &entities.ReliefCamp{Name: name, Allocations: []entities.AllocationRecord{}})
	}

	return camps, nil
}

// LoadSnapshot builds a fresh snapshot from a hubs file and an optional
// camps file
func (l *Loader) LoadSnapshot(hubsFile, campsFile string) (*entities.Snapshot, error) {
	snapshot := entities.NewSnapshot()

	hubs, err := l.LoadHubs(hubsFile)
	if err != nil {
		return nil, err
	}
	snapshot.Hubs = append(snapshot.Hubs, hubs...)

	if campsFile != "" {
		camps, err := l.LoadCamps(campsFile)
		if err != nil {
			return nil, err
		}
		snapshot.ReliefCamps = append(snapshot.ReliefCamps, camps...)
	}

	return snapshot, nil
}

// readTable reads a CSV file, checks its header and returns the data rows
func readTable(filename, kind string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", kind)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, header)
	}

	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", kind, i+2, len(expectedHeader), len(record))
		}
	}

	return records[1:], nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseLocation(latStr, lonStr string) (entities.Location, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil || lat < -90 || lat > 90 {
		return entities.Location{}, fmt.Errorf("invalid latitude: %s", latStr)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil || lon < -180 || lon > 180 {
		return entities.Location{}, fmt.Errorf("invalid longitude: %s", lonStr)
	}
	return entities.Location{Lat: lat, Lon: lon}, nil
}
