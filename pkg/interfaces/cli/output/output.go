package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/vsinha/relief/pkg/application/services/shared"
	"github.com/vsinha/relief/pkg/domain/entities"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
}

// Report is the stored state together with per camp coverage
type Report struct {
	Snapshot *entities.Snapshot
	Coverage shared.AllocationMap
}

// NewReport folds a snapshot into a report
func NewReport(snapshot *entities.Snapshot) *Report {
	return &Report{
		Snapshot: snapshot,
		Coverage: shared.NewAllocationMapFromSnapshot(snapshot),
	}
}

type coverageRow struct {
	Camp        string            `json:"camp"`
	Resource    entities.Resource `json:"resource"`
	Allocated   entities.Units    `json:"allocated"`
	Outstanding entities.Units    `json:"outstanding"`
	Unfulfilled int               `json:"unfulfilled,omitempty"`
}

type jsonReport struct {
	Hubs             []*entities.Hub `json:"hubs"`
	Coverage         []coverageRow   `json:"coverage"`
	TotalAllocated   entities.Units  `json:"total_allocated"`
	TotalOutstanding entities.Units  `json:"total_outstanding"`
	CoverageRatio    float64         `json:"coverage_ratio"`
}

// Generate writes the report in the configured format
func Generate(w io.Writer, report *Report, config Config) error {
	switch config.Format {
	case "text", "":
		return generateTextOutput(w, report)
	case "json":
		return generateJSONOutput(w, report, config)
	case "csv":
		return generateCSVOutput(w, report, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// generateTextOutput creates human-readable text output
func generateTextOutput(w io.Writer, report *Report) error {
	fmt.Fprintf(w, "📊 Relief Inventory Summary\n")
	fmt.Fprintf(w, "===========================\n\n")

	fmt.Fprintf(w, "Hubs: %d\n", len(report.Snapshot.Hubs))
	fmt.Fprintf(w, "Relief Camps: %d\n", len(report.Snapshot.ReliefCamps))
	fmt.Fprintf(w, "Units Allocated: %d\n", report.Coverage.GetTotalAllocated())
	fmt.Fprintf(w, "Units Outstanding: %d\n", report.Coverage.GetTotalOutstanding())
	fmt.Fprintf(w, "Coverage: %.1f%%\n\n", report.Coverage.GetCoverageRatio()*100)

	if len(report.Snapshot.Hubs) > 0 {
		fmt.Fprintf(w, "🏭 Hub Stock:\n")
		fmt.Fprintf(w, "%-20s %-15s %-10s\n", "Hub", "Resource", "Units")
		fmt.Fprintf(w, "%-20s %-15s %-10s\n", "--------------------", "---------------", "----------")

		for _, hub := range report.Snapshot.Hubs {
			for _, resource := range sortedResources(hub) {
				fmt.Fprintf(w, "%-20s %-15s %-10d\n", hub.Name, resource, hub.Resources[resource])
			}
		}
		fmt.Fprintln(w)
	}

	entries := report.Coverage.Entries()
	if len(entries) > 0 {
		fmt.Fprintf(w, "📦 Camp Coverage:\n")
		fmt.Fprintf(w, "%-20s %-15s %-10s %-12s\n", "Camp", "Resource", "Allocated", "Outstanding")
		fmt.Fprintf(w, "%-20s %-15s %-10s %-12s\n", "--------------------", "---------------", "----------", "------------")

		for _, entry := range entries {
			fmt.Fprintf(w, "%-20s %-15s %-10d %-12d\n", entry.Camp, entry.Resource, entry.Allocated, entry.Outstanding)
		}
		fmt.Fprintln(w)
	}

	return nil
}

// generateJSONOutput creates JSON output
func generateJSONOutput(w io.Writer, report *Report, config Config) error {
	body := jsonReport{
		Hubs:             report.Snapshot.Hubs,
		Coverage:         coverageRows(report.Coverage),
		TotalAllocated:   report.Coverage.GetTotalAllocated(),
		TotalOutstanding: report.Coverage.GetTotalOutstanding(),
		CoverageRatio:    report.Coverage.GetCoverageRatio(),
	}
	jsonData, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		_, err = fmt.Fprintln(w, string(jsonData))
		return err
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := filepath.Join(config.OutputDir, "relief_report.json")
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}

	if config.Verbose {
		fmt.Fprintf(w, "💾 JSON report saved to: %s\n", filename)
	}
	return nil
}

// generateCSVOutput writes coverage rows to w, or hub stock and coverage
// files when an output directory is given
func generateCSVOutput(w io.Writer, report *Report, config Config) error {
	if config.OutputDir == "" {
		return writeCoverageCSV(w, report.Coverage)
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	hubsFile := filepath.Join(config.OutputDir, "hubs.csv")
	if err := writeFile(hubsFile, func(f io.Writer) error { return writeHubsCSV(f, report.Snapshot.Hubs) }); err != nil {
		return fmt.Errorf("failed to write hubs CSV: %w", err)
	}

	coverageFile := filepath.Join(config.OutputDir, "coverage.csv")
	if err := writeFile(coverageFile, func(f io.Writer) error { return writeCoverageCSV(f, report.Coverage) }); err != nil {
		return fmt.Errorf("failed to write coverage CSV: %w", err)
	}

	if config.Verbose {
		fmt.Fprintf(w, "💾 CSV report saved to:\n")
		fmt.Fprintf(w, "  Hubs: %s\n", hubsFile)
		fmt.Fprintf(w, "  Coverage: %s\n", coverageFile)
	}
	return nil
}

// writeHubsCSV uses the same long format the seed loader reads
func writeHubsCSV(w io.Writer, hubs []*entities.Hub) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"hub_name", "latitude", "longitude", "resource", "units"}); err != nil {
		return err
	}
	for _, hub := range hubs {
		lat := strconv.FormatFloat(hub.Location.Lat, 'f', -1, 64)
		lon := strconv.FormatFloat(hub.Location.Lon, 'f', -1, 64)
		resources := sortedResources(hub)
		if len(resources) == 0 {
			if err := cw.Write([]string{hub.Name, lat, lon, "", ""}); err != nil {
				return err
			}
			continue
		}
		for _, resource := range resources {
			units := strconv.FormatInt(int64(hub.Resources[resource]), 10)
			if err := cw.Write([]string{hub.Name, lat, lon, string(resource), units}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeCoverageCSV(w io.Writer, coverage shared.AllocationMap) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"camp", "resource", "allocated", "outstanding", "unfulfilled"}); err != nil {
		return err
	}
	for _, entry := range coverage.Entries() {
		if err := cw.Write([]string{
			entry.Camp,
			string(entry.Resource),
			strconv.FormatInt(int64(entry.Allocated), 10),
			strconv.FormatInt(int64(entry.Outstanding), 10),
			strconv.Itoa(entry.Unfulfilled),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeFile(filename string, write func(io.Writer) error) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func coverageRows(coverage shared.AllocationMap) []coverageRow {
	rows := []coverageRow{}
	for _, entry := range coverage.Entries() {
		rows = append(rows, coverageRow{
			Camp:        entry.Camp,
			Resource:    entry.Resource,
			Allocated:   entry.Allocated,
			Outstanding: entry.Outstanding,
			Unfulfilled: entry.Unfulfilled,
		})
	}
	return rows
}

func sortedResources(hub *entities.Hub) []entities.Resource {
	resources := make([]entities.Resource, 0, len(hub.Resources))
	for resource := range hub.Resources {
		resources = append(resources, resource)
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i] < resources[j] })
	return resources
}
