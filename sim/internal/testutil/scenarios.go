// Package testutil provides shared test infrastructure for the disk simulator:
// the scheduling scenario dataset and float assertion helpers.
// It must not import sim, so that sim's own tests can use it.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"gopkg.in/yaml.v3"
)

// ScenarioDataset represents the structure of testdata/scenarios.yaml.
type ScenarioDataset struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Scenario is one deterministic scheduling case: requests submitted at once,
// serviced from Head with a frozen clock, in ExpectedOrder (positions).
type Scenario struct {
	Name          string            `yaml:"name"`
	Policy        string            `yaml:"policy"`
	Head          int               `yaml:"head"`
	Requests      []ScenarioRequest `yaml:"requests"`
	ExpectedOrder []int             `yaml:"expected_order"`
	Movements     int               `yaml:"movements"`
}

// ScenarioRequest is one submitted request.
type ScenarioRequest struct {
	Position int `yaml:"position"`
	Priority int `yaml:"priority"`
}

// LoadScenarios loads testdata/scenarios.yaml.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadScenarios(t *testing.T) []Scenario {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "scenarios.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read scenario dataset: %v", err)
	}

	var dataset ScenarioDataset
	if err := yaml.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse scenario dataset: %v", err)
	}
	if len(dataset.Scenarios) == 0 {
		t.Fatal("Scenario dataset is empty")
	}
	return dataset.Scenarios
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
