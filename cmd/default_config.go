package cmd

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/disk-sim/disk-sim/sim"
)

// WorkloadPreset describes a named workload in defaults.yaml.
// Zero fields leave the corresponding setting untouched.
type WorkloadPreset struct {
	Requests    int     `yaml:"requests"`
	MaxPosition int     `yaml:"max_position"`
	HighLoad    bool    `yaml:"high_load"`
	Devices     int     `yaml:"devices"`
	ArrivalRate float64 `yaml:"arrival_rate"`
}

// Defaults represents the full defaults.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Defaults struct {
	Version   string                    `yaml:"version"`
	Workloads map[string]WorkloadPreset `yaml:"workloads"`
}

// loadDefaults parses defaults.yaml with strict field checking.
func loadDefaults(path string) (*Defaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading defaults file %s: %w", path, err)
	}
	var d Defaults
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&d); err != nil {
		return nil, fmt.Errorf("parsing defaults file %s: %w", path, err)
	}
	return &d, nil
}

// Preset returns the named workload preset.
func (d *Defaults) Preset(name string) (WorkloadPreset, error) {
	p, ok := d.Workloads[name]
	if !ok {
		names := make([]string, 0, len(d.Workloads))
		for n := range d.Workloads {
			names = append(names, n)
		}
		sort.Strings(names)
		return WorkloadPreset{}, fmt.Errorf("unknown workload preset %q (available: %v)", name, names)
	}
	return p, nil
}

// Apply overlays the preset's non-zero fields onto cfg.
func (p WorkloadPreset) Apply(cfg *sim.WorkloadConfig) {
	if p.Requests > 0 {
		cfg.Requests = p.Requests
	}
	if p.MaxPosition > 0 {
		cfg.MaxPosition = p.MaxPosition
	}
	if p.HighLoad {
		cfg.HighLoad = true
	}
	if p.Devices > 0 {
		cfg.Devices = p.Devices
	}
	if p.ArrivalRate > 0 {
		cfg.ArrivalRate = p.ArrivalRate
	}
}
