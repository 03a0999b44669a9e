package sim

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigBundle holds simulation configuration loadable from a YAML file.
// Nil pointer fields mean "not set in YAML" and do not override the Config they are applied to.
// String fields use empty string for "not set".
type ConfigBundle struct {
	Scheduler SchedulerBundle `yaml:"scheduler"`
	Buffer    BufferBundle    `yaml:"buffer"`
	Bus       BusBundle       `yaml:"bus"`
	Workload  WorkloadBundle  `yaml:"workload"`
}

// SchedulerBundle holds disk scheduler overrides.
type SchedulerBundle struct {
	Policy         string         `yaml:"policy"`
	AgingThreshold *time.Duration `yaml:"aging_threshold"`
	SeekCost       *time.Duration `yaml:"seek_cost"`
}

// BufferBundle holds transfer buffer overrides.
type BufferBundle struct {
	Enabled        *bool          `yaml:"enabled"`
	Capacity       *int           `yaml:"capacity"`
	CacheCapacity  *int           `yaml:"cache_capacity"`
	SampleInterval *time.Duration `yaml:"sample_interval"`
}

// BusBundle holds transfer bus overrides.
type BusBundle struct {
	ServiceDelay    *time.Duration  `yaml:"service_delay"`
	PriorityWeights map[int]float64 `yaml:"priority_weights"`
}

// WorkloadBundle holds request generation overrides.
type WorkloadBundle struct {
	Requests    *int     `yaml:"requests"`
	MaxPosition *int     `yaml:"max_position"`
	HighLoad    *bool    `yaml:"high_load"`
	Seed        *int64   `yaml:"seed"`
	ArrivalRate *float64 `yaml:"arrival_rate"`
	Trace       string   `yaml:"trace"`
}

// LoadConfigBundle reads and strictly parses a YAML configuration file.
// Unknown keys are rejected so typos surface instead of being ignored.
func LoadConfigBundle(path string) (*ConfigBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config bundle: %w", err)
	}
	var bundle ConfigBundle
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&bundle); err != nil {
		return nil, fmt.Errorf("parsing config bundle: %w", err)
	}
	return &bundle, nil
}

// Validate checks the policy name and parameter ranges of every set field.
func (b *ConfigBundle) Validate() error {
	if b.Scheduler.Policy != "" && !IsValidPolicy(b.Scheduler.Policy) {
		return fmt.Errorf("%w %q", ErrUnknownPolicy, b.Scheduler.Policy)
	}
	if d := b.Scheduler.AgingThreshold; d != nil && *d <= 0 {
		return fmt.Errorf("%w: aging_threshold must be positive, got %s", ErrInvalidConfig, *d)
	}
	if d := b.Scheduler.SeekCost; d != nil && *d < 0 {
		return fmt.Errorf("%w: seek_cost must be non-negative, got %s", ErrInvalidConfig, *d)
	}
	if n := b.Buffer.Capacity; n != nil && *n <= 0 {
		return fmt.Errorf("%w: buffer capacity must be positive, got %d", ErrInvalidConfig, *n)
	}
	if n := b.Buffer.CacheCapacity; n != nil && *n < 0 {
		return fmt.Errorf("%w: cache_capacity must be non-negative, got %d", ErrInvalidConfig, *n)
	}
	if d := b.Buffer.SampleInterval; d != nil && *d <= 0 {
		return fmt.Errorf("%w: sample_interval must be positive, got %s", ErrInvalidConfig, *d)
	}
	if d := b.Bus.ServiceDelay; d != nil && *d < 0 {
		return fmt.Errorf("%w: service_delay must be non-negative, got %s", ErrInvalidConfig, *d)
	}
	for level, w := range b.Bus.PriorityWeights {
		if err := ValidatePriorityWeight(level, w); err != nil {
			return err
		}
	}
	if n := b.Workload.Requests; n != nil && *n < 0 {
		return fmt.Errorf("%w: requests must be non-negative, got %d", ErrInvalidConfig, *n)
	}
	if n := b.Workload.MaxPosition; n != nil && *n < 0 {
		return fmt.Errorf("%w: max_position must be non-negative, got %d", ErrInvalidConfig, *n)
	}
	if r := b.Workload.ArrivalRate; r != nil && *r < 0 {
		return fmt.Errorf("%w: arrival_rate must be non-negative, got %f", ErrInvalidConfig, *r)
	}
	return nil
}

// Apply overlays every set field onto cfg.
func (b *ConfigBundle) Apply(cfg *Config) {
	if b.Scheduler.Policy != "" {
		cfg.Scheduler.Policy = b.Scheduler.Policy
	}
	setDuration(&cfg.Scheduler.AgingThreshold, b.Scheduler.AgingThreshold)
	setDuration(&cfg.Scheduler.SeekCostPerMovement, b.Scheduler.SeekCost)

	if b.Buffer.Enabled != nil {
		cfg.Buffer.Enabled = *b.Buffer.Enabled
	}
	setInt(&cfg.Buffer.Capacity, b.Buffer.Capacity)
	setInt(&cfg.Buffer.CacheCapacity, b.Buffer.CacheCapacity)
	setDuration(&cfg.Buffer.SampleInterval, b.Buffer.SampleInterval)

	setDuration(&cfg.Bus.ServiceDelay, b.Bus.ServiceDelay)
	if len(b.Bus.PriorityWeights) > 0 {
		if cfg.Bus.PriorityWeights == nil {
			cfg.Bus.PriorityWeights = make(map[int]float64, len(b.Bus.PriorityWeights))
		}
		for level, w := range b.Bus.PriorityWeights {
			cfg.Bus.PriorityWeights[level] = w
		}
	}

	setInt(&cfg.Workload.Requests, b.Workload.Requests)
	setInt(&cfg.Workload.MaxPosition, b.Workload.MaxPosition)
	if b.Workload.HighLoad != nil {
		cfg.Workload.HighLoad = *b.Workload.HighLoad
	}
	if b.Workload.Seed != nil {
		cfg.Workload.Seed = *b.Workload.Seed
	}
	if b.Workload.ArrivalRate != nil {
		cfg.Workload.ArrivalRate = *b.Workload.ArrivalRate
	}
	if b.Workload.Trace != "" {
		cfg.Workload.TracePath = b.Workload.Trace
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *time.Duration) {
	if v != nil {
		*dst = *v
	}
}
