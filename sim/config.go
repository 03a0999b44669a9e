package sim

import (
	"fmt"
	"math"
	"time"
)

// SchedulerConfig groups disk scheduler parameters.
type SchedulerConfig struct {
	Policy              string        // "FIFO", "SSTF", "SCAN" or "C-SCAN"
	AgingThreshold      time.Duration // wait time per one-level priority bump under FIFO (default 5s)
	SeekCostPerMovement time.Duration // base synthetic service cost per unit of head movement (default 10ms)
	StatusWindow        int           // per-request times kept in status snapshots (default 1000)
}

// BufferConfig groups transfer buffer (DMA) parameters.
type BufferConfig struct {
	Enabled        bool          // false = scheduler services requests without a transfer path
	Capacity       int           // max staged requests (must be > 0)
	CacheCapacity  int           // max cached keys (0 disables caching)
	SampleInterval time.Duration // monitor sampling period (default 100ms)
	HistoryLimit   int           // samples retained by the monitor (default 1000)
	StatusWindow   int           // samples returned by Status (default 50)
	WaitTimeout    time.Duration // bounded wait of blocked producers and the staging worker (default 1s)
}

// BusConfig groups transfer bus parameters.
type BusConfig struct {
	ServiceDelay    time.Duration   // synthetic per-request dispatch delay (default 100ms)
	PriorityWeights map[int]float64 // level -> weight, reporting only
}

// WorkloadConfig groups request generation parameters.
// TracePath, when set, replaces generation with a replayed trace file.
type WorkloadConfig struct {
	Requests    int     // number of generated requests
	MaxPosition int     // highest generated sector (x10 under HighLoad)
	HighLoad    bool    // spread positions over a ten times larger range
	Devices     int     // generated device ids are 1..Devices
	Seed        int64   // generator seed
	ArrivalRate float64 // requests per second fed to the scheduler (0 = submit all at once)
	Burst       int     // rate limiter burst
	TracePath   string  // optional YAML trace to replay
}

// Config is the full simulation configuration.
type Config struct {
	Scheduler SchedulerConfig
	Buffer    BufferConfig
	Bus       BusConfig
	Workload  WorkloadConfig
}

// DefaultPriorityWeights returns the default bus weights (level i has weight i).
func DefaultPriorityWeights() map[int]float64 {
	w := make(map[int]float64, MaxPriority)
	for level := MinPriority; level <= MaxPriority; level++ {
		w[level] = float64(level)
	}
	return w
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Scheduler: SchedulerConfig{
			Policy:              "FIFO",
			AgingThreshold:      5 * time.Second,
			SeekCostPerMovement: 10 * time.Millisecond,
			StatusWindow:        1000,
		},
		Buffer: BufferConfig{
			Enabled:        true,
			Capacity:       5,
			CacheCapacity:  100,
			SampleInterval: 100 * time.Millisecond,
			HistoryLimit:   1000,
			StatusWindow:   50,
			WaitTimeout:    time.Second,
		},
		Bus: BusConfig{
			ServiceDelay:    100 * time.Millisecond,
			PriorityWeights: DefaultPriorityWeights(),
		},
		Workload: WorkloadConfig{
			Requests:    10,
			MaxPosition: 100,
			Devices:     3,
			Seed:        42,
			Burst:       1,
		},
	}
}

// Validate checks scheduler parameters. The policy name is checked separately by ParsePolicy.
func (c SchedulerConfig) Validate() error {
	if c.AgingThreshold <= 0 {
		return fmt.Errorf("%w: aging threshold must be positive, got %s", ErrInvalidConfig, c.AgingThreshold)
	}
	if c.SeekCostPerMovement < 0 {
		return fmt.Errorf("%w: seek cost must be non-negative, got %s", ErrInvalidConfig, c.SeekCostPerMovement)
	}
	if c.StatusWindow < 0 {
		return fmt.Errorf("%w: status window must be non-negative, got %d", ErrInvalidConfig, c.StatusWindow)
	}
	return nil
}

// Validate checks buffer parameters.
func (c BufferConfig) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: buffer capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	}
	if c.CacheCapacity < 0 {
		return fmt.Errorf("%w: cache capacity must be non-negative, got %d", ErrInvalidConfig, c.CacheCapacity)
	}
	if c.SampleInterval <= 0 {
		return fmt.Errorf("%w: sample interval must be positive, got %s", ErrInvalidConfig, c.SampleInterval)
	}
	if c.HistoryLimit < 0 || c.StatusWindow < 0 {
		return fmt.Errorf("%w: history limit and status window must be non-negative", ErrInvalidConfig)
	}
	if c.WaitTimeout <= 0 {
		return fmt.Errorf("%w: wait timeout must be positive, got %s", ErrInvalidConfig, c.WaitTimeout)
	}
	return nil
}

// Validate checks bus parameters.
func (c BusConfig) Validate() error {
	if c.ServiceDelay < 0 {
		return fmt.Errorf("%w: bus service delay must be non-negative, got %s", ErrInvalidConfig, c.ServiceDelay)
	}
	for level, w := range c.PriorityWeights {
		if err := ValidatePriorityWeight(level, w); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks workload parameters.
func (c WorkloadConfig) Validate() error {
	if c.TracePath != "" {
		return nil
	}
	if c.Requests < 0 {
		return fmt.Errorf("%w: request count must be non-negative, got %d", ErrInvalidConfig, c.Requests)
	}
	if c.MaxPosition < 0 {
		return fmt.Errorf("%w: max position must be non-negative, got %d", ErrInvalidConfig, c.MaxPosition)
	}
	if c.Devices <= 0 {
		return fmt.Errorf("%w: device count must be positive, got %d", ErrInvalidConfig, c.Devices)
	}
	if c.ArrivalRate < 0 {
		return fmt.Errorf("%w: arrival rate must be non-negative, got %f", ErrInvalidConfig, c.ArrivalRate)
	}
	return nil
}

// Validate checks every group and the policy name.
func (c Config) Validate() error {
	if _, err := ParsePolicy(c.Scheduler.Policy); err != nil {
		return err
	}
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}
	if c.Buffer.Enabled {
		if err := c.Buffer.Validate(); err != nil {
			return err
		}
	}
	if err := c.Bus.Validate(); err != nil {
		return err
	}
	return c.Workload.Validate()
}

// ValidatePriorityWeight rejects levels outside [MinPriority, MaxPriority] and weights that are negative or not finite.
func ValidatePriorityWeight(level int, weight float64) error {
	if level < MinPriority || level > MaxPriority {
		return fmt.Errorf("%w: priority level %d outside [%d, %d]", ErrInvalidConfig, level, MinPriority, MaxPriority)
	}
	if math.IsNaN(weight) || math.IsInf(weight, 0) {
		return fmt.Errorf("%w: weight for level %d must be a finite number, got %f", ErrInvalidConfig, level, weight)
	}
	if weight < 0 {
		return fmt.Errorf("%w: weight for level %d must be non-negative, got %f", ErrInvalidConfig, level, weight)
	}
	return nil
}
