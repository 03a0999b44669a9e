// Package workload produces the request streams fed to the disk scheduler:
// seeded random generation, YAML trace files and rate-paced submission.
package workload

import (
	"fmt"

	"github.com/disk-sim/disk-sim/sim"
)

// highLoadFactor widens the position range in high-load mode.
const highLoadFactor = 10

// GeneratorSpec describes a random request batch.
type GeneratorSpec struct {
	Requests    int
	MaxPosition int  // positions are drawn from [0, MaxPosition]
	HighLoad    bool // draw from [0, MaxPosition*10] instead
	Devices     int  // device ids are drawn from [1, Devices]
	Seed        int64
}

// SpecFromConfig builds a GeneratorSpec from the workload configuration.
func SpecFromConfig(cfg sim.WorkloadConfig) GeneratorSpec {
	return GeneratorSpec{
		Requests:    cfg.Requests,
		MaxPosition: cfg.MaxPosition,
		HighLoad:    cfg.HighLoad,
		Devices:     cfg.Devices,
		Seed:        cfg.Seed,
	}
}

// Validate rejects negative counts and ranges.
func (s GeneratorSpec) Validate() error {
	if s.Requests < 0 {
		return fmt.Errorf("%w: request count must be non-negative, got %d", sim.ErrInvalidConfig, s.Requests)
	}
	if s.MaxPosition < 0 {
		return fmt.Errorf("%w: max position must be non-negative, got %d", sim.ErrInvalidConfig, s.MaxPosition)
	}
	if s.Devices <= 0 {
		return fmt.Errorf("%w: device count must be positive, got %d", sim.ErrInvalidConfig, s.Devices)
	}
	return nil
}

// PositionLimit returns the highest position the spec can generate.
func (s GeneratorSpec) PositionLimit() int {
	if s.HighLoad {
		return s.MaxPosition * highLoadFactor
	}
	return s.MaxPosition
}

// Generate creates spec.Requests random requests. Deterministic for a given seed:
// each attribute draws from its own RNG subsystem.
func Generate(spec GeneratorSpec) ([]*sim.Request, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator spec: %w", err)
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(spec.Seed))
	positions := rng.ForSubsystem(sim.SubsystemPositions)
	priorities := rng.ForSubsystem(sim.SubsystemPriorities)
	kinds := rng.ForSubsystem(sim.SubsystemKinds)
	devices := rng.ForSubsystem(sim.SubsystemDevices)

	limit := spec.PositionLimit()
	reqs := make([]*sim.Request, 0, spec.Requests)
	for i := 0; i < spec.Requests; i++ {
		kind := sim.KindRead
		if kinds.Intn(2) == 1 {
			kind = sim.KindWrite
		}
		reqs = append(reqs, sim.NewRequest(
			devices.Intn(spec.Devices)+1,
			positions.Intn(limit+1),
			kind,
			priorities.Intn(sim.MaxPriority-sim.MinPriority+1)+sim.MinPriority,
		))
	}
	return reqs, nil
}
