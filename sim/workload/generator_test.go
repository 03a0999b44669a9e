package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/disk-sim/disk-sim/sim"
)

func TestGenerate_SameSeedSameWorkload(t *testing.T) {
	spec := GeneratorSpec{Requests: 50, MaxPosition: 100, Devices: 3, Seed: 42}

	a, err := Generate(spec)
	require.NoError(t, err)
	b, err := Generate(spec)
	require.NoError(t, err)

	require.Len(t, a, 50)
	for i := range a {
		assert.Equal(t, a[i].Position, b[i].Position, "request %d", i)
		assert.Equal(t, a[i].Priority, b[i].Priority, "request %d", i)
		assert.Equal(t, a[i].Kind, b[i].Kind, "request %d", i)
		assert.Equal(t, a[i].DeviceID, b[i].DeviceID, "request %d", i)
		assert.NotEqual(t, a[i].ID, b[i].ID, "identities are never reused")
	}
}

func TestGenerate_DifferentSeedsDiffer(t *testing.T) {
	a, err := Generate(GeneratorSpec{Requests: 30, MaxPosition: 1000, Devices: 1, Seed: 1})
	require.NoError(t, err)
	b, err := Generate(GeneratorSpec{Requests: 30, MaxPosition: 1000, Devices: 1, Seed: 2})
	require.NoError(t, err)

	same := 0
	for i := range a {
		if a[i].Position == b[i].Position {
			same++
		}
	}
	assert.Less(t, same, 30)
}

func TestGenerate_AttributesStayInRange(t *testing.T) {
	tests := []struct {
		name  string
		spec  GeneratorSpec
		limit int
	}{
		{"normal", GeneratorSpec{Requests: 200, MaxPosition: 100, Devices: 4, Seed: 7}, 100},
		{"high load", GeneratorSpec{Requests: 200, MaxPosition: 100, HighLoad: true, Devices: 4, Seed: 7}, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqs, err := Generate(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.limit, tt.spec.PositionLimit())
			for _, r := range reqs {
				require.NoError(t, r.Validate())
				assert.LessOrEqual(t, r.Position, tt.limit)
				assert.GreaterOrEqual(t, r.DeviceID, 1)
				assert.LessOrEqual(t, r.DeviceID, tt.spec.Devices)
			}
		})
	}
}

func TestGenerate_HighLoadWidensPositions(t *testing.T) {
	reqs, err := Generate(GeneratorSpec{Requests: 500, MaxPosition: 100, HighLoad: true, Devices: 1, Seed: 3})
	require.NoError(t, err)

	beyond := 0
	for _, r := range reqs {
		if r.Position > 100 {
			beyond++
		}
	}
	assert.Greater(t, beyond, 0)
}

func TestGenerate_ZeroRequests(t *testing.T) {
	reqs, err := Generate(GeneratorSpec{Requests: 0, MaxPosition: 10, Devices: 1})
	require.NoError(t, err)
	assert.Empty(t, reqs)
}

func TestGenerate_InvalidSpec(t *testing.T) {
	for _, spec := range []GeneratorSpec{
		{Requests: -1, MaxPosition: 10, Devices: 1},
		{Requests: 1, MaxPosition: -10, Devices: 1},
		{Requests: 1, MaxPosition: 10, Devices: 0},
	} {
		_, err := Generate(spec)
		assert.ErrorIs(t, err, sim.ErrInvalidConfig, "%+v", spec)
	}
}

func TestSpecFromConfig(t *testing.T) {
	cfg := sim.DefaultConfig().Workload
	cfg.Requests = 12
	cfg.HighLoad = true
	cfg.Seed = 99

	spec := SpecFromConfig(cfg)

	assert.Equal(t, 12, spec.Requests)
	assert.True(t, spec.HighLoad)
	assert.Equal(t, int64(99), spec.Seed)
	assert.Equal(t, cfg.MaxPosition, spec.MaxPosition)
	assert.Equal(t, cfg.Devices, spec.Devices)
}
