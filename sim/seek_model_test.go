package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeekModel_Fresh_IsLinearInMovements(t *testing.T) {
	m := NewSeekModel(10 * time.Millisecond)
	assert.Equal(t, 40*time.Millisecond, m.Predict(35, 4))
	assert.Equal(t, time.Duration(0), m.Predict(35, 0))
	assert.Equal(t, 0, m.Predictions())
	assert.Equal(t, time.Duration(0), m.MeanPredictedCost())
}

func TestSeekModel_Observe_LearnsPerBucket(t *testing.T) {
	// GIVEN a model with base cost 10ms
	m := NewSeekModel(10 * time.Millisecond)

	// WHEN a request in bucket 30 took 80ms for 4 movements
	m.Observe(35, 4, 80*time.Millisecond)

	// THEN bucket 30 predicts 20ms per movement and other buckets keep the base cost
	assert.Equal(t, 40*time.Millisecond, m.Predict(39, 2))
	assert.Equal(t, 20*time.Millisecond, m.Predict(45, 2))
	assert.Equal(t, 1, m.Predictions())
}

func TestSeekModel_Observe_SmoothsAndClamps(t *testing.T) {
	m := NewSeekModel(10 * time.Millisecond)

	// first observation seeds the bucket, later ones are blended
	m.Observe(5, 1, 20*time.Millisecond)
	m.Observe(5, 1, 10*time.Millisecond)
	assert.Equal(t, 18*time.Millisecond, m.Predict(5, 1))

	// costs are clamped to [base, 10*base]
	m.Observe(55, 1, time.Second)
	assert.Equal(t, 100*time.Millisecond, m.Predict(55, 1))
	m.Observe(65, 10, time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, m.Predict(65, 1))
}

func TestSeekModel_Observe_IgnoresEmptySpans(t *testing.T) {
	m := NewSeekModel(10 * time.Millisecond)
	m.Observe(10, 0, time.Second)
	m.Observe(10, 3, 0)
	assert.Equal(t, 0, m.Predictions())
}

func TestSeekModel_OnTimeServicesDecayTowardBase(t *testing.T) {
	// GIVEN a bucket pinned at the ceiling by one overrun
	m := NewSeekModel(10 * time.Millisecond)
	m.Observe(5, 1, time.Second)
	require.Equal(t, 300*time.Millisecond, m.Predict(5, 3))

	// WHEN twenty services take exactly what was predicted
	prev := m.Predict(5, 3)
	for i := 0; i < 20; i++ {
		m.Observe(5, 3, m.Predict(5, 3))
		next := m.Predict(5, 3)
		assert.Less(t, next, prev)
		prev = next
	}

	// THEN the cost is back near the configured base
	assert.GreaterOrEqual(t, prev, 30*time.Millisecond)
	assert.Less(t, prev, 36*time.Millisecond)
}
