package sim

import (
	"sync"
	"time"
)

// ServiceTimeModel estimates the synthetic service time of a request.
// The scheduler sleeps for the predicted duration and reports what it observed back.
type ServiceTimeModel interface {
	// Predict estimates the service time for reaching position after moving the head movements sectors.
	Predict(position, movements int) time.Duration

	// Observe reports the measured service suspension of a serviced request, excluding transfer waits.
	Observe(position, movements int, elapsed time.Duration)
}

const (
	seekBucketWidth = 10
	seekEWMAWeight  = 0.2
	seekMaxFactor   = 10
)

// SeekModel predicts service time from a per-bucket cost per movement.
// Buckets group sectors by position / 10. A bucket without observations
// falls back to the base cost, so a fresh model is linear in distance.
//
// Learned costs stay within [base, 10*base].
type SeekModel struct {
	mu      sync.Mutex
	base    time.Duration
	buckets map[int]time.Duration // bucket -> learned cost per movement
}

// NewSeekModel creates a SeekModel with the given base cost per movement.
func NewSeekModel(base time.Duration) *SeekModel {
	return &SeekModel{base: base, buckets: make(map[int]time.Duration)}
}

func bucketOf(position int) int {
	return (position / seekBucketWidth) * seekBucketWidth
}

func (m *SeekModel) Predict(position, movements int) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cost, ok := m.buckets[bucketOf(position)]; ok {
		return cost * time.Duration(movements)
	}
	return m.base * time.Duration(movements)
}

// Observe folds a measured service span into the bucket of position. elapsed
// must cover only the service suspension, never transfer waits. The sample is
// base cost plus the per-movement overrun beyond the current prediction, so
// on-time services pull a bucket back toward base.
func (m *SeekModel) Observe(position, movements int, elapsed time.Duration) {
	if movements <= 0 || elapsed <= 0 {
		return
	}
	moves := time.Duration(movements)

	m.mu.Lock()
	defer m.mu.Unlock()
	b := bucketOf(position)
	prev, ok := m.buckets[b]
	predicted := m.base * moves
	if ok {
		predicted = prev * moves
	}
	overrun := max(elapsed-predicted, 0)
	perMove := min(m.base+overrun/moves, m.base*seekMaxFactor)
	if !ok {
		m.buckets[b] = perMove
		return
	}
	m.buckets[b] = time.Duration(float64(prev)*(1-seekEWMAWeight) + float64(perMove)*seekEWMAWeight)
}

// Predictions returns how many buckets carry a learned cost.
func (m *SeekModel) Predictions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

// MeanPredictedCost returns the average learned cost per movement, or zero with no observations.
func (m *SeekModel) MeanPredictedCost() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.buckets) == 0 {
		return 0
	}
	var sum time.Duration
	for _, c := range m.buckets {
		sum += c
	}
	return sum / time.Duration(len(m.buckets))
}
