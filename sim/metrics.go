// Tracks per-access timing and head-movement metrics for the disk scheduler.

package sim

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AccessMetric is the immutable record of one serviced request.
type AccessMetric struct {
	Position  int       // sector serviced
	Movements int       // |head before - position|
	StartTime time.Time // span start
	EndTime   time.Time // span end
}

// ProcessingTime is the duration of the access span.
func (a AccessMetric) ProcessingTime() time.Duration {
	return a.EndTime.Sub(a.StartTime)
}

// Statistics summarizes the ledger. All fields are zero when nothing was recorded.
type Statistics struct {
	TotalTime      time.Duration // last access end - ledger start
	AverageTime    time.Duration
	MinTime        time.Duration
	MaxTime        time.Duration
	P50Time        time.Duration
	P95Time        time.Duration
	TotalMovements int
	AvgMovements   float64
	Processed      int
}

// Ledger records access spans and derives aggregate statistics.
// It allows at most one open span at a time. Safe for concurrent use.
type Ledger struct {
	mu        sync.Mutex
	now       func() time.Time
	startedAt time.Time
	open      *time.Time
	movements int
	processed int
	history   []AccessMetric
}

// NewLedger creates a Ledger whose start time is now.
func NewLedger() *Ledger {
	return NewLedgerWithClock(time.Now)
}

// NewLedgerWithClock creates a Ledger that reads time from now.
func NewLedgerWithClock(now func() time.Time) *Ledger {
	return &Ledger{now: now, startedAt: now()}
}

// BeginRequest opens a span at the current time, replacing any open span.
func (l *Ledger) BeginRequest() {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.now()
	l.open = &t
}

// RecordAccess closes the open span (or one starting at the ledger start
// when none was opened) and appends its AccessMetric.
func (l *Ledger) RecordAccess(movements, position int) AccessMetric {
	l.mu.Lock()
	defer l.mu.Unlock()
	start := l.startedAt
	if l.open != nil {
		start = *l.open
	}
	m := AccessMetric{
		Position:  position,
		Movements: movements,
		StartTime: start,
		EndTime:   l.now(),
	}
	l.movements += movements
	l.processed++
	l.history = append(l.history, m)
	l.open = nil
	return m
}

// Processed returns the number of recorded accesses.
func (l *Ledger) Processed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.processed
}

// TotalMovements returns the accumulated head movement.
func (l *Ledger) TotalMovements() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.movements
}

// History returns a copy of every recorded access, oldest first.
func (l *Ledger) History() []AccessMetric {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]AccessMetric(nil), l.history...)
}

// ProcessingTimes returns the processing time of every access, oldest first.
func (l *Ledger) ProcessingTimes() []time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]time.Duration, len(l.history))
	for i, a := range l.history {
		out[i] = a.ProcessingTime()
	}
	return out
}

// AverageProcessingTime returns the mean processing time, or zero when empty.
func (l *Ledger) AverageProcessingTime() time.Duration {
	return l.DetailedStatistics().AverageTime
}

// ElapsedTime returns the time from the ledger start to the last access end.
func (l *Ledger) ElapsedTime() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.history) == 0 {
		return 0
	}
	return l.history[len(l.history)-1].EndTime.Sub(l.startedAt)
}

// SectorCounts returns how many times each sector was serviced.
func (l *Ledger) SectorCounts() map[int]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	counts := make(map[int]int)
	for _, a := range l.history {
		counts[a.Position]++
	}
	return counts
}

// DetailedStatistics derives totals, averages, extremes and percentiles.
func (l *Ledger) DetailedStatistics() Statistics {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.history) == 0 {
		return Statistics{}
	}

	times := make([]float64, len(l.history))
	for i, a := range l.history {
		times[i] = float64(a.ProcessingTime())
	}
	sorted := append([]float64(nil), times...)
	sort.Float64s(sorted)

	return Statistics{
		TotalTime:      l.history[len(l.history)-1].EndTime.Sub(l.startedAt),
		AverageTime:    time.Duration(stat.Mean(times, nil)),
		MinTime:        time.Duration(floats.Min(times)),
		MaxTime:        time.Duration(floats.Max(times)),
		P50Time:        time.Duration(stat.Quantile(0.5, stat.Empirical, sorted, nil)),
		P95Time:        time.Duration(stat.Quantile(0.95, stat.Empirical, sorted, nil)),
		TotalMovements: l.movements,
		AvgMovements:   float64(l.movements) / float64(l.processed),
		Processed:      l.processed,
	}
}
