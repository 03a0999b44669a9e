package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/disk-sim/disk-sim/sim/internal/testutil"
)

func TestLedger_Empty_ReturnsZeroStatistics(t *testing.T) {
	// GIVEN a ledger with no accesses
	l := NewLedger()

	// WHEN statistics are requested
	stats := l.DetailedStatistics()

	// THEN every field is zero and nothing fails
	assert.Equal(t, Statistics{}, stats)
	assert.Equal(t, time.Duration(0), l.AverageProcessingTime())
	assert.Equal(t, time.Duration(0), l.ElapsedTime())
	assert.Empty(t, l.History())
}

func TestLedger_SingleAccess_MovementTotals(t *testing.T) {
	// GIVEN an empty ledger
	l := NewLedger()

	// WHEN one access with 7 movements is recorded
	l.BeginRequest()
	l.RecordAccess(7, 42)

	// THEN totals reflect that single access
	stats := l.DetailedStatistics()
	assert.Equal(t, 7, stats.TotalMovements)
	assert.Equal(t, 7.0, stats.AvgMovements)
	assert.Equal(t, 1, stats.Processed)
}

func TestLedger_Statistics_FromSpans(t *testing.T) {
	// GIVEN spans of 100ms, 200ms and 300ms recorded back to back
	clock := newFakeClock()
	l := NewLedgerWithClock(clock.Now)
	for i, d := range []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond} {
		l.BeginRequest()
		clock.Advance(d)
		l.RecordAccess(i+1, (i+1)*10)
	}

	// WHEN statistics are derived
	stats := l.DetailedStatistics()

	// THEN totals, extremes and percentiles match the spans
	assert.Equal(t, 600*time.Millisecond, stats.TotalTime)
	assert.Equal(t, 200*time.Millisecond, stats.AverageTime)
	assert.Equal(t, 100*time.Millisecond, stats.MinTime)
	assert.Equal(t, 300*time.Millisecond, stats.MaxTime)
	assert.Equal(t, 200*time.Millisecond, stats.P50Time)
	assert.Equal(t, 300*time.Millisecond, stats.P95Time)
	assert.Equal(t, 6, stats.TotalMovements)
	assert.Equal(t, 2.0, stats.AvgMovements)
	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 600*time.Millisecond, l.ElapsedTime())
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond}, l.ProcessingTimes())
}

func TestLedger_RecordAccess_WithoutBegin_SpansFromLedgerStart(t *testing.T) {
	// GIVEN a ledger created at t0
	clock := newFakeClock()
	l := NewLedgerWithClock(clock.Now)
	clock.Advance(250 * time.Millisecond)

	// WHEN an access is recorded with no open span
	m := l.RecordAccess(3, 30)

	// THEN the span starts at the ledger start
	assert.Equal(t, 250*time.Millisecond, m.ProcessingTime())
}

func TestLedger_History_IsACopy(t *testing.T) {
	l := NewLedger()
	l.RecordAccess(1, 10)
	h := l.History()
	require.Len(t, h, 1)
	h[0].Position = 99
	assert.Equal(t, 10, l.History()[0].Position, "history entries are never mutated")
}

func TestLedger_SectorCounts(t *testing.T) {
	l := NewLedger()
	for _, pos := range []int{10, 20, 10, 30, 10} {
		l.RecordAccess(0, pos)
	}
	assert.Equal(t, map[int]int{10: 3, 20: 1, 30: 1}, l.SectorCounts())
}

func TestLedger_AvgMovements_Fractional(t *testing.T) {
	l := NewLedger()
	for _, mv := range []int{1, 2, 2} {
		l.RecordAccess(mv, mv*10)
	}

	stats := l.DetailedStatistics()

	testutil.AssertFloat64Equal(t, "AvgMovements", 5.0/3.0, stats.AvgMovements, 1e-9)
	assert.Equal(t, 5, stats.TotalMovements)
}
