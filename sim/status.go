package sim

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const topSectorCount = 5

// SchedulerStatus is a plain-data snapshot of the scheduler and its ledger.
type SchedulerStatus struct {
	Policy           string
	Processed        int
	HeadMovements    int
	HeadPosition     int
	Pending          int
	AverageTime      time.Duration
	TotalTime        time.Duration
	MinTime          time.Duration
	MaxTime          time.Duration
	ProcessingTimes  []time.Duration // most recent StatusWindow entries
	AccessPatterns   int             // distinct positions tracked by SSTF
	Predictions      int             // seek buckets with a learned cost
	Direction        int
	Flips            int
	Wraps            int
	CacheHits        int
	TransferFailures int
}

// Status returns a snapshot; nothing in it aliases scheduler state.
func (s *DiskScheduler) Status() SchedulerStatus {
	stats := s.ledger.DetailedStatistics()
	times := s.ledger.ProcessingTimes()
	if w := s.cfg.StatusWindow; w > 0 && len(times) > w {
		times = times[len(times)-w:]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	direction, flips, wraps := s.sweepStateLocked()
	st := SchedulerStatus{
		Policy:           s.policy.String(),
		Processed:        stats.Processed,
		HeadMovements:    stats.TotalMovements,
		HeadPosition:     s.head,
		Pending:          s.pending.Len(),
		AverageTime:      stats.AverageTime,
		TotalTime:        stats.TotalTime,
		MinTime:          stats.MinTime,
		MaxTime:          stats.MaxTime,
		ProcessingTimes:  times,
		Direction:        direction,
		Flips:            flips,
		Wraps:            wraps,
		CacheHits:        s.cacheHits,
		TransferFailures: s.transferFailures,
	}
	if sstf, ok := s.selector.(*sstfSelector); ok {
		st.AccessPatterns = len(sstf.totals)
	}
	if pr, ok := s.seek.(interface{ Predictions() int }); ok {
		st.Predictions = pr.Predictions()
	}
	return st
}

// PerformanceReport is the end-of-run analysis of a scheduler.
type PerformanceReport struct {
	Policy            string
	Stats             Statistics
	TopSectors        []PositionCount // most serviced sectors
	AccessPatterns    []PositionCount // most selected SSTF positions, empty for other policies
	Direction         int
	Wraps             int
	MeanPredictedCost time.Duration // average learned cost per movement, zero before any observation
}

// Analysis builds the performance report from the ledger and policy state.
func (s *DiskScheduler) Analysis() PerformanceReport {
	rep := PerformanceReport{
		Policy:     s.policy.String(),
		Stats:      s.ledger.DetailedStatistics(),
		TopSectors: topPositions(s.ledger.SectorCounts(), topSectorCount),
	}
	if mc, ok := s.seek.(interface{ MeanPredictedCost() time.Duration }); ok {
		rep.MeanPredictedCost = mc.MeanPredictedCost()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rep.Direction, _, rep.Wraps = s.sweepStateLocked()
	if sstf, ok := s.selector.(*sstfSelector); ok {
		rep.AccessPatterns = topPositions(sstf.AccessPatterns(), topSectorCount)
	}
	return rep
}

// logAnalysis sends the performance report through the log sink.
func (s *DiskScheduler) logAnalysis() {
	if s.logSink == nil {
		return
	}
	rep := s.Analysis()
	st := rep.Stats
	s.logSink.log(logrus.InfoLevel, fmt.Sprintf("=== Performance analysis (%s) ===", rep.Policy))
	s.logSink.log(logrus.InfoLevel, fmt.Sprintf("Requests processed: %d", st.Processed))
	s.logSink.log(logrus.InfoLevel, fmt.Sprintf("Total time: %.3fs", st.TotalTime.Seconds()))
	s.logSink.log(logrus.InfoLevel, fmt.Sprintf("Average time per request: %.3fs", st.AverageTime.Seconds()))
	s.logSink.log(logrus.InfoLevel, fmt.Sprintf("Head movements: %d (avg %.2f)", st.TotalMovements, st.AvgMovements))
	for _, pc := range rep.TopSectors {
		s.logSink.log(logrus.InfoLevel, fmt.Sprintf("Sector %d: %d accesses", pc.Position, pc.Count))
	}
	for _, pc := range rep.AccessPatterns {
		s.logSink.log(logrus.InfoLevel, fmt.Sprintf("Pattern %d: %d selections", pc.Position, pc.Count))
	}
	switch s.policy {
	case PolicySCAN:
		s.logSink.log(logrus.InfoLevel, fmt.Sprintf("Final direction: %s", directionLabel(rep.Direction)))
	case PolicyCSCAN:
		s.logSink.log(logrus.InfoLevel, fmt.Sprintf("Sweep wraps: %d", rep.Wraps))
	}
	if rep.MeanPredictedCost > 0 {
		s.logSink.log(logrus.InfoLevel, fmt.Sprintf("Average predicted cost per movement: %.3fs", rep.MeanPredictedCost.Seconds()))
	}
}
