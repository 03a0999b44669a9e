package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions       int
	CacheHits            int
	TransferFailures     int
	TotalMovements       int
	MeanMovements        float64
	MaxMovements         int
	DirectionChanges     int
	UniquePositions      int
	PositionDistribution map[int]int // sector -> number of selections
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		PositionDistribution: make(map[int]int),
	}
	if st == nil {
		return summary
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	summary.TotalDecisions = len(st.Selections)
	summary.TransferFailures = len(st.Transfers)
	prevDirection := 0
	for i, s := range st.Selections {
		summary.PositionDistribution[s.Position]++
		summary.TotalMovements += s.Movements
		if s.Movements > summary.MaxMovements {
			summary.MaxMovements = s.Movements
		}
		if s.CacheHit {
			summary.CacheHits++
		}
		if i > 0 && s.Direction != 0 && prevDirection != 0 && s.Direction != prevDirection {
			summary.DirectionChanges++
		}
		if s.Direction != 0 {
			prevDirection = s.Direction
		}
	}
	if summary.TotalDecisions > 0 {
		summary.MeanMovements = float64(summary.TotalMovements) / float64(summary.TotalDecisions)
	}
	summary.UniquePositions = len(summary.PositionDistribution)

	return summary
}
