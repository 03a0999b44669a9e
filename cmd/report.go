package cmd

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/disk-sim/disk-sim/sim"
	"github.com/disk-sim/disk-sim/sim/pipeline"
)

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
)

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// renderRunReport prints the scheduler, buffer, bus and trace sections of a snapshot.
func renderRunReport(w io.Writer, snap pipeline.Snapshot) error {
	st := snap.Report.Stats
	_, _ = bold.Fprintf(w, "\nPerformance analysis (%s)\n", snap.Report.Policy)

	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Value")
	_ = table.Append("Requests processed", strconv.Itoa(st.Processed))
	_ = table.Append("Pending", strconv.Itoa(snap.Scheduler.Pending))
	_ = table.Append("Total time", seconds(st.TotalTime))
	_ = table.Append("Average time", seconds(st.AverageTime))
	_ = table.Append("Min / max time", seconds(st.MinTime)+" / "+seconds(st.MaxTime))
	_ = table.Append("P50 / P95 time", seconds(st.P50Time)+" / "+seconds(st.P95Time))
	_ = table.Append("Head movements", strconv.Itoa(st.TotalMovements))
	_ = table.Append("Average movements", fmt.Sprintf("%.2f", st.AvgMovements))
	_ = table.Append("Final head position", strconv.Itoa(snap.Scheduler.HeadPosition))
	switch snap.Report.Policy {
	case sim.PolicySCAN.String():
		_ = table.Append("Final direction", directionName(snap.Report.Direction))
		_ = table.Append("Direction flips", strconv.Itoa(snap.Scheduler.Flips))
	case sim.PolicyCSCAN.String():
		_ = table.Append("Sweep wraps", strconv.Itoa(snap.Report.Wraps))
	}
	if snap.Report.MeanPredictedCost > 0 {
		_ = table.Append("Predicted cost / movement", seconds(snap.Report.MeanPredictedCost))
	}
	if err := table.Render(); err != nil {
		return err
	}

	if len(snap.Report.TopSectors) > 0 {
		if err := renderPositionCounts(w, "Most accessed sectors", "Accesses", snap.Report.TopSectors); err != nil {
			return err
		}
	}
	if len(snap.Report.AccessPatterns) > 0 {
		if err := renderPositionCounts(w, "SSTF access patterns", "Selections", snap.Report.AccessPatterns); err != nil {
			return err
		}
	}

	if b := snap.Buffer; b != nil {
		_, _ = bold.Fprintln(w, "\nDMA buffer")
		table := tablewriter.NewWriter(w)
		table.Header("Capacity", "Occupancy", "Cache", "Hits", "Misses", "Hit rate", "Forwarded", "State")
		_ = table.Append(
			strconv.Itoa(b.Capacity),
			strconv.Itoa(b.Occupancy),
			fmt.Sprintf("%d/%d", b.CacheUsed, b.CacheCapacity),
			strconv.Itoa(b.Hits),
			strconv.Itoa(b.Misses),
			fmt.Sprintf("%.1f%%", b.HitRate),
			strconv.Itoa(b.Forwarded),
			componentState(b.Degraded, b.Closed),
		)
		if err := table.Render(); err != nil {
			return err
		}
	}

	bs := snap.Bus
	_, _ = bold.Fprintln(w, "\nTransfer bus")
	busTable := tablewriter.NewWriter(w)
	busTable.Header("Level", "Weight", "Queued")
	for level := sim.MaxPriority; level >= sim.MinPriority; level-- {
		_ = busTable.Append(strconv.Itoa(level), fmt.Sprintf("%.2f", bs.Weights[level]), strconv.Itoa(bs.Depth[level]))
	}
	if err := busTable.Render(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "enqueued %d, processed %d, average %s, %s\n",
		bs.Enqueued, bs.Processed, seconds(bs.AverageTime), componentState(bs.Degraded, false))

	if tr := snap.Trace; tr != nil {
		_, _ = bold.Fprintln(w, "\nDecision trace")
		_, _ = fmt.Fprintf(w, "decisions %d, mean movements %.2f, max movements %d, direction changes %d, unique sectors %d, cache hits %d, transfer failures %d\n",
			tr.TotalDecisions, tr.MeanMovements, tr.MaxMovements, tr.DirectionChanges, tr.UniquePositions, tr.CacheHits, tr.TransferFailures)
	}
	return nil
}

func renderPositionCounts(w io.Writer, title, label string, counts []sim.PositionCount) error {
	_, _ = bold.Fprintf(w, "\n%s\n", title)
	table := tablewriter.NewWriter(w)
	table.Header("Sector", label)
	for _, pc := range counts {
		_ = table.Append(strconv.Itoa(pc.Position), strconv.Itoa(pc.Count))
	}
	return table.Render()
}

func directionName(d int) string {
	if d < 0 {
		return "descending"
	}
	return "ascending"
}

func componentState(degraded, closed bool) string {
	switch {
	case degraded:
		return red.Sprint("degraded")
	case closed:
		return yellow.Sprint("closed")
	default:
		return green.Sprint("ok")
	}
}

// policyResult is one row of a policy comparison.
type policyResult struct {
	Policy string
	Stats  sim.Statistics
	Rank   int
}

// rankResults orders results by head movements, then average time.
func rankResults(results []policyResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Stats, results[j].Stats
		if a.TotalMovements != b.TotalMovements {
			return a.TotalMovements < b.TotalMovements
		}
		return a.AverageTime < b.AverageTime
	})
	for i := range results {
		results[i].Rank = i + 1
	}
}

// renderComparison prints ranked results; results must already be ranked.
func renderComparison(w io.Writer, results []policyResult) error {
	if len(results) == 0 {
		return nil
	}
	_, _ = bold.Fprintln(w, "\nPolicy comparison")
	best := results[0].Stats.TotalMovements

	table := tablewriter.NewWriter(w)
	table.Header("Rank", "Policy", "Processed", "Movements", "Avg movements", "Avg time", "Total time", "vs Best")
	for _, r := range results {
		vsBest := "baseline"
		if r.Rank > 1 {
			if best > 0 {
				vsBest = fmt.Sprintf("%.2fx", float64(r.Stats.TotalMovements)/float64(best))
			} else {
				vsBest = "-"
			}
		}
		_ = table.Append(
			strconv.Itoa(r.Rank),
			r.Policy,
			strconv.Itoa(r.Stats.Processed),
			strconv.Itoa(r.Stats.TotalMovements),
			fmt.Sprintf("%.2f", r.Stats.AvgMovements),
			seconds(r.Stats.AverageTime),
			seconds(r.Stats.TotalTime),
			vsBest,
		)
	}
	return table.Render()
}
