package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/disk-sim/disk-sim/sim"
)

func init() {
	color.NoColor = true
}

// fastConfig returns a configuration whose runs finish in milliseconds.
func fastConfig(policy string) sim.Config {
	cfg := sim.DefaultConfig()
	cfg.Scheduler.Policy = policy
	cfg.Scheduler.SeekCostPerMovement = 0
	cfg.Bus.ServiceDelay = 0
	cfg.Buffer.SampleInterval = time.Millisecond
	cfg.Buffer.WaitTimeout = 10 * time.Millisecond
	cfg.Workload.Requests = 12
	return cfg
}

func TestRankResults_ByMovementsThenAverageTime(t *testing.T) {
	results := []policyResult{
		{Policy: "FIFO", Stats: sim.Statistics{TotalMovements: 300, AverageTime: time.Second}},
		{Policy: "SSTF", Stats: sim.Statistics{TotalMovements: 120, AverageTime: 2 * time.Second}},
		{Policy: "SCAN", Stats: sim.Statistics{TotalMovements: 120, AverageTime: time.Second}},
		{Policy: "C-SCAN", Stats: sim.Statistics{TotalMovements: 180}},
	}

	rankResults(results)

	var order []string
	for i, r := range results {
		order = append(order, r.Policy)
		assert.Equal(t, i+1, r.Rank)
	}
	assert.Equal(t, []string{"SCAN", "SSTF", "C-SCAN", "FIFO"}, order)
}

func TestRenderComparison_ShowsRatioToBest(t *testing.T) {
	results := []policyResult{
		{Policy: "SCAN", Stats: sim.Statistics{Processed: 4, TotalMovements: 100}},
		{Policy: "FIFO", Stats: sim.Statistics{Processed: 4, TotalMovements: 150}},
	}
	rankResults(results)
	var buf bytes.Buffer

	require.NoError(t, renderComparison(&buf, results))

	out := buf.String()
	assert.Contains(t, out, "Policy comparison")
	assert.Contains(t, out, "baseline")
	assert.Contains(t, out, "1.50x")
}

func TestRenderComparison_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderComparison(&buf, nil))
	assert.Empty(t, buf.String())
}

func TestSimulate_RendersRunReport(t *testing.T) {
	// GIVEN a small SCAN run with tracing
	cfg := fastConfig("SCAN")
	reqs, err := loadRequests(cfg.Workload)
	require.NoError(t, err)

	// WHEN simulated and rendered
	snap, err := simulate(context.Background(), cfg, reqs, runOptions{trace: true})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, renderRunReport(&buf, snap))

	// THEN every section is present
	assert.Equal(t, 12, snap.Scheduler.Processed)
	out := buf.String()
	assert.Contains(t, out, "Performance analysis (SCAN)")
	assert.Contains(t, out, "Final direction")
	assert.Contains(t, out, "DMA buffer")
	assert.Contains(t, out, "Transfer bus")
	assert.Contains(t, out, "Decision trace")
}

func TestComparePolicies_SameWorkloadForEveryPolicy(t *testing.T) {
	cfg := fastConfig("FIFO")

	results, err := comparePolicies(&cobra.Command{}, cfg, sim.PolicyNames())

	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, r := range results {
		assert.Equal(t, 12, r.Stats.Processed, r.Policy)
	}
}

func TestLoadRequests_ReplaysTraceFile(t *testing.T) {
	cfg := fastConfig("FIFO").Workload
	cfg.TracePath = "missing-trace.yaml"

	_, err := loadRequests(cfg)

	assert.Error(t, err)
}
