package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/disk-sim/disk-sim/sim"
	"github.com/disk-sim/disk-sim/sim/bus"
	"github.com/disk-sim/disk-sim/sim/trace"
)

func instant(ctx context.Context, _ time.Duration) error { return ctx.Err() }

type busRecorder struct {
	mu        sync.Mutex
	positions []int
}

func (r *busRecorder) hook(req *sim.Request) {
	r.mu.Lock()
	r.positions = append(r.positions, req.Position)
	r.mu.Unlock()
}

func (r *busRecorder) got() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.positions...)
}

func testConfig(policy string) sim.Config {
	cfg := sim.DefaultConfig()
	cfg.Scheduler.Policy = policy
	cfg.Buffer.SampleInterval = time.Millisecond
	cfg.Buffer.WaitTimeout = 10 * time.Millisecond
	return cfg
}

func newTestPipeline(t *testing.T, cfg sim.Config, opts ...Option) (*Pipeline, *busRecorder) {
	t.Helper()
	rec := &busRecorder{}
	base := []Option{
		WithSchedulerOptions(sim.WithSleeper(instant)),
		WithBusOptions(bus.WithSleeper(instant), bus.WithDispatchHook(rec.hook)),
	}
	p, err := New(context.Background(), cfg, append(base, opts...)...)
	require.NoError(t, err)
	return p, rec
}

func shutdown(t *testing.T, p *Pipeline) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
}

func reads(positions ...int) []*sim.Request {
	reqs := make([]*sim.Request, len(positions))
	for i, pos := range positions {
		reqs[i] = sim.NewRequest(1, pos, sim.KindRead, 1)
	}
	return reqs
}

func TestPipeline_SCAN_EndToEnd(t *testing.T) {
	// GIVEN a SCAN pipeline with the buffer and bus enabled
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	p, rec := newTestPipeline(t, testConfig("SCAN"), WithTrace(st))

	// WHEN four requests run to completion and the pipeline shuts down
	require.NoError(t, p.Run(context.Background(), reads(10, 50, 30, 70)))
	shutdown(t, p)

	// THEN the bus saw them in sweep order and every component agrees on the counts
	assert.Equal(t, []int{10, 30, 50, 70}, rec.got())
	snap := p.Snapshot()
	assert.Equal(t, 4, snap.Scheduler.Processed)
	assert.Equal(t, 70, snap.Scheduler.HeadMovements)
	assert.Equal(t, 0, snap.Scheduler.Pending)
	require.NotNil(t, snap.Buffer)
	assert.Equal(t, 4, snap.Buffer.Forwarded)
	assert.Equal(t, 4, snap.Bus.Processed)
	require.NotNil(t, snap.Trace)
	assert.Equal(t, 4, snap.Trace.TotalDecisions)
	assert.Equal(t, "SCAN", snap.Report.Policy)
}

func TestPipeline_RepeatedKeyIsServedFromCache(t *testing.T) {
	p, rec := newTestPipeline(t, testConfig("FIFO"))

	require.NoError(t, p.Run(context.Background(), reads(5, 9, 5)))
	shutdown(t, p)

	snap := p.Snapshot()
	assert.Equal(t, 3, snap.Scheduler.Processed)
	assert.Equal(t, 1, snap.Scheduler.CacheHits)
	assert.Equal(t, 1, snap.Buffer.Hits)
	assert.Equal(t, []int{5, 9}, rec.got())
}

func TestPipeline_BufferDisabled_SkipsTransferPath(t *testing.T) {
	cfg := testConfig("SSTF")
	cfg.Buffer.Enabled = false
	p, rec := newTestPipeline(t, cfg)

	require.NoError(t, p.Run(context.Background(), reads(40, 10, 20)))
	shutdown(t, p)

	snap := p.Snapshot()
	assert.Nil(t, p.Buffer)
	assert.Nil(t, snap.Buffer)
	assert.Nil(t, snap.Trace)
	assert.Equal(t, 3, snap.Scheduler.Processed)
	assert.Empty(t, rec.got())
}

func TestPipeline_RateLimitedFeed(t *testing.T) {
	// GIVEN a fast arrival rate
	cfg := testConfig("C-SCAN")
	cfg.Workload.ArrivalRate = 1000
	cfg.Workload.Burst = 2
	p, rec := newTestPipeline(t, cfg)

	// WHEN requests are streamed in
	require.NoError(t, p.Run(context.Background(), reads(3, 6, 9, 12, 15)))
	shutdown(t, p)

	// THEN all of them are serviced and forwarded
	assert.Equal(t, 5, p.Snapshot().Scheduler.Processed)
	assert.ElementsMatch(t, []int{3, 6, 9, 12, 15}, rec.got())
}

func TestPipeline_CancelledRun(t *testing.T) {
	cfg := testConfig("FIFO")
	cfg.Workload.ArrivalRate = 0.01
	p, _ := newTestPipeline(t, cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := p.Run(ctx, reads(1, 2, 3))

	assert.Error(t, err)
	shutdown(t, p)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(context.Background(), testConfig("ELEVATOR"))
	assert.ErrorIs(t, err, sim.ErrUnknownPolicy)

	cfg := testConfig("FIFO")
	cfg.Buffer.Capacity = 0
	_, err = New(context.Background(), cfg)
	assert.ErrorIs(t, err, sim.ErrInvalidConfig)
}
