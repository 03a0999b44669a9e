package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"github.com/disk-sim/disk-sim/sim"
	"github.com/disk-sim/disk-sim/sim/pipeline"
	"github.com/disk-sim/disk-sim/sim/workload"
)

// drainSlack bounds how long shutdown waits for the bus beyond its nominal drain time.
const drainSlack = 5 * time.Second

type runOptions struct {
	sink     sim.LogSink
	progress bool
	trace    bool
}

// loadRequests replays the configured trace file or generates a seeded batch.
func loadRequests(cfg sim.WorkloadConfig) ([]*sim.Request, error) {
	if cfg.TracePath != "" {
		tf, err := workload.LoadTrace(cfg.TracePath)
		if err != nil {
			return nil, err
		}
		return tf.ToRequests()
	}
	return workload.Generate(workload.SpecFromConfig(cfg))
}

// simulate runs reqs through a fresh pipeline and returns its final snapshot.
// The snapshot is valid even when the run was interrupted.
func simulate(ctx context.Context, cfg sim.Config, reqs []*sim.Request, opts runOptions) (pipeline.Snapshot, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	pOpts := []pipeline.Option{
		pipeline.WithLogSink(opts.sink),
		pipeline.WithTrace(newTrace(opts.trace)),
	}
	if opts.progress && len(reqs) > 0 {
		bar := newProgressBar(len(reqs), fmt.Sprintf("Simulating %s", cfg.Scheduler.Policy))
		defer func() { _ = bar.Finish() }()
		pOpts = append(pOpts, pipeline.WithSchedulerOptions(sim.WithServiceHook(func(*sim.Request, sim.AccessMetric) {
			_ = bar.Add(1)
		})))
	}

	p, err := pipeline.New(ctx, cfg, pOpts...)
	if err != nil {
		return pipeline.Snapshot{}, err
	}
	runErr := p.Run(ctx, reqs)

	drain := time.Duration(len(reqs)+1)*cfg.Bus.ServiceDelay + drainSlack
	shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()
	if err := p.Shutdown(shutdownCtx); err != nil {
		logrus.Warnf("Pipeline shutdown: %v", err)
	}
	return p.Snapshot(), runErr
}

func newProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}
