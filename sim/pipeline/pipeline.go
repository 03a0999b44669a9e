// Package pipeline assembles the transfer bus, the DMA buffer and the disk
// scheduler from one sim.Config and drives a workload through them.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/disk-sim/disk-sim/sim"
	"github.com/disk-sim/disk-sim/sim/bus"
	"github.com/disk-sim/disk-sim/sim/dma"
	"github.com/disk-sim/disk-sim/sim/trace"
	"github.com/disk-sim/disk-sim/sim/workload"
)

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	logSink   sim.LogSink
	trace     *trace.SimulationTrace
	schedOpts []sim.Option
	busOpts   []bus.Option
}

// WithLogSink routes scheduler events to sink.
func WithLogSink(sink sim.LogSink) Option {
	return func(o *options) { o.logSink = sink }
}

// WithTrace records scheduler decisions into st.
func WithTrace(st *trace.SimulationTrace) Option {
	return func(o *options) { o.trace = st }
}

// WithSchedulerOptions passes extra options to the scheduler, after the pipeline's own.
func WithSchedulerOptions(opts ...sim.Option) Option {
	return func(o *options) { o.schedOpts = append(o.schedOpts, opts...) }
}

// WithBusOptions passes extra options to the bus.
func WithBusOptions(opts ...bus.Option) Option {
	return func(o *options) { o.busOpts = append(o.busOpts, opts...) }
}

// Pipeline is one assembled simulation. Buffer is nil when the buffer is disabled.
type Pipeline struct {
	Config    sim.Config
	Bus       *bus.Bus
	Buffer    *dma.Buffer
	Scheduler *sim.DiskScheduler
	Trace     *trace.SimulationTrace
}

// Snapshot aggregates the status of every component.
type Snapshot struct {
	Scheduler sim.SchedulerStatus
	Report    sim.PerformanceReport
	Buffer    *dma.Status // nil when the buffer is disabled
	Bus       bus.Status
	Trace     *trace.TraceSummary // nil when tracing is off
}

// New validates cfg and builds the bus, the buffer and the scheduler, in that order.
func New(ctx context.Context, cfg sim.Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pipeline{Config: cfg, Trace: o.trace}
	p.Bus = bus.New(ctx, cfg.Bus, o.busOpts...)

	schedOpts := []sim.Option{sim.WithLogSink(o.logSink), sim.WithTrace(o.trace)}
	if cfg.Buffer.Enabled {
		buf, err := dma.New(ctx, p.Bus, cfg.Buffer)
		if err != nil {
			p.Bus.Shutdown()
			return nil, fmt.Errorf("creating buffer: %w", err)
		}
		p.Buffer = buf
		schedOpts = append(schedOpts, sim.WithTransferer(buf))
	}
	sched, err := sim.NewDiskScheduler(cfg.Scheduler, append(schedOpts, o.schedOpts...)...)
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	p.Scheduler = sched
	return p, nil
}

// Run submits reqs and services them until all are processed. With a positive
// arrival rate the requests are fed through a rate limiter while the scheduler serves them.
func (p *Pipeline) Run(ctx context.Context, reqs []*sim.Request) error {
	wl := p.Config.Workload
	if wl.ArrivalRate <= 0 {
		if err := p.Scheduler.Submit(reqs...); err != nil {
			return err
		}
		return p.Scheduler.Run(ctx)
	}

	inputClosed := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(inputClosed)
		_, err := workload.Feed(gctx, p.Scheduler, reqs, wl.ArrivalRate, wl.Burst)
		return err
	})
	g.Go(func() error { return p.Scheduler.Serve(gctx, inputClosed) })
	return g.Wait()
}

// Shutdown tears down in reverse order: the buffer flushes staged requests to
// the bus, the bus drains (bounded by ctx), then the bus stops.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	var errs []error
	if p.Buffer != nil {
		if err := p.Buffer.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("buffer shutdown: %w", err))
		}
	}
	if p.Bus != nil {
		if err := p.Bus.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("bus drain: %w", err))
		}
		p.Bus.Shutdown()
	}
	return errors.Join(errs...)
}

// Snapshot returns the current status of every component.
func (p *Pipeline) Snapshot() Snapshot {
	s := Snapshot{
		Scheduler: p.Scheduler.Status(),
		Report:    p.Scheduler.Analysis(),
		Bus:       p.Bus.Status(),
	}
	if p.Buffer != nil {
		st := p.Buffer.Status()
		s.Buffer = &st
	}
	if p.Trace.Enabled() {
		sum := trace.Summarize(p.Trace)
		s.Trace = sum
	}
	return s
}
