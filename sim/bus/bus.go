// Package bus implements the priority-level transfer bus. Requests wait in one
// FIFO queue per priority level; an on-demand worker drains the highest
// non-empty level completely, then re-scans from the top.
package bus

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/disk-sim/disk-sim/sim"
)

var (
	// ErrClosed is returned by Enqueue after Shutdown or cancellation of the bus context.
	ErrClosed = errors.New("transfer bus closed")
	// ErrDegraded is returned by Enqueue once the drain worker failed unrecoverably.
	ErrDegraded = errors.New("transfer bus degraded")
)

// State is the drain worker state.
type State int

const (
	Idle     State = iota // no worker running
	Draining              // a worker is dispatching queued requests
)

func (s State) String() string {
	if s == Draining {
		return "draining"
	}
	return "idle"
}

// DispatchHook observes every dispatched request, in dispatch order.
type DispatchHook func(req *sim.Request)

// Option configures a Bus.
type Option func(*Bus)

// WithDispatchHook calls fn for each request after its service delay.
func WithDispatchHook(fn DispatchHook) Option {
	return func(b *Bus) { b.onDispatch = fn }
}

// WithSleeper replaces the per-request delay suspension. fn must honor ctx.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(b *Bus) {
		if fn != nil {
			b.sleep = fn
		}
	}
}

// Status is a plain-data snapshot of the bus.
type Status struct {
	Enqueued    int
	Processed   int
	AverageTime time.Duration   // mean time per dispatched request
	Depth       map[int]int     // level -> queued requests
	Weights     map[int]float64 // level -> configured weight
	State       State
	Degraded    bool
}

// Pending returns the number of queued requests across all levels.
func (s Status) Pending() int {
	n := 0
	for _, d := range s.Depth {
		n += d
	}
	return n
}

// Bus is the priority transfer bus. It is safe for concurrent use.
type Bus struct {
	ctx    context.Context
	cancel context.CancelFunc
	delay  time.Duration
	sleep  func(ctx context.Context, d time.Duration) error

	onDispatch DispatchHook

	mu        sync.Mutex
	levels    [sim.MaxPriority + 1][]*sim.Request
	current   int // level being drained, 0 when none
	state     State
	idle      chan struct{} // closed when the current drain period ends
	wg        sync.WaitGroup
	enqueued  int
	processed int
	busy      time.Duration
	weights   map[int]float64
	closed    bool
	degraded  bool
}

// New creates an idle bus bound to ctx. Cancelling ctx stops the worker at its next suspension.
func New(ctx context.Context, cfg sim.BusConfig, opts ...Option) *Bus {
	ctx, cancel := context.WithCancel(ctx)
	b := &Bus{
		ctx:     ctx,
		cancel:  cancel,
		delay:   cfg.ServiceDelay,
		sleep:   sim.SleepContext,
		weights: sim.DefaultPriorityWeights(),
		idle:    closedChan(),
	}
	for level, w := range cfg.PriorityWeights {
		b.weights[level] = w
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func closedChan() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

// Enqueue appends req to the queue of its priority level and starts a worker if none is active.
func (b *Bus) Enqueue(req *sim.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.closed || b.ctx.Err() != nil:
		return ErrClosed
	case b.degraded:
		return ErrDegraded
	}
	level := sim.ClampPriority(req.Priority)
	b.levels[level] = append(b.levels[level], req)
	b.enqueued++
	if b.state == Idle {
		b.state = Draining
		b.idle = make(chan struct{})
		b.wg.Add(1)
		go b.drain()
	}
	return nil
}

// next pops the oldest request of the level being drained. Once that level is
// exhausted it re-scans from the highest level, so higher arrivals preempt the
// remaining lower levels. When every level is empty it moves the bus to Idle and returns nil.
func (b *Bus) next() *sim.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == 0 || len(b.levels[b.current]) == 0 {
		b.current = 0
		for level := sim.MaxPriority; level >= sim.MinPriority; level-- {
			if len(b.levels[level]) > 0 {
				b.current = level
				break
			}
		}
	}
	if b.current == 0 {
		b.stopLocked()
		return nil
	}
	q := b.levels[b.current]
	req := q[0]
	q[0] = nil
	b.levels[b.current] = q[1:]
	return req
}

func (b *Bus) stopLocked() {
	if b.state == Draining {
		b.state = Idle
		close(b.idle)
	}
}

func (b *Bus) drain() {
	defer b.wg.Done()
	for {
		req := b.next()
		if req == nil {
			return
		}
		start := time.Now()
		if err := b.sleep(b.ctx, b.delay); err != nil {
			b.mu.Lock()
			// the interrupted request goes back to the front of its level
			level := sim.ClampPriority(req.Priority)
			b.levels[level] = append([]*sim.Request{req}, b.levels[level]...)
			b.stopLocked()
			b.mu.Unlock()
			return
		}
		if err := b.dispatch(req); err != nil {
			logrus.Errorf("bus: dispatch of %s failed, marking bus degraded: %v", req, err)
			b.mu.Lock()
			b.degraded = true
			b.stopLocked()
			b.mu.Unlock()
			return
		}
		b.mu.Lock()
		b.processed++
		b.busy += time.Since(start)
		b.mu.Unlock()
	}
}

// dispatch runs the hook, converting a panic into an error.
func (b *Bus) dispatch(req *sim.Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("dispatch panic: %v\nstack trace:\n%s", r, buf[:n])
		}
	}()
	if b.onDispatch != nil {
		b.onDispatch(req)
	}
	logrus.Debugf("bus: dispatched %s", req)
	return nil
}

// SetPriorityWeight records a weight for level. Weights affect reporting only.
func (b *Bus) SetPriorityWeight(level int, weight float64) error {
	if err := sim.ValidatePriorityWeight(level, weight); err != nil {
		return err
	}
	b.mu.Lock()
	b.weights[level] = weight
	b.mu.Unlock()
	return nil
}

// Status returns a snapshot of counters, per-level depth and worker state.
func (b *Bus) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := Status{
		Enqueued:  b.enqueued,
		Processed: b.processed,
		Depth:     make(map[int]int, sim.MaxPriority),
		Weights:   make(map[int]float64, len(b.weights)),
		State:     b.state,
		Degraded:  b.degraded,
	}
	if b.processed > 0 {
		st.AverageTime = b.busy / time.Duration(b.processed)
	}
	for level := sim.MinPriority; level <= sim.MaxPriority; level++ {
		st.Depth[level] = len(b.levels[level])
	}
	for level, w := range b.weights {
		st.Weights[level] = w
	}
	return st
}

// Wait blocks until the bus is idle or ctx is done.
func (b *Bus) Wait(ctx context.Context) error {
	b.mu.Lock()
	idle := b.idle
	b.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown rejects further requests, cancels the bus token and joins the active worker.
// Requests still queued stay visible in Status. Safe to call more than once.
func (b *Bus) Shutdown() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.cancel()
	b.wg.Wait()
}
