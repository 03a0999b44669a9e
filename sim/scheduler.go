package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/disk-sim/disk-sim/sim/trace"
)

// slowServiceThreshold separates Info from Warn service events in the log sink.
const slowServiceThreshold = 300 * time.Millisecond

// TransferResult is what the transfer path returns for a selected request.
type TransferResult struct {
	Request  *Request // the staged request, or the cached one on a hit
	CacheHit bool
}

// Transferer hands a selected request to the transfer path (the DMA buffer).
// Transfer may block while the path applies backpressure.
type Transferer interface {
	Transfer(ctx context.Context, req *Request) (TransferResult, error)
}

// ServiceHook observes every serviced request after its metric is recorded.
type ServiceHook func(req *Request, metric AccessMetric)

// DiskScheduler owns the pending requests and the head position, selects the
// next request with its policy, forwards it to the transfer path and records
// the synthetic service into its Ledger.
//
// Submit may be called from any goroutine. Process, Run and Serve must be
// driven by a single goroutine.
type DiskScheduler struct {
	mu        sync.Mutex
	policy    Policy
	cfg       SchedulerConfig
	selector  selector
	pending   PendingQueue
	waitStart map[uuid.UUID]time.Time
	head      int
	submitted chan struct{}

	cacheHits        int
	transferFailures int

	ledger    *Ledger
	seek      ServiceTimeModel
	transfer  Transferer
	logSink   LogSink
	trace     *trace.SimulationTrace
	onService ServiceHook
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option configures a DiskScheduler.
type Option func(*DiskScheduler)

// WithTransferer routes every selected request through t before it is serviced.
func WithTransferer(t Transferer) Option {
	return func(s *DiskScheduler) { s.transfer = t }
}

// WithLogSink sets the sink for policy-significant events.
func WithLogSink(sink LogSink) Option {
	return func(s *DiskScheduler) { s.logSink = sink }
}

// WithClock replaces the wall clock used for waits, aging and spans.
func WithClock(now func() time.Time) Option {
	return func(s *DiskScheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSleeper replaces the service-time suspension. fn must honor ctx.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *DiskScheduler) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// WithTrace records every selection into st.
func WithTrace(st *trace.SimulationTrace) Option {
	return func(s *DiskScheduler) { s.trace = st }
}

// WithServiceHook calls fn after each serviced request.
func WithServiceHook(fn ServiceHook) Option {
	return func(s *DiskScheduler) { s.onService = fn }
}

// WithHeadPosition starts the head at pos instead of sector 0.
func WithHeadPosition(pos int) Option {
	return func(s *DiskScheduler) { s.head = max(pos, 0) }
}

// WithSeekModel replaces the default SeekModel.
func WithSeekModel(m ServiceTimeModel) Option {
	return func(s *DiskScheduler) { s.seek = m }
}

// NewDiskScheduler creates a scheduler for cfg.Policy.
// Returns ErrUnknownPolicy for an unrecognized policy name and ErrInvalidConfig for bad parameters.
func NewDiskScheduler(cfg SchedulerConfig, opts ...Option) (*DiskScheduler, error) {
	p, err := ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &DiskScheduler{
		policy:    p,
		cfg:       cfg,
		selector:  newSelector(p, cfg),
		waitStart: make(map[uuid.UUID]time.Time),
		submitted: make(chan struct{}, 1),
		now:       time.Now,
		sleep:     SleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.seek == nil {
		s.seek = NewSeekModel(cfg.SeekCostPerMovement)
	}
	s.ledger = NewLedgerWithClock(s.now)
	return s, nil
}

// SleepContext suspends for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Policy returns the scheduling policy fixed at construction.
func (s *DiskScheduler) Policy() Policy { return s.policy }

// Ledger returns the metrics ledger fed by this scheduler.
func (s *DiskScheduler) Ledger() *Ledger { return s.ledger }

// Submit adds requests to the pending set. Requests without an identity get one.
// The whole batch is rejected if any request is invalid or already pending.
func (s *DiskScheduler) Submit(reqs ...*Request) error {
	for _, r := range reqs {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	now := s.now()

	s.mu.Lock()
	seen := make(map[uuid.UUID]bool, len(reqs))
	for _, r := range reqs {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		if _, dup := s.waitStart[r.ID]; dup || seen[r.ID] {
			s.mu.Unlock()
			return fmt.Errorf("%w: request %s already pending", ErrInvalidRequest, r.ID)
		}
		seen[r.ID] = true
	}
	for _, r := range reqs {
		if r.WaitStart.IsZero() {
			r.WaitStart = now
		}
		s.waitStart[r.ID] = r.WaitStart
		s.pending.Enqueue(r)
	}
	s.mu.Unlock()

	select {
	case s.submitted <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of requests waiting for selection.
func (s *DiskScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Len()
}

// HeadPosition returns the last serviced position.
func (s *DiskScheduler) HeadPosition() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head
}

// SelectNext applies the policy at head and removes the chosen request from the pending set.
// Returns nil when nothing is pending. The head position is not advanced.
func (s *DiskScheduler) SelectNext(head int) *Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, req := s.selectLocked(head)
	return req
}

// selectLocked never consults the policy on an empty pending set, so sweep
// state only changes when there is something to choose. A removed request
// leaves the identity map and may be submitted again.
func (s *DiskScheduler) selectLocked(head int) (Selection, *Request) {
	if s.pending.Len() == 0 {
		return Selection{Index: -1}, nil
	}
	sel := s.selector.Select(&selectionContext{
		pending:   &s.pending,
		head:      head,
		now:       s.now(),
		waitStart: s.waitStart,
	})
	if sel.Index < 0 {
		return sel, nil
	}
	req := s.pending.Remove(sel.Index)
	delete(s.waitStart, req.ID)
	return sel, req
}

// Process services one request: select, transfer, simulate the seek and record the access.
// Returns (nil, nil) when nothing is pending. On cancellation the selected request
// is returned with the context error and no metric is recorded for it.
func (s *DiskScheduler) Process(ctx context.Context) (*Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.pending.Len() == 0 {
		s.mu.Unlock()
		return nil, nil
	}
	s.ledger.BeginRequest()
	head := s.head
	sel, req := s.selectLocked(head)
	remaining := s.pending.Len()
	s.mu.Unlock()
	if req == nil {
		return nil, nil
	}

	cacheHit, err := s.transferSelected(ctx, req.WithPriority(sel.Priority))
	if err != nil {
		return req, err
	}

	movements := req.Position - head
	if movements < 0 {
		movements = -movements
	}
	serviceStart := s.now()
	if err := s.sleep(ctx, s.seek.Predict(req.Position, movements)); err != nil {
		return req, err
	}
	metric := s.ledger.RecordAccess(movements, req.Position)
	s.seek.Observe(req.Position, movements, metric.EndTime.Sub(serviceStart))

	s.mu.Lock()
	s.head = req.Position
	if cacheHit {
		s.cacheHits++
	}
	direction, _, _ := s.sweepStateLocked()
	s.mu.Unlock()

	s.trace.RecordSelection(trace.SelectionRecord{
		RequestID:  req.ID.String(),
		Policy:     s.policy.String(),
		Clock:      metric.EndTime,
		Position:   req.Position,
		HeadBefore: head,
		Movements:  movements,
		Priority:   sel.Priority,
		Score:      sel.Score,
		Direction:  direction,
		Pending:    remaining,
		CacheHit:   cacheHit,
	})
	if s.onService != nil {
		s.onService(req, metric)
	}

	elapsed := metric.ProcessingTime()
	level := logrus.InfoLevel
	if elapsed >= slowServiceThreshold {
		level = logrus.WarnLevel
	}
	s.logSink.log(level, fmt.Sprintf("Scheduler: serviced %s in %.3fs", req, elapsed.Seconds()))
	logrus.Debugf("scheduler: %s selected position %d (head %d, score %.2f, %d pending)",
		s.policy, req.Position, head, sel.Score, remaining)
	return req, nil
}

// transferSelected hands req to the transfer path. Transfer failures other than
// cancellation are logged and traced; the request is still serviced.
func (s *DiskScheduler) transferSelected(ctx context.Context, req *Request) (bool, error) {
	if s.transfer == nil {
		return false, nil
	}
	res, err := s.transfer.Transfer(ctx, req)
	if err == nil {
		return res.CacheHit, nil
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	s.mu.Lock()
	s.transferFailures++
	s.mu.Unlock()
	logrus.Warnf("scheduler: transfer of %s failed: %v", req, err)
	s.trace.RecordTransfer(trace.TransferRecord{RequestID: req.ID.String(), Clock: s.now(), Reason: err.Error()})
	return false, nil
}

// Run services requests until nothing is pending, then logs completion and the performance analysis.
func (s *DiskScheduler) Run(ctx context.Context) error {
	closed := make(chan struct{})
	close(closed)
	return s.Serve(ctx, closed)
}

// Serve services requests as they are submitted. It returns once inputClosed is
// closed and the pending set is empty, or when ctx is done.
func (s *DiskScheduler) Serve(ctx context.Context, inputClosed <-chan struct{}) error {
	s.logSink.log(logrus.InfoLevel, fmt.Sprintf("Scheduler: starting simulation with policy %s", s.policy))
	for {
		req, err := s.Process(ctx)
		if err != nil {
			s.logSink.log(logrus.WarnLevel, fmt.Sprintf("Scheduler: run stopped with %d pending: %v", s.Pending(), err))
			return err
		}
		if req != nil {
			continue
		}

		select {
		case <-inputClosed:
			if s.Pending() > 0 {
				continue
			}
			s.logSink.log(logrus.InfoLevel, "Scheduler: simulation completed")
			s.logAnalysis()
			return nil
		default:
		}

		select {
		case <-s.submitted:
		case <-inputClosed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// sweepStateLocked reports direction, flips and wraps for sweep policies; other policies report direction +1.
func (s *DiskScheduler) sweepStateLocked() (direction, flips, wraps int) {
	if sc, ok := s.selector.(*scanSelector); ok {
		return sc.Direction(), sc.Flips(), sc.Wraps()
	}
	return 1, 0, 0
}

// Direction returns the current sweep direction (+1 ascending, -1 descending).
func (s *DiskScheduler) Direction() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, _, _ := s.sweepStateLocked()
	return d
}

func directionLabel(d int) string {
	if d < 0 {
		return "descending"
	}
	return "ascending"
}
