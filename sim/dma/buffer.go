// Package dma implements the bounded transfer buffer that stages requests
// between the scheduler and the transfer bus, with a key cache that
// short-circuits repeated (device, position, kind) transfers.
package dma

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/disk-sim/disk-sim/sim"
)

var (
	// ErrClosed is returned by Transfer after Shutdown.
	ErrClosed = errors.New("transfer buffer closed")
	// ErrDegraded is returned by Transfer once the staging worker lost its sink.
	ErrDegraded = errors.New("transfer buffer degraded")
)

// Sink receives staged requests in FIFO order. The transfer bus implements it.
type Sink interface {
	Enqueue(req *sim.Request) error
}

// Sample is one monitor observation.
type Sample struct {
	Time      time.Time
	Occupancy int
	HitRate   float64 // percent
}

// Status is a plain-data snapshot of the buffer.
type Status struct {
	Capacity      int
	Occupancy     int
	UsagePercent  float64
	CacheCapacity int
	CacheUsed     int
	Hits          int
	Misses        int
	HitRate       float64 // percent of transfers served from the cache
	Transfers     int     // requests staged
	Forwarded     int     // requests handed to the sink
	History       []Sample
	Degraded      bool
	Closed        bool
}

type cacheEntry struct {
	key sim.CacheKey
	req *sim.Request
}

// Buffer is the DMA transfer buffer. It owns two background tasks, the
// staging worker and the monitor sampler, for its whole lifetime.
type Buffer struct {
	cfg  sim.BufferConfig
	sink Sink

	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
	queue    []*sim.Request
	capacity int // effective capacity, never below occupancy
	target   int // requested capacity

	cache    map[sim.CacheKey]*list.Element
	order    *list.List // cache entries, oldest first
	cacheCap int

	hits      int
	misses    int
	transfers int
	forwarded int
	history   []Sample
	closed    bool
	degraded  bool

	cancel       context.CancelFunc
	group        *errgroup.Group
	shutdownOnce sync.Once
	shutdownErr  error
}

// New validates cfg and starts the staging worker and the monitor under ctx.
func New(ctx context.Context, sink Sink, cfg sim.BufferConfig) (*Buffer, error) {
	if sink == nil {
		return nil, fmt.Errorf("%w: buffer sink is nil", sim.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Buffer{
		cfg:      cfg,
		sink:     sink,
		capacity: cfg.Capacity,
		target:   cfg.Capacity,
		cache:    make(map[sim.CacheKey]*list.Element),
		order:    list.New(),
		cacheCap: cfg.CacheCapacity,
	}
	b.notFull = sync.NewCond(&b.mu)
	b.notEmpty = sync.NewCond(&b.mu)

	ctx, b.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	b.group = g
	g.Go(func() error { return b.stage(gctx) })
	g.Go(func() error { return b.monitor(gctx) })
	return b, nil
}

// waitLocked waits on cond for at most the configured timeout, or until ctx is done.
// b.mu must be held.
func (b *Buffer) waitLocked(ctx context.Context, cond *sync.Cond) {
	wake := func() {
		b.mu.Lock()
		cond.Broadcast()
		b.mu.Unlock()
	}
	t := time.AfterFunc(b.cfg.WaitTimeout, wake)
	stop := context.AfterFunc(ctx, wake)
	cond.Wait()
	t.Stop()
	stop()
}

func (b *Buffer) usableLocked() error {
	switch {
	case b.closed:
		return ErrClosed
	case b.degraded:
		return ErrDegraded
	}
	return nil
}

// Transfer stages req for the bus. A request whose key is cached returns the
// cached request without staging and never blocks. Otherwise Transfer blocks
// while the buffer is full, until space frees, ctx is done, or the buffer closes.
func (b *Buffer) Transfer(ctx context.Context, req *sim.Request) (sim.TransferResult, error) {
	if err := req.Validate(); err != nil {
		return sim.TransferResult{}, err
	}
	key := req.Key()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.usableLocked(); err != nil {
		return sim.TransferResult{}, err
	}
	if e, ok := b.cache[key]; ok {
		b.hits++
		return sim.TransferResult{Request: e.Value.(cacheEntry).req, CacheHit: true}, nil
	}

	for len(b.queue) >= b.capacity {
		if err := ctx.Err(); err != nil {
			return sim.TransferResult{}, err
		}
		logrus.Debugf("dma: buffer full (%d/%d), waiting", len(b.queue), b.capacity)
		b.waitLocked(ctx, b.notFull)
		if err := b.usableLocked(); err != nil {
			return sim.TransferResult{}, err
		}
	}

	b.misses++
	b.transfers++
	b.queue = append(b.queue, req)
	b.cacheLocked(key, req)
	b.notEmpty.Signal()
	return sim.TransferResult{Request: req}, nil
}

func (b *Buffer) cacheLocked(key sim.CacheKey, req *sim.Request) {
	b.cache[key] = b.order.PushBack(cacheEntry{key: key, req: req})
	b.evictLocked()
}

// evictLocked drops the oldest cache entries until the cache fits its capacity.
func (b *Buffer) evictLocked() {
	for b.order.Len() > b.cacheCap {
		front := b.order.Front()
		b.order.Remove(front)
		delete(b.cache, front.Value.(cacheEntry).key)
	}
}

// stage forwards staged requests to the sink, oldest first.
func (b *Buffer) stage(ctx context.Context) error {
	for {
		b.mu.Lock()
		for len(b.queue) == 0 && ctx.Err() == nil {
			b.waitLocked(ctx, b.notEmpty)
		}
		if ctx.Err() != nil {
			if !b.closed {
				logrus.Warnf("dma: staging worker stopped without shutdown (%v), closing buffer with %d staged",
					context.Cause(ctx), len(b.queue))
				b.closed = true
				b.notFull.Broadcast()
			}
			b.mu.Unlock()
			return nil
		}
		req := b.queue[0]
		b.queue[0] = nil
		b.queue = b.queue[1:]
		if b.capacity > b.target {
			b.capacity = max(b.target, len(b.queue))
		}
		b.notFull.Signal()
		b.mu.Unlock()

		if err := b.sink.Enqueue(req); err != nil {
			logrus.Errorf("dma: forwarding %s failed, marking buffer degraded: %v", req, err)
			b.mu.Lock()
			b.degraded = true
			b.notFull.Broadcast()
			b.mu.Unlock()
			return fmt.Errorf("staging worker: %w", err)
		}
		b.mu.Lock()
		b.forwarded++
		b.mu.Unlock()
	}
}

// monitor samples occupancy and hit rate every SampleInterval.
func (b *Buffer) monitor(ctx context.Context) error {
	ticker := time.NewTicker(b.cfg.SampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			b.sample(now)
		}
	}
}

func (b *Buffer) sample(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history, Sample{Time: now, Occupancy: len(b.queue), HitRate: b.hitRateLocked()})
	if limit := b.cfg.HistoryLimit; limit > 0 && len(b.history) > limit {
		b.history = append([]Sample(nil), b.history[len(b.history)-limit:]...)
	}
}

func (b *Buffer) hitRateLocked() float64 {
	total := b.hits + b.misses
	if total == 0 {
		return 0
	}
	return float64(b.hits) / float64(total) * 100
}

// Status returns a snapshot with the most recent StatusWindow samples.
func (b *Buffer) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	hist := b.history
	if w := b.cfg.StatusWindow; len(hist) > w {
		hist = hist[len(hist)-w:]
	}
	return Status{
		Capacity:      b.target,
		Occupancy:     len(b.queue),
		UsagePercent:  float64(len(b.queue)) / float64(b.target) * 100,
		CacheCapacity: b.cacheCap,
		CacheUsed:     b.order.Len(),
		Hits:          b.hits,
		Misses:        b.misses,
		HitRate:       b.hitRateLocked(),
		Transfers:     b.transfers,
		Forwarded:     b.forwarded,
		History:       append([]Sample(nil), hist...),
		Degraded:      b.degraded,
		Closed:        b.closed,
	}
}

// SetCacheCapacity resizes the cache, evicting the oldest entries at once when shrinking.
func (b *Buffer) SetCacheCapacity(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: cache capacity must be non-negative, got %d", sim.ErrInvalidConfig, n)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheCap = n
	b.evictLocked()
	return nil
}

// SetCapacity resizes the staging queue. Growing takes effect at once; shrinking
// below the current occupancy takes effect as the worker drains.
func (b *Buffer) SetCapacity(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: buffer capacity must be positive, got %d", sim.ErrInvalidConfig, n)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = n
	b.capacity = max(n, len(b.queue))
	b.notFull.Broadcast()
	return nil
}

// Shutdown stops both workers, wakes blocked callers, and hands any staged
// requests to the sink. It returns the staging worker error, if any. Safe to call more than once.
func (b *Buffer) Shutdown() error {
	b.shutdownOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.notFull.Broadcast()
		b.notEmpty.Broadcast()
		b.mu.Unlock()

		b.cancel()
		err := b.group.Wait()

		b.mu.Lock()
		staged := b.queue
		b.queue = nil
		degraded := b.degraded
		b.mu.Unlock()
		if !degraded {
			for _, req := range staged {
				if ferr := b.sink.Enqueue(req); ferr != nil {
					err = errors.Join(err, fmt.Errorf("flushing %s: %w", req, ferr))
					continue
				}
				b.mu.Lock()
				b.forwarded++
				b.mu.Unlock()
			}
		}
		b.shutdownErr = err
	})
	return b.shutdownErr
}
