package sim

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Policy is the closed set of disk-head scheduling policies.
// A policy is chosen once when the scheduler is constructed and never changes during a run.
type Policy int

const (
	PolicyFIFOAging Policy = iota // FIFO with priority aging
	PolicySSTF                    // predictive shortest-seek-time-first
	PolicySCAN                    // elevator sweep, reverses at the last request
	PolicyCSCAN                   // circular sweep, wraps to the lowest request
)

var policyNames = map[Policy]string{
	PolicyFIFOAging: "FIFO",
	PolicySSTF:      "SSTF",
	PolicySCAN:      "SCAN",
	PolicyCSCAN:     "C-SCAN",
}

// ValidPolicies maps every accepted (lower-case) policy name to its Policy.
// Shared by ParsePolicy and config bundle validation.
var ValidPolicies = map[string]Policy{
	"fifo":       PolicyFIFOAging,
	"fifo-aging": PolicyFIFOAging,
	"sstf":       PolicySSTF,
	"scan":       PolicySCAN,
	"c-scan":     PolicyCSCAN,
	"cscan":      PolicyCSCAN,
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy resolves a policy name case-insensitively.
func ParsePolicy(name string) (Policy, error) {
	p, ok := ValidPolicies[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownPolicy, name)
	}
	return p, nil
}

// IsValidPolicy returns true if name is a recognized policy name.
func IsValidPolicy(name string) bool {
	_, err := ParsePolicy(name)
	return err == nil
}

// PolicyNames returns the canonical policy names in declaration order.
func PolicyNames() []string {
	names := make([]string, 0, len(policyNames))
	for p := PolicyFIFOAging; p <= PolicyCSCAN; p++ {
		names = append(names, p.String())
	}
	return names
}

// Selection is the outcome of one policy pass over the pending queue.
type Selection struct {
	Index    int     // index into the pending queue, -1 when nothing was selected
	Priority int     // effective priority at selection time
	Score    float64 // policy-specific score (SSTF score, FIFO aged priority, sweep distance)
}

// selectionContext carries the read-only inputs of one selection pass.
type selectionContext struct {
	pending   *PendingQueue
	head      int
	now       time.Time
	waitStart map[uuid.UUID]time.Time
}

// wait returns how long r has been pending; zero if it has no recorded start.
func (c *selectionContext) wait(r *Request) time.Duration {
	ws, ok := c.waitStart[r.ID]
	if !ok || c.now.Before(ws) {
		return 0
	}
	return c.now.Sub(ws)
}

// selector picks the next request from the pending queue.
// Exactly one implementation exists per Policy.
type selector interface {
	Select(ctx *selectionContext) Selection
}

func newSelector(p Policy, cfg SchedulerConfig) selector {
	switch p {
	case PolicyFIFOAging:
		return &fifoAgingSelector{threshold: cfg.AgingThreshold}
	case PolicySSTF:
		return newSSTFSelector(sstfFrequencyWindow)
	case PolicySCAN:
		return &scanSelector{direction: 1}
	case PolicyCSCAN:
		return &scanSelector{direction: 1, circular: true}
	default:
		panic(fmt.Sprintf("unhandled policy %v", p))
	}
}

// === FIFO with aging ===

// AgedPriority returns base raised by one level per full threshold waited, capped at MaxPriority.
// It is derived afresh on every pass, so aging never compounds.
func AgedPriority(base int, wait, threshold time.Duration) int {
	if threshold <= 0 || wait <= 0 {
		return ClampPriority(base)
	}
	return ClampPriority(base + int(wait/threshold))
}

type fifoAgingSelector struct {
	threshold time.Duration
}

func (f *fifoAgingSelector) Select(ctx *selectionContext) Selection {
	best := Selection{Index: -1}
	var bestSeq uint64
	for i, r := range ctx.pending.Items() {
		eff := AgedPriority(r.Priority, ctx.wait(r), f.threshold)
		seq := ctx.pending.Seq(i)
		if best.Index < 0 || eff > best.Priority || (eff == best.Priority && seq < bestSeq) {
			best = Selection{Index: i, Priority: eff, Score: float64(eff)}
			bestSeq = seq
		}
	}
	return best
}

// === Predictive SSTF ===

const (
	sstfFrequencyWindow = 60 * time.Second
	sstfMaxWaitCredit   = 20.0
)

// SSTFScore blends priority, recent access frequency, predicted re-access and
// wait-time credit against seek distance. Higher scores are serviced first.
func SSTFScore(priority, frequency, predicted, distance int, wait time.Duration) float64 {
	return float64(priority*10+frequency*5+predicted*2-distance) +
		min(wait.Seconds()*2, sstfMaxWaitCredit)
}

type sstfSelector struct {
	window    time.Duration
	history   map[int][]time.Time // position -> access timestamps inside the window
	predicted map[int]int         // position -> selections so far
	totals    map[int]int         // position -> lifetime accesses, for reporting
}

func newSSTFSelector(window time.Duration) *sstfSelector {
	return &sstfSelector{
		window:    window,
		history:   make(map[int][]time.Time),
		predicted: make(map[int]int),
		totals:    make(map[int]int),
	}
}

// recentFrequency counts accesses to pos within the frequency window.
func (s *sstfSelector) recentFrequency(pos int, now time.Time) int {
	n := 0
	for _, t := range s.history[pos] {
		if now.Sub(t) < s.window {
			n++
		}
	}
	return n
}

func (s *sstfSelector) Select(ctx *selectionContext) Selection {
	best := Selection{Index: -1}
	for i, r := range ctx.pending.Items() {
		distance := r.Position - ctx.head
		if distance < 0 {
			distance = -distance
		}
		score := SSTFScore(r.Priority, s.recentFrequency(r.Position, ctx.now), s.predicted[r.Position], distance, ctx.wait(r))
		if best.Index < 0 || score > best.Score {
			best = Selection{Index: i, Priority: r.Priority, Score: score}
		}
	}
	if best.Index >= 0 {
		s.record(ctx.pending.Items()[best.Index].Position, ctx.now)
	}
	return best
}

// record logs an access at pos and drops timestamps that left the window.
func (s *sstfSelector) record(pos int, now time.Time) {
	kept := s.history[pos][:0]
	for _, t := range s.history[pos] {
		if now.Sub(t) < s.window {
			kept = append(kept, t)
		}
	}
	s.history[pos] = append(kept, now)
	s.predicted[pos]++
	s.totals[pos]++
}

// AccessPatterns returns lifetime access counts per position.
func (s *sstfSelector) AccessPatterns() map[int]int {
	out := make(map[int]int, len(s.totals))
	for pos, n := range s.totals {
		out[pos] = n
	}
	return out
}

// === SCAN / C-SCAN ===

type scanSelector struct {
	direction int // +1 toward higher sectors, -1 toward lower
	circular  bool
	flips     int
	wraps     int
}

func (s *scanSelector) Select(ctx *selectionContext) Selection {
	// nearest ahead (>= head), nearest behind (< head) and lowest behind, first in pending order on ties
	ahead, behind, lowest := -1, -1, -1
	items := ctx.pending.Items()
	for i, r := range items {
		if r.Position >= ctx.head {
			if ahead < 0 || r.Position < items[ahead].Position {
				ahead = i
			}
			continue
		}
		if behind < 0 || r.Position > items[behind].Position {
			behind = i
		}
		if lowest < 0 || r.Position < items[lowest].Position {
			lowest = i
		}
	}

	pick := -1
	switch {
	case s.circular:
		pick = ahead
		if pick < 0 && lowest >= 0 {
			pick = lowest
			s.wraps++
		}
	case s.direction > 0:
		pick = ahead
		if pick < 0 {
			s.direction = -1
			s.flips++
			pick = behind
		}
	default:
		pick = behind
		if pick < 0 {
			s.direction = 1
			s.flips++
			pick = ahead
		}
	}
	if pick < 0 {
		return Selection{Index: -1}
	}
	r := items[pick]
	distance := r.Position - ctx.head
	if distance < 0 {
		distance = -distance
	}
	return Selection{Index: pick, Priority: r.Priority, Score: float64(distance)}
}

// Direction returns the current sweep direction (+1 or -1).
func (s *scanSelector) Direction() int { return s.direction }

// Flips returns how many times the sweep reversed.
func (s *scanSelector) Flips() int { return s.flips }

// Wraps returns how many times a circular sweep returned to the lowest sector.
func (s *scanSelector) Wraps() int { return s.wraps }

// topPositions returns up to n positions ordered by count descending, then position ascending.
func topPositions(counts map[int]int, n int) []PositionCount {
	out := make([]PositionCount, 0, len(counts))
	for pos, c := range counts {
		out = append(out, PositionCount{Position: pos, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Position < out[j].Position
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// PositionCount pairs a sector with an access count.
type PositionCount struct {
	Position int
	Count    int
}
