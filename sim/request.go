// Defines the Request struct that models an individual disk operation in the simulation.
// Tracks the target device and sector, the operation kind, and the base priority.

package sim

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Priority bounds shared by the scheduler, the transfer buffer and the bus.
const (
	MinPriority = 1
	MaxPriority = 5
)

// Kind is the operation a request performs on the disk.
type Kind string

const (
	KindRead  Kind = "read"
	KindWrite Kind = "write"
)

// Valid reports whether k is a known operation kind.
func (k Kind) Valid() bool {
	return k == KindRead || k == KindWrite
}

// Request models a single pending disk operation.
// Each request has:
// - a stable identity generated at creation (never derived from pointer identity)
// - the device and sector it targets
// - a base priority in [MinPriority, MaxPriority]
//
// The scheduler never mutates a pending Request. Aged priorities leave the
// scheduler only through WithPriority copies.
type Request struct {
	ID uuid.UUID // Stable identity, used as the key of every identity-based map

	DeviceID int  // Device that issued the request
	Position int  // Target sector, >= 0
	Kind     Kind // read or write
	Priority int  // Base priority 1-5 (5 = most urgent)

	WaitStart time.Time // Set on first submission to a scheduler
}

// NewRequest creates a Request with a freshly generated identity.
func NewRequest(deviceID, position int, kind Kind, priority int) *Request {
	return &Request{
		ID:       uuid.New(),
		DeviceID: deviceID,
		Position: position,
		Kind:     kind,
		Priority: priority,
	}
}

// Validate checks the request invariants: priority in range, non-negative
// position and a known kind.
func (r *Request) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}
	if r.Priority < MinPriority || r.Priority > MaxPriority {
		return fmt.Errorf("%w: priority %d outside [%d, %d]", ErrInvalidRequest, r.Priority, MinPriority, MaxPriority)
	}
	if r.Position < 0 {
		return fmt.Errorf("%w: negative position %d", ErrInvalidRequest, r.Position)
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, r.Kind)
	}
	return nil
}

// WithPriority returns a copy of the request carrying priority p, clamped to
// the valid range. The copy keeps the original identity.
func (r *Request) WithPriority(p int) *Request {
	cp := *r
	cp.Priority = ClampPriority(p)
	return &cp
}

// CacheKey identifies requests that are interchangeable for the transfer cache.
type CacheKey struct {
	DeviceID int
	Position int
	Kind     Kind
}

// Key returns the transfer cache key of the request.
func (r *Request) Key() CacheKey {
	return CacheKey{DeviceID: r.DeviceID, Position: r.Position, Kind: r.Kind}
}

// ClampPriority bounds p to [MinPriority, MaxPriority].
func ClampPriority(p int) int {
	return min(max(p, MinPriority), MaxPriority)
}

// This method returns a human-readable string representation of a Request.
func (r Request) String() string {
	return fmt.Sprintf("[Device: %d, %s, Position: %d, Priority: %d]", r.DeviceID, r.Kind, r.Position, r.Priority)
}
