// Implements the PendingQueue, which holds all requests waiting to be serviced.
// Requests are enqueued on submission and removed the instant a policy selects them.

package sim

import (
	"fmt"
	"strings"
)

// PendingQueue is the insertion-ordered pool of requests waiting for the disk head.
// It is owned by a single DiskScheduler, which serializes access to it.
type PendingQueue struct {
	queue []*Request // insertion order
	seqs  []uint64   // insertion sequence of queue[i], used as the FIFO tie-break
	next  uint64
}

// Enqueue adds a request to the back of the queue and returns its insertion sequence.
func (pq *PendingQueue) Enqueue(r *Request) uint64 {
	seq := pq.next
	pq.next++
	pq.queue = append(pq.queue, r)
	pq.seqs = append(pq.seqs, seq)
	return seq
}

func (pq *PendingQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range pq.queue {
		sb.WriteString(fmt.Sprint(val))
		if i < len(pq.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Len returns the number of requests in the queue.
func (pq *PendingQueue) Len() int {
	return len(pq.queue)
}

// Items returns the queue contents for iteration.
// The returned slice is the queue's internal storage -- callers within the
// sim package may iterate over it but MUST NOT append to or reslice it.
func (pq *PendingQueue) Items() []*Request {
	return pq.queue
}

// Seq returns the insertion sequence of the request at index i.
func (pq *PendingQueue) Seq(i int) uint64 {
	return pq.seqs[i]
}

// Remove deletes and returns the request at index i, preserving the order of the rest.
// Returns nil for an out-of-range index.
func (pq *PendingQueue) Remove(i int) *Request {
	if i < 0 || i >= len(pq.queue) {
		return nil
	}
	r := pq.queue[i]
	last := len(pq.queue) - 1
	copy(pq.queue[i:], pq.queue[i+1:])
	pq.queue[last] = nil
	pq.queue = pq.queue[:last]
	pq.seqs = append(pq.seqs[:i], pq.seqs[i+1:]...)
	return r
}

// Contains reports whether a request with the same identity is still pending.
func (pq *PendingQueue) Contains(r *Request) bool {
	for _, p := range pq.queue {
		if p.ID == r.ID {
			return true
		}
	}
	return false
}
