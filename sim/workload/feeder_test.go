package workload

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/disk-sim/disk-sim/sim"
)

type recordingSubmitter struct {
	mu      sync.Mutex
	batches [][]*sim.Request
	failAt  int // fail the nth call (1-based), 0 never
}

func (s *recordingSubmitter) Submit(reqs ...*sim.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt > 0 && len(s.batches)+1 == s.failAt {
		return errors.New("scheduler refused")
	}
	s.batches = append(s.batches, reqs)
	return nil
}

func positions(n int) []*sim.Request {
	reqs := make([]*sim.Request, n)
	for i := range reqs {
		reqs[i] = sim.NewRequest(1, i*10, sim.KindRead, 1)
	}
	return reqs
}

func TestFeed_NoRate_SubmitsOneBatch(t *testing.T) {
	dst := &recordingSubmitter{}

	n, err := Feed(context.Background(), dst, positions(5), 0, 0)

	require.NoError(t, err)
	assert.Equal(t, 5, n)
	require.Len(t, dst.batches, 1)
	assert.Len(t, dst.batches[0], 5)
}

func TestFeed_WithRate_SubmitsOneByOneInOrder(t *testing.T) {
	dst := &recordingSubmitter{}
	reqs := positions(4)

	n, err := Feed(context.Background(), dst, reqs, 1000, 4)

	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.Len(t, dst.batches, 4)
	for i, b := range dst.batches {
		assert.Same(t, reqs[i], b[0])
	}
}

func TestFeed_CancelledWhileWaiting(t *testing.T) {
	// GIVEN a rate of one request per minute and a burst of one
	dst := &recordingSubmitter{}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// WHEN three requests are fed
	n, err := Feed(ctx, dst, positions(3), 1.0/60, 1)

	// THEN only the burst goes through before the limiter gives up
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, dst.batches, 1)
}

func TestFeed_SubmitErrorStops(t *testing.T) {
	dst := &recordingSubmitter{failAt: 2}

	n, err := Feed(context.Background(), dst, positions(3), 1000, 3)

	assert.EqualError(t, err, "scheduler refused")
	assert.Equal(t, 1, n)
}
