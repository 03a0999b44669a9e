package workload

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/disk-sim/disk-sim/sim"
)

// Submitter accepts requests. The disk scheduler implements it.
type Submitter interface {
	Submit(reqs ...*sim.Request) error
}

// Feed submits reqs in order. With ratePerSecond <= 0 the whole batch is submitted
// at once; otherwise each request waits on a token bucket of the given rate and burst.
// Returns the number of requests submitted.
func Feed(ctx context.Context, dst Submitter, reqs []*sim.Request, ratePerSecond float64, burst int) (int, error) {
	if ratePerSecond <= 0 {
		if err := dst.Submit(reqs...); err != nil {
			return 0, err
		}
		return len(reqs), nil
	}

	limiter := rate.NewLimiter(rate.Limit(ratePerSecond), max(burst, 1))
	for i, r := range reqs {
		if err := limiter.Wait(ctx); err != nil {
			return i, fmt.Errorf("feeding request %d: %w", i, err)
		}
		if err := dst.Submit(r); err != nil {
			return i, err
		}
	}
	return len(reqs), nil
}
