package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	dErrors "warden/pkg/domain-errors"
)

// ConcurrentResult buckets the outcomes of a concurrent run.
type ConcurrentResult struct {
	Successes   int32
	Errors      int32
	RateLimited int32
	Integrity   int32
}

func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.RateLimited + r.Integrity
}

// RunConcurrent starts fn in n goroutines at once and waits for all of them.
// Rate limit and integrity errors get their own buckets; anything else is
// counted in Errors.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		buckets [4]atomic.Int32
	)
	for i := range n {
		wg.Go(func() {
			<-start
			buckets[bucket(fn(i))].Add(1)
		})
	}
	close(start)
	wg.Wait()

	return &ConcurrentResult{
		Successes:   buckets[0].Load(),
		Errors:      buckets[1].Load(),
		RateLimited: buckets[2].Load(),
		Integrity:   buckets[3].Load(),
	}
}

func bucket(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, dErrors.ErrRateLimited):
		return 2
	case errors.Is(err, dErrors.ErrIntegrityViolation):
		return 3
	}
	return 1
}
