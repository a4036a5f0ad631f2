package search

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/daveytran/roundscheduler-sub001/rules"
	"github.com/daveytran/roundscheduler-sub001/schedule"
)

// MultiStart runs n independently seeded searches from start on a bounded
// worker pool and returns the result with the lowest best score. Runs share
// nothing mutable; onProgress calls are serialised. If ctx ends, the best
// result among the runs is returned together with the context's error.
func MultiStart(ctx context.Context, n int, cfg Config, start *schedule.Schedule, rs []rules.Rule, iterations int, onProgress func(Progress)) (*Result, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRestarts, n)
	}
	if iterations < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIterations, iterations)
	}
	if start == nil {
		return nil, ErrNilSchedule
	}
	if _, err := StrategyByName(cfg.Strategy); err != nil {
		return nil, err
	}
	base := cfg.Seed
	if base == 0 {
		base = time.Now().UnixNano()
	}

	var progress func(Progress)
	if onProgress != nil {
		var mu sync.Mutex
		progress = func(p Progress) {
			mu.Lock()
			defer mu.Unlock()
			onProgress(p)
		}
	}

	numWorkers := min(runtime.GOMAXPROCS(0), n)

	type result struct {
		res *Result
		err error
		idx int
	}
	resultCh := make(chan result, n)
	runCh := make(chan int, n)
	for i := range n {
		runCh <- i
	}
	close(runCh)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range runCh {
				if ctx.Err() != nil {
					resultCh <- result{err: ctx.Err(), idx: idx}
					continue
				}
				c := cfg
				c.Seed = deriveSeed(base, idx)
				res, err := New(c).Run(ctx, start, rs, iterations, progress)
				resultCh <- result{res, err, idx}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var (
		best    *Result
		bestIdx = -1
		errs    error
	)
	for r := range resultCh {
		if r.err != nil && !isContextErr(r.err) {
			errs = multierr.Append(errs, fmt.Errorf("run %d: %w", r.idx, r.err))
		}
		if r.res == nil {
			continue
		}
		if best == nil || r.res.Best.Score < best.Best.Score ||
			(r.res.Best.Score == best.Best.Score && r.idx < bestIdx) {
			best, bestIdx = r.res, r.idx
		}
	}
	if errs != nil {
		return nil, errs
	}
	if err := ctx.Err(); err != nil {
		return best, err
	}
	return best, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// deriveSeed spreads run indices over the seed space so neighbouring runs do
// not share a random stream.
func deriveSeed(base int64, idx int) int64 {
	x := uint64(base) + uint64(idx+1)*0x9E3779B97F4A7C15
	x ^= x >> 30
	x *= 0xBF58476D1CE4E5B9
	x ^= x >> 27
	x *= 0x94D049BB133111EB
	x ^= x >> 31
	if x == 0 {
		x = 1
	}
	return int64(x)
}
