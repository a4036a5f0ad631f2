package main

import "time"

// Search tuning parameters. Flags override the first four; the rest trade
// responsiveness for throughput.
var cfg = struct {
	// Strategy is the search strategy used when --strategy is not given.
	Strategy string
	// Iterations is the per-run search budget.
	Iterations int
	// Restarts is the number of independently seeded runs; more than one
	// runs them on a worker pool and keeps the best.
	Restarts int
	// ExtraSlots extends the slot pool past the last scheduled slot so
	// matches can be spread out.
	ExtraSlots int
	// ProgressEvery is the iteration interval between progress reports.
	ProgressEvery int
	// ProgressInterval caps the wall-clock time between progress reports.
	ProgressInterval time.Duration
	// ExponentialBase, when above 1, weights violations base^(priority-1)
	// instead of by their plain priority.
	ExponentialBase float64
}{
	Strategy:         "annealing",
	Iterations:       20000,
	Restarts:         1,
	ExtraSlots:       0,
	ProgressEvery:    1000,
	ProgressInterval: 500 * time.Millisecond,
	ExponentialBase:  0,
}
