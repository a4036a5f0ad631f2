// Package search looks for lower scoring schedules.
//
// A Generator proposes neighbors of a schedule by swapping slots or fields,
// reassigning referees and relocating matches; locked matches and
// placeholder activities are never moved but still occupy their cells. The
// Optimizer runs the iterate, score, accept loop under a pluggable Strategy
// (annealing by default, hill-climbing, random-restart), tracks the best
// schedule seen and reports throttled Progress. MultiStart runs several
// independently seeded searches on a worker pool and keeps the best.
//
// Every schedule the package hands out is a deep copy; the caller's starting
// schedule is never modified.
package search
