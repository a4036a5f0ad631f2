package search

import "errors"

var (
	// ErrInvalidIterations is returned for a negative iteration budget.
	ErrInvalidIterations = errors.New("search: iteration budget must not be negative")
	// ErrUnknownStrategy is returned for a strategy name nobody registered.
	ErrUnknownStrategy = errors.New("search: unknown strategy")
	// ErrAlreadyRunning is returned when Run or Start is called on a busy
	// optimizer.
	ErrAlreadyRunning = errors.New("search: optimizer is already running")
	// ErrNilSchedule is returned when no starting schedule is given.
	ErrNilSchedule = errors.New("search: nil schedule")
	// ErrInvalidRestarts is returned by MultiStart for n < 1.
	ErrInvalidRestarts = errors.New("search: need at least one run")
)
