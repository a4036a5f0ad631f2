package schedule

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownDivision indicates a division name outside mixed/gendered/cloth.
	ErrUnknownDivision = errors.New("schedule: unknown division")
	// ErrUnknownActivity indicates an activity type outside REGULAR/SETUP/PACKING_DOWN.
	ErrUnknownActivity = errors.New("schedule: unknown activity type")
	// ErrMissingTeam indicates a match whose team reference is nil.
	ErrMissingTeam = errors.New("schedule: missing team")
	// ErrSameTeam indicates a REGULAR match whose two sides are the same team.
	ErrSameTeam = errors.New("schedule: team plays itself")
	// ErrRefereePlays indicates a referee that is also one of the playing teams.
	ErrRefereePlays = errors.New("schedule: referee is a playing team")
	// ErrUnknownTeam indicates a team name that resolves in no division.
	ErrUnknownTeam = errors.New("schedule: unknown team")
	// ErrDuplicateTeam indicates two registrations of the same (name, division).
	ErrDuplicateTeam = errors.New("schedule: duplicate team")
)

// MatchError locates a structural problem at one match of a schedule.
type MatchError struct {
	Index int
	Slot  int
	Field string
	Err   error
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("match %d (slot %d, field %q): %v", e.Index, e.Slot, e.Field, e.Err)
}

func (e *MatchError) Unwrap() error { return e.Err }
