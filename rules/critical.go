package rules

import (
	"context"
	"fmt"
	"slices"

	"github.com/daveytran/roundscheduler-sub001/schedule"
)

// doubleBooking flags a team that appears in more than one match of a slot,
// either as a player or as a referee.
type doubleBooking struct{ base }

func (r *doubleBooking) Evaluate(_ context.Context, v *View) ([]schedule.Violation, error) {
	var out []schedule.Violation
	for _, t := range v.Teams() {
		k := t.Key()
		bySlot := make(map[int][]int)
		for _, i := range v.TeamMatches(k) {
			bySlot[v.Match(i).TimeSlot] = append(bySlot[v.Match(i).TimeSlot], i)
		}
		for _, i := range v.RefereeDuties(k) {
			bySlot[v.Match(i).TimeSlot] = append(bySlot[v.Match(i).TimeSlot], i)
		}
		for _, slot := range sortedKeys(bySlot) {
			idxs := bySlot[slot]
			if len(idxs) < 2 {
				continue
			}
			slices.Sort(idxs)
			out = append(out, r.violation(
				fmt.Sprintf("%s is booked in %d matches in slot %d", k, len(idxs), slot), idxs...))
		}
	}
	return out, nil
}

// setupThenPlay flags a team on SETUP duty that plays in the same or the
// following slot.
type setupThenPlay struct{ base }

func (r *setupThenPlay) Evaluate(_ context.Context, v *View) ([]schedule.Violation, error) {
	var out []schedule.Violation
	for _, t := range v.Teams() {
		k := t.Key()
		plays := v.TeamMatches(k)
		for _, d := range v.PlaceholderDuties(k) {
			duty := v.Match(d)
			if duty.Activity != schedule.ActivitySetup {
				continue
			}
			for _, p := range plays {
				slot := v.Match(p).TimeSlot
				if slot == duty.TimeSlot || slot == duty.TimeSlot+1 {
					out = append(out, r.violation(
						fmt.Sprintf("%s sets up in slot %d and plays in slot %d", k, duty.TimeSlot, slot), d, p))
				}
			}
		}
	}
	return out, nil
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
