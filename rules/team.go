package rules

import (
	"context"
	"fmt"
	"slices"

	"github.com/daveytran/roundscheduler-sub001/schedule"
)

// refereeBeforePlay flags a team refereeing in the slot right before one of
// its own games.
type refereeBeforePlay struct{ base }

func (r *refereeBeforePlay) Evaluate(_ context.Context, v *View) ([]schedule.Violation, error) {
	var out []schedule.Violation
	for _, t := range v.Teams() {
		k := t.Key()
		plays := v.TeamMatches(k)
		for _, ref := range v.RefereeDuties(k) {
			slot := v.Match(ref).TimeSlot
			for _, p := range atSlot(v, plays, slot+1) {
				out = append(out, r.violation(
					fmt.Sprintf("%s referees in slot %d and plays in slot %d", k, slot, slot+1), ref, p))
			}
		}
	}
	return out, nil
}

// refereeBalance keeps the number of referee duties per playing team within
// maxSpread of each other.
type refereeBalance struct {
	base
	maxSpread int
}

func (r *refereeBalance) Evaluate(_ context.Context, v *View) ([]schedule.Violation, error) {
	var (
		keys   []schedule.TeamKey
		counts []int
		total  int
	)
	for _, t := range v.Teams() {
		k := t.Key()
		if len(v.TeamMatches(k)) == 0 {
			continue
		}
		n := len(v.RefereeDuties(k))
		keys = append(keys, k)
		counts = append(counts, n)
		total += n
	}
	if total == 0 {
		return nil, nil
	}
	st := Summarize(counts)
	if st.Spread() <= r.maxSpread {
		return nil, nil
	}
	var most, least []schedule.TeamKey
	var idxs []int
	for i, k := range keys {
		switch counts[i] {
		case st.Max:
			most = append(most, k)
			idxs = append(idxs, v.RefereeDuties(k)...)
		case st.Min:
			least = append(least, k)
		}
	}
	slices.Sort(idxs)
	return []schedule.Violation{r.violation(
		fmt.Sprintf("referee duties range from %d (%s) to %d (%s), allowed spread %d",
			st.Min, joinKeys(least), st.Max, joinKeys(most), r.maxSpread), idxs...)}, nil
}

// fieldFairness flags a team playing more than maxFraction of its games on a
// single field. Teams with fewer than minGames games and single-field
// schedules are ignored.
type fieldFairness struct {
	base
	maxFraction float64
	minGames    int
}

func (r *fieldFairness) Evaluate(_ context.Context, v *View) ([]schedule.Violation, error) {
	if len(v.Fields()) < 2 {
		return nil, nil
	}
	var out []schedule.Violation
	for _, t := range v.Teams() {
		k := t.Key()
		games := v.TeamMatches(k)
		if len(games) == 0 || len(games) < r.minGames {
			continue
		}
		byField := make(map[string][]int)
		for _, i := range games {
			f := v.Match(i).Field
			byField[f] = append(byField[f], i)
		}
		for _, f := range v.Fields() {
			frac := float64(len(byField[f])) / float64(len(games))
			if frac > r.maxFraction {
				out = append(out, r.violation(
					fmt.Sprintf("%s plays %d of %d games on field %s (max %.0f%%)", k, len(byField[f]), len(games), f, r.maxFraction*100),
					byField[f]...))
			}
		}
	}
	return out, nil
}

// clubConflict flags a team refereeing while another team of its club plays
// in the same slot.
type clubConflict struct{ base }

func (r *clubConflict) Evaluate(_ context.Context, v *View) ([]schedule.Violation, error) {
	var out []schedule.Violation
	for _, t := range v.Teams() {
		k := t.Key()
		for _, ref := range v.RefereeDuties(k) {
			slot := v.Match(ref).TimeSlot
			for _, other := range v.Teams() {
				ck := other.Key()
				if ck == k || other.Club() != t.Club() {
					continue
				}
				for _, p := range atSlot(v, v.TeamMatches(ck), slot) {
					out = append(out, r.violation(
						fmt.Sprintf("%s referees in slot %d while club team %s plays", k, slot, ck), ref, p))
				}
			}
		}
	}
	return out, nil
}

// backToBackRefereeing flags a team refereeing in two consecutive slots.
type backToBackRefereeing struct{ base }

func (r *backToBackRefereeing) Evaluate(_ context.Context, v *View) ([]schedule.Violation, error) {
	var out []schedule.Violation
	for _, t := range v.Teams() {
		k := t.Key()
		duties := v.RefereeDuties(k)
		for _, pair := range ConsecutivePairs(v.SlotsOf(duties)) {
			idxs := append(atSlot(v, duties, pair[0]), atSlot(v, duties, pair[1])...)
			out = append(out, r.violation(
				fmt.Sprintf("%s referees in consecutive slots %d and %d", k, pair[0], pair[1]), idxs...))
		}
	}
	return out, nil
}
