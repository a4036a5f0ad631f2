package rules

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/daveytran/roundscheduler-sub001/schedule"
)

// backToBack flags games in consecutive slots. The team side reports each
// pair of matches sharing a team once; the player side reports pairs a
// player reaches through two different teams, which no team sees.
type backToBack struct{ base }

func (r *backToBack) Evaluate(_ context.Context, v *View) ([]schedule.Violation, error) {
	var out []schedule.Violation
	for _, slot := range v.Slots() {
		for _, i := range v.InSlot(slot) {
			mi := v.Match(i)
			if !mi.IsRegular() {
				continue
			}
			for _, j := range v.InSlot(slot + 1) {
				mj := v.Match(j)
				if !mj.IsRegular() {
					continue
				}
				shared := sharedTeams(&mi, &mj)
				if len(shared) == 0 {
					continue
				}
				out = append(out, r.violation(
					fmt.Sprintf("%s play back-to-back in slots %d and %d", joinKeys(shared), slot, slot+1), i, j))
			}
		}
	}

	for _, name := range v.Players() {
		teams := v.PlayerTeams(name)
		bySlot := make(map[int][]int)
		for _, i := range v.PlayerMatches(name) {
			bySlot[v.Match(i).TimeSlot] = append(bySlot[v.Match(i).TimeSlot], i)
		}
		for _, slot := range sortedKeys(bySlot) {
			for _, i := range bySlot[slot] {
				for _, j := range bySlot[slot+1] {
					mi, mj := v.Match(i), v.Match(j)
					if shareAnyOf(&mi, &mj, teams) {
						continue
					}
					out = append(out, r.violation(
						fmt.Sprintf("player %s plays back-to-back in slots %d and %d for different teams", name, slot, slot+1), i, j))
				}
			}
		}
	}
	return out, nil
}

// firstAndLast flags a team playing in both the first and the last slot of
// the day, and a player doing so through two different teams.
type firstAndLast struct{ base }

func (r *firstAndLast) Evaluate(_ context.Context, v *View) ([]schedule.Violation, error) {
	first, ok := v.FirstSlot()
	if !ok {
		return nil, nil
	}
	last, _ := v.LastSlot()
	if first == last {
		return nil, nil
	}
	var out []schedule.Violation
	covered := make(map[schedule.TeamKey]bool)
	for _, t := range v.Teams() {
		idxs := v.TeamMatches(t.Key())
		a, b := atSlot(v, idxs, first), atSlot(v, idxs, last)
		if len(a) == 0 || len(b) == 0 {
			continue
		}
		covered[t.Key()] = true
		out = append(out, r.violation(
			fmt.Sprintf("%s plays in the first (%d) and last (%d) slots", t.Key(), first, last), append(a, b...)...))
	}
	for _, name := range v.Players() {
		if slices.ContainsFunc(v.PlayerTeams(name), func(k schedule.TeamKey) bool { return covered[k] }) {
			continue
		}
		idxs := v.PlayerMatches(name)
		a, b := atSlot(v, idxs, first), atSlot(v, idxs, last)
		if len(a) == 0 || len(b) == 0 {
			continue
		}
		out = append(out, r.violation(
			fmt.Sprintf("player %s plays in the first (%d) and last (%d) slots", name, first, last), append(a, b...)...))
	}
	return out, nil
}

// venueTime limits how long a team or player is at the venue, measured from
// the first to the last slot in which they play, referee or hold a duty.
type venueTime struct {
	base
	limit          time.Duration
	minutesPerSlot int
}

func (r *venueTime) span(slots []int) time.Duration {
	if len(slots) == 0 {
		return 0
	}
	n := slots[len(slots)-1] - slots[0] + 1
	return time.Duration(n*r.minutesPerSlot) * time.Minute
}

func (r *venueTime) Evaluate(_ context.Context, v *View) ([]schedule.Violation, error) {
	var out []schedule.Violation
	over := make(map[schedule.TeamKey]bool)
	for _, t := range v.Teams() {
		k := t.Key()
		if d := r.span(v.PresenceSlots(k)); d > r.limit {
			over[k] = true
			idxs := append(v.TeamMatches(k), v.RefereeDuties(k)...)
			slices.Sort(idxs)
			out = append(out, r.violation(
				fmt.Sprintf("%s is at the venue for %s (limit %s)", k, d, r.limit), idxs...))
		}
	}
	for _, name := range v.Players() {
		teams := v.PlayerTeams(name)
		if slices.ContainsFunc(teams, func(k schedule.TeamKey) bool { return over[k] }) {
			continue
		}
		var slots []int
		for _, k := range teams {
			slots = append(slots, v.PresenceSlots(k)...)
		}
		slices.Sort(slots)
		if d := r.span(slots); d > r.limit {
			out = append(out, r.violation(
				fmt.Sprintf("player %s is at the venue for %s across teams (limit %s)", name, d, r.limit), v.PlayerMatches(name)...))
		}
	}
	return out, nil
}

// divisionMixing flags a slot hosting REGULAR matches of more than one
// division, and a player booked twice in a slot through teams of different
// divisions.
type divisionMixing struct{ base }

func (r *divisionMixing) Evaluate(_ context.Context, v *View) ([]schedule.Violation, error) {
	var out []schedule.Violation
	for _, slot := range v.Slots() {
		var idxs []int
		divs := make(map[schedule.Division]bool)
		for _, i := range v.InSlot(slot) {
			m := v.Match(i)
			if !m.IsRegular() {
				continue
			}
			idxs = append(idxs, i)
			divs[m.Division] = true
		}
		if len(divs) < 2 {
			continue
		}
		out = append(out, r.violation(
			fmt.Sprintf("slot %d mixes divisions %s", slot, joinDivisions(divs)), idxs...))
	}

	for _, name := range v.Players() {
		teams := v.PlayerTeams(name)
		bySlot := make(map[int][]int)
		for _, i := range v.PlayerMatches(name) {
			bySlot[v.Match(i).TimeSlot] = append(bySlot[v.Match(i).TimeSlot], i)
		}
		for _, slot := range sortedKeys(bySlot) {
			idxs := bySlot[slot]
			if len(idxs) < 2 {
				continue
			}
			divs := playerDivisions(v, idxs, teams)
			if len(divs) < 2 {
				continue
			}
			out = append(out, r.violation(
				fmt.Sprintf("player %s plays for %s in slot %d", name, joinDivisions(divs), slot), idxs...))
		}
	}
	return out, nil
}

// playerDivisions collects the divisions of the player's teams that play in
// idxs.
func playerDivisions(v *View, idxs []int, teams []schedule.TeamKey) map[schedule.Division]bool {
	divs := make(map[schedule.Division]bool)
	for _, i := range idxs {
		m := v.Match(i)
		for _, k := range teams {
			if m.Plays(k) {
				divs[k.Division] = true
			}
		}
	}
	return divs
}

func joinDivisions(divs map[schedule.Division]bool) string {
	var parts []string
	for _, d := range schedule.Divisions {
		if divs[d] {
			parts = append(parts, d.String())
		}
	}
	return strings.Join(parts, " and ")
}

func sharedTeams(a, b *schedule.Match) []schedule.TeamKey {
	var out []schedule.TeamKey
	for _, t := range []*schedule.Team{a.Team1, a.Team2} {
		if t != nil && b.Plays(t.Key()) {
			out = append(out, t.Key())
		}
	}
	return out
}

func shareAnyOf(a, b *schedule.Match, keys []schedule.TeamKey) bool {
	for _, k := range keys {
		if a.Plays(k) && b.Plays(k) {
			return true
		}
	}
	return false
}

func atSlot(v *View, idxs []int, slot int) []int {
	var out []int
	for _, i := range idxs {
		if v.Match(i).TimeSlot == slot {
			out = append(out, i)
		}
	}
	return out
}

func joinKeys(keys []schedule.TeamKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, " and ")
}
