package rules

import (
	"context"
	"fmt"
	"slices"

	"github.com/daveytran/roundscheduler-sub001/schedule"
)

// playerRestGap bounds the idle slots between a player's consecutive games
// from below (minRest) and above (maxGap).
type playerRestGap struct {
	base
	minRest int
	maxGap  int
}

func (r *playerRestGap) Evaluate(_ context.Context, v *View) ([]schedule.Violation, error) {
	var out []schedule.Violation
	for _, name := range v.Players() {
		games := v.PlayerMatches(name)
		slots := v.SlotsOf(games)
		for i := 1; i < len(slots); i++ {
			gap := slots[i] - slots[i-1] - 1
			var desc string
			switch {
			case gap < r.minRest:
				desc = fmt.Sprintf("player %s rests %d slot(s) between slots %d and %d (min %d)", name, gap, slots[i-1], slots[i], r.minRest)
			case gap > r.maxGap:
				desc = fmt.Sprintf("player %s waits %d slots between slots %d and %d (max %d)", name, gap, slots[i-1], slots[i], r.maxGap)
			default:
				continue
			}
			idxs := append(atSlot(v, games, slots[i-1]), atSlot(v, games, slots[i])...)
			out = append(out, r.violation(desc, idxs...))
		}
	}
	return out, nil
}

// playerGameLimit caps the games per player and keeps the game counts of
// players within maxSpread of each other.
type playerGameLimit struct {
	base
	maxGames  int
	maxSpread int
}

func (r *playerGameLimit) Evaluate(_ context.Context, v *View) ([]schedule.Violation, error) {
	var (
		out    []schedule.Violation
		names  []string
		counts []int
	)
	for _, name := range v.Players() {
		games := v.PlayerMatches(name)
		if len(games) == 0 {
			continue
		}
		names = append(names, name)
		counts = append(counts, len(games))
		if len(games) > r.maxGames {
			out = append(out, r.violation(
				fmt.Sprintf("player %s has %d games (max %d)", name, len(games), r.maxGames), games...))
		}
	}
	st := Summarize(counts)
	if len(counts) > 1 && st.Spread() > r.maxSpread {
		var most, least []string
		for i, n := range counts {
			switch n {
			case st.Max:
				most = append(most, names[i])
			case st.Min:
				least = append(least, names[i])
			}
		}
		out = append(out, r.violation(
			fmt.Sprintf("player game counts range from %d (%s) to %d (%s), allowed spread %d",
				st.Min, joinNames(least), st.Max, joinNames(most), r.maxSpread)))
	}
	return out, nil
}

// playerWarmup flags a non-playing duty (refereeing or a placeholder
// activity) of any of a player's teams in the slots right before the
// player's first game.
type playerWarmup struct {
	base
	slots int
}

func (r *playerWarmup) Evaluate(_ context.Context, v *View) ([]schedule.Violation, error) {
	var out []schedule.Violation
	for _, name := range v.Players() {
		games := v.PlayerMatches(name)
		if len(games) == 0 {
			continue
		}
		first := v.SlotsOf(games)[0]
		var blocked []int
		for _, k := range v.PlayerTeams(name) {
			for _, i := range append(v.RefereeDuties(k), v.PlaceholderDuties(k)...) {
				if s := v.Match(i).TimeSlot; s >= first-r.slots && s < first {
					blocked = append(blocked, i)
				}
			}
		}
		if len(blocked) == 0 {
			continue
		}
		slices.Sort(blocked)
		blocked = slices.Compact(blocked)
		out = append(out, r.violation(
			fmt.Sprintf("player %s has duties in the %d slot(s) before their first game in slot %d", name, r.slots, first),
			append(blocked, atSlot(v, games, first)...)...))
	}
	return out, nil
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2, 3:
		out := names[0]
		for _, n := range names[1:] {
			out += ", " + n
		}
		return out
	}
	return fmt.Sprintf("%s, %s and %d more", names[0], names[1], len(names)-2)
}
