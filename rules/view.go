package rules

import (
	"slices"

	"github.com/daveytran/roundscheduler-sub001/schedule"
)

// View is a read-only, pre-indexed window onto a schedule. It is the helper
// library every rule (built-in or scripted) evaluates against. All returned
// slices are fresh copies or must be treated as read-only.
type View struct {
	matches []schedule.Match

	teams      []*schedule.Team
	teamByKey  map[schedule.TeamKey]*schedule.Team
	plays      map[schedule.TeamKey][]int
	referees   map[schedule.TeamKey][]int
	duties     map[schedule.TeamKey][]int
	bySlot     map[int][]int
	byField    map[string][]int
	byDivision map[schedule.Division][]int

	players     []string
	playerTeams map[string][]schedule.TeamKey

	regularSlots []int
	fields       []string
}

// NewView indexes s. The schedule must not be modified while the view is in
// use.
func NewView(s *schedule.Schedule) *View {
	v := &View{
		matches:     s.Matches,
		teamByKey:   make(map[schedule.TeamKey]*schedule.Team),
		plays:       make(map[schedule.TeamKey][]int),
		referees:    make(map[schedule.TeamKey][]int),
		duties:      make(map[schedule.TeamKey][]int),
		bySlot:      make(map[int][]int),
		byField:     make(map[string][]int),
		byDivision:  make(map[schedule.Division][]int),
		playerTeams: make(map[string][]schedule.TeamKey),
	}
	slotSeen := make(map[int]bool)
	fieldSeen := make(map[string]bool)
	for i := range s.Matches {
		m := &s.Matches[i]
		v.bySlot[m.TimeSlot] = append(v.bySlot[m.TimeSlot], i)
		if m.Referee != nil {
			v.referees[m.Referee.Key()] = append(v.referees[m.Referee.Key()], i)
		}
		if !m.IsRegular() {
			if m.Team1 != nil {
				v.duties[m.Team1.Key()] = append(v.duties[m.Team1.Key()], i)
			}
			continue
		}
		v.byField[m.Field] = append(v.byField[m.Field], i)
		v.byDivision[m.Division] = append(v.byDivision[m.Division], i)
		if m.Team1 != nil {
			v.plays[m.Team1.Key()] = append(v.plays[m.Team1.Key()], i)
		}
		if m.Team2 != nil {
			v.plays[m.Team2.Key()] = append(v.plays[m.Team2.Key()], i)
		}
		if !slotSeen[m.TimeSlot] {
			slotSeen[m.TimeSlot] = true
			v.regularSlots = append(v.regularSlots, m.TimeSlot)
		}
		if !fieldSeen[m.Field] {
			fieldSeen[m.Field] = true
			v.fields = append(v.fields, m.Field)
		}
	}
	slices.Sort(v.regularSlots)
	slices.Sort(v.fields)

	v.teams = s.Teams()
	for _, t := range v.teams {
		v.teamByKey[t.Key()] = t
		for _, p := range t.Players {
			if p == nil {
				continue
			}
			if _, ok := v.playerTeams[p.Name]; !ok {
				v.players = append(v.players, p.Name)
			}
			v.playerTeams[p.Name] = append(v.playerTeams[p.Name], t.Key())
		}
	}
	slices.Sort(v.players)
	return v
}

// Len returns the number of matches, placeholders included.
func (v *View) Len() int { return len(v.matches) }

// Match returns a copy of match i.
func (v *View) Match(i int) schedule.Match { return v.matches[i] }

// Teams returns every referenced team ordered by key.
func (v *View) Teams() []*schedule.Team { return slices.Clone(v.teams) }

// Team returns the team with key k.
func (v *View) Team(k schedule.TeamKey) (*schedule.Team, bool) {
	t, ok := v.teamByKey[k]
	return t, ok
}

// TeamMatches returns the REGULAR matches team k plays, in schedule order.
func (v *View) TeamMatches(k schedule.TeamKey) []int { return slices.Clone(v.plays[k]) }

// RefereeDuties returns the matches team k referees.
func (v *View) RefereeDuties(k schedule.TeamKey) []int { return slices.Clone(v.referees[k]) }

// PlaceholderDuties returns the SETUP / PACKING_DOWN entries assigned to k.
func (v *View) PlaceholderDuties(k schedule.TeamKey) []int { return slices.Clone(v.duties[k]) }

// InSlot returns every match (placeholders included) in slot.
func (v *View) InSlot(slot int) []int { return slices.Clone(v.bySlot[slot]) }

// OnField returns the REGULAR matches played on field.
func (v *View) OnField(field string) []int { return slices.Clone(v.byField[field]) }

// InDivision returns the REGULAR matches of division d.
func (v *View) InDivision(d schedule.Division) []int { return slices.Clone(v.byDivision[d]) }

// Slots returns the distinct slots with at least one REGULAR match.
func (v *View) Slots() []int { return slices.Clone(v.regularSlots) }

// Fields returns the distinct fields with at least one REGULAR match.
func (v *View) Fields() []string { return slices.Clone(v.fields) }

// FirstSlot and LastSlot bound the REGULAR matches. ok is false when there
// are none.
func (v *View) FirstSlot() (slot int, ok bool) {
	if len(v.regularSlots) == 0 {
		return 0, false
	}
	return v.regularSlots[0], true
}

func (v *View) LastSlot() (slot int, ok bool) {
	if len(v.regularSlots) == 0 {
		return 0, false
	}
	return v.regularSlots[len(v.regularSlots)-1], true
}

// Players returns the names of players on any referenced team, sorted.
func (v *View) Players() []string { return slices.Clone(v.players) }

// PlayerTeams returns the keys of the referenced teams a player is on.
func (v *View) PlayerTeams(name string) []schedule.TeamKey { return slices.Clone(v.playerTeams[name]) }

// PlayerMatches returns the REGULAR matches any of the player's teams plays,
// ascending by index.
func (v *View) PlayerMatches(name string) []int {
	var out []int
	for _, k := range v.playerTeams[name] {
		out = append(out, v.plays[k]...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// SlotsOf maps match indices to their time slots, sorted and de-duplicated.
func (v *View) SlotsOf(idxs []int) []int {
	out := make([]int, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, v.matches[i].TimeSlot)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// PresenceSlots returns every slot in which team k plays, referees or holds
// a placeholder duty.
func (v *View) PresenceSlots(k schedule.TeamKey) []int {
	idxs := append(append(slices.Clone(v.plays[k]), v.referees[k]...), v.duties[k]...)
	return v.SlotsOf(idxs)
}

// ConsecutivePairs returns the pairs (a, b) of ascending, distinct slots with
// b == a+1.
func ConsecutivePairs(slots []int) [][2]int {
	var out [][2]int
	for i := 1; i < len(slots); i++ {
		if slots[i] == slots[i-1]+1 {
			out = append(out, [2]int{slots[i-1], slots[i]})
		}
	}
	return out
}

// Stats summarises a set of counts.
type Stats struct {
	Min, Max int
	Mean     float64
}

// Spread is Max - Min.
func (s Stats) Spread() int { return s.Max - s.Min }

// Summarize computes Stats over values; the zero Stats for an empty input.
func Summarize(values []int) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	st := Stats{Min: values[0], Max: values[0]}
	sum := 0
	for _, x := range values {
		st.Min = min(st.Min, x)
		st.Max = max(st.Max, x)
		sum += x
	}
	st.Mean = float64(sum) / float64(len(values))
	return st
}
