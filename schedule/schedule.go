package schedule

import (
	"fmt"
	"slices"

	"go.uber.org/multierr"
)

// Schedule is an ordered collection of matches plus the outcome of its last
// evaluation. Team and Player values are shared between copies and are never
// modified through a Schedule.
type Schedule struct {
	Matches    []Match
	Score      float64
	Violations []Violation
	// OriginalScore is the baseline before optimization, nil when unknown.
	OriginalScore *float64
}

// New builds a schedule owning a private copy of matches.
func New(matches []Match) *Schedule {
	return &Schedule{Matches: slices.Clone(matches)}
}

// DeepCopy returns a schedule whose matches and violations can be modified
// without affecting s.
func (s *Schedule) DeepCopy() *Schedule {
	if s == nil {
		return nil
	}
	c := &Schedule{
		Matches: slices.Clone(s.Matches),
		Score:   s.Score,
	}
	if s.Violations != nil {
		c.Violations = make([]Violation, len(s.Violations))
		for i, v := range s.Violations {
			v.Matches = slices.Clone(v.Matches)
			c.Violations[i] = v
		}
	}
	if s.OriginalScore != nil {
		orig := *s.OriginalScore
		c.OriginalScore = &orig
	}
	return c
}

// SetOriginalScore records the pre-optimization baseline.
func (s *Schedule) SetOriginalScore(score float64) {
	s.OriginalScore = &score
}

// Improvement returns OriginalScore - Score, or 0 without a baseline.
func (s *Schedule) Improvement() float64 {
	if s.OriginalScore == nil {
		return 0
	}
	return *s.OriginalScore - s.Score
}

// Validate checks the structural invariants of every match and returns all
// problems found, each wrapped in a *MatchError.
func (s *Schedule) Validate() error {
	var err error
	for i := range s.Matches {
		m := &s.Matches[i]
		if e := validateMatch(m); e != nil {
			err = multierr.Append(err, &MatchError{Index: i, Slot: m.TimeSlot, Field: m.Field, Err: e})
		}
	}
	return err
}

func validateMatch(m *Match) error {
	if m.Team1 == nil {
		return fmt.Errorf("%w: team1", ErrMissingTeam)
	}
	if !m.IsRegular() {
		return nil
	}
	if m.Team2 == nil {
		return fmt.Errorf("%w: team2", ErrMissingTeam)
	}
	if m.Team1.Key() == m.Team2.Key() {
		return fmt.Errorf("%w: %s", ErrSameTeam, m.Team1)
	}
	if m.Referee != nil && (m.Referee.Key() == m.Team1.Key() || m.Referee.Key() == m.Team2.Key()) {
		return fmt.Errorf("%w: %s", ErrRefereePlays, m.Referee)
	}
	return nil
}

// Slots returns the distinct time slots in use, ascending.
func (s *Schedule) Slots() []int {
	seen := make(map[int]bool)
	var out []int
	for i := range s.Matches {
		if t := s.Matches[i].TimeSlot; !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out
}

// Fields returns the distinct fields in use, sorted.
func (s *Schedule) Fields() []string {
	seen := make(map[string]bool)
	var out []string
	for i := range s.Matches {
		if f := s.Matches[i].Field; !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	slices.Sort(out)
	return out
}

// Teams returns every team referenced by a match (playing, duty or
// refereeing), ordered by key.
func (s *Schedule) Teams() []*Team {
	seen := make(map[TeamKey]*Team)
	add := func(t *Team) {
		if t != nil {
			if _, ok := seen[t.Key()]; !ok {
				seen[t.Key()] = t
			}
		}
	}
	for i := range s.Matches {
		add(s.Matches[i].Team1)
		add(s.Matches[i].Team2)
		add(s.Matches[i].Referee)
	}
	out := make([]*Team, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *Team) int {
		switch {
		case a.Key().Less(b.Key()):
			return -1
		case b.Key().Less(a.Key()):
			return 1
		}
		return 0
	})
	return out
}

// Occupancy maps every occupied cell to the indices of the matches in it.
func (s *Schedule) Occupancy() map[Cell][]int {
	occ := make(map[Cell][]int, len(s.Matches))
	for i := range s.Matches {
		c := s.Matches[i].Cell()
		occ[c] = append(occ[c], i)
	}
	return occ
}
