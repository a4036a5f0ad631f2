package search_test

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daveytran/roundscheduler-sub001/schedule"
	"github.com/daveytran/roundscheduler-sub001/search"
)

func mixed(name string) *schedule.Team {
	return &schedule.Team{Name: name, Division: schedule.DivisionMixed}
}

// fixture is a small day: four teams over three slots and two fields, a
// locked opener, a setup duty and refereed games.
func fixture() *schedule.Schedule {
	a, b, c, d := mixed("A"), mixed("B"), mixed("C"), mixed("D")
	return schedule.New([]schedule.Match{
		{Team1: a, TimeSlot: 0, Field: "1", Activity: schedule.ActivitySetup},
		{Team1: a, Team2: b, TimeSlot: 1, Field: "1", Referee: c, Locked: true},
		{Team1: c, Team2: d, TimeSlot: 1, Field: "2"},
		{Team1: a, Team2: c, TimeSlot: 2, Field: "1", Referee: b},
		{Team1: b, Team2: d, TimeSlot: 2, Field: "2", Referee: a},
		{Team1: a, Team2: d, TimeSlot: 3, Field: "1"},
		{Team1: b, Team2: c, TimeSlot: 3, Field: "2", Referee: d},
	})
}

func TestGeneratorNeverMovesFixedMatches(t *testing.T) {
	s := fixture()
	orig := s.DeepCopy()
	g := search.NewGenerator(s, search.GeneratorOptions{ExtraSlots: 2, Fields: []string{"3"}}, rand.New(rand.NewSource(3)))

	cur := s
	kinds := map[search.MoveKind]int{}
	for range 2000 {
		next, mv := g.Neighbor(cur)
		kinds[mv.Kind]++
		require.NoError(t, next.Validate())
		for _, i := range []int{0, 1} {
			assert.Equal(t, orig.Matches[i], next.Matches[i], "match %d moved by %s", i, mv.Kind)
		}
		for i := range next.Matches {
			m := next.Matches[i]
			if m.Referee != nil {
				assert.False(t, m.Plays(m.Referee.Key()), "referee plays in match %d", i)
			}
		}
		cur = next
	}
	require.Empty(t, cmp.Diff(orig, s), "input schedule was modified")
	for _, k := range []search.MoveKind{search.MoveSwapSlots, search.MoveSwapFields, search.MoveReferee, search.MoveRelocate} {
		assert.Positive(t, kinds[k], k.String())
	}
	assert.Zero(t, kinds[search.MoveNone])
}

func TestGeneratorKeepsCellsUnique(t *testing.T) {
	s := fixture()
	g := search.NewGenerator(s, search.GeneratorOptions{}, rand.New(rand.NewSource(11)))
	cur := s
	for range 1000 {
		cur, _ = g.Neighbor(cur)
		for cell, idxs := range cur.Occupancy() {
			assert.Len(t, idxs, 1, "cell %v", cell)
		}
	}
}

func TestGeneratorPools(t *testing.T) {
	g := search.NewGenerator(fixture(), search.GeneratorOptions{Slots: []int{7}, ExtraSlots: 2, Fields: []string{"0"}}, rand.New(rand.NewSource(1)))
	assert.Equal(t, []int{0, 1, 2, 3, 7, 8, 9}, g.Slots())
	assert.Equal(t, []string{"0", "1", "2"}, g.Fields())
}

func TestGeneratorNothingMovable(t *testing.T) {
	a, b := mixed("A"), mixed("B")
	s := schedule.New([]schedule.Match{
		{Team1: a, Team2: b, TimeSlot: 1, Field: "1", Locked: true},
		{Team1: a, TimeSlot: 2, Field: "1", Activity: schedule.ActivityPackingDown},
	})
	s.Score = 4
	g := search.NewGenerator(s, search.GeneratorOptions{ExtraSlots: 3}, rand.New(rand.NewSource(1)))
	next, mv := g.Neighbor(s)
	assert.Equal(t, search.MoveNone, mv.Kind)
	assert.Equal(t, 4.0, next.Score)
	assert.Empty(t, cmp.Diff(s, next))
	assert.NotSame(t, s, next)
}

func TestRefereeMovePrefersIdleTeams(t *testing.T) {
	a, b, c, d, e := mixed("A"), mixed("B"), mixed("C"), mixed("D"), mixed("E")
	s := schedule.New([]schedule.Match{
		{Team1: a, Team2: b, TimeSlot: 1, Field: "1", Referee: c},
		{Team1: c, Team2: d, TimeSlot: 1, Field: "2", Locked: true},
		{Team1: e, Team2: d, TimeSlot: 2, Field: "1", Locked: true},
	})
	g := search.NewGenerator(s, search.GeneratorOptions{Weights: search.MoveWeights{Referee: 1}}, rand.New(rand.NewSource(5)))
	for range 50 {
		next, mv := g.Neighbor(s)
		require.Equal(t, search.MoveReferee, mv.Kind)
		// D plays in the same slot, so E is the only idle choice
		assert.Equal(t, "E", next.Matches[0].Referee.Name)
	}
}
