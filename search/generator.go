package search

import (
	"fmt"
	"math/rand"
	"slices"

	"github.com/daveytran/roundscheduler-sub001/schedule"
)

// MoveKind identifies a neighbor move family.
type MoveKind int

const (
	MoveNone MoveKind = iota
	MoveSwapSlots
	MoveSwapFields
	MoveReferee
	MoveRelocate
)

func (k MoveKind) String() string {
	switch k {
	case MoveNone:
		return "none"
	case MoveSwapSlots:
		return "swap-slots"
	case MoveSwapFields:
		return "swap-fields"
	case MoveReferee:
		return "referee"
	case MoveRelocate:
		return "relocate"
	}
	return fmt.Sprintf("move(%d)", int(k))
}

// Move describes the change a neighbor applied. A and B are match indices;
// B is -1 when only one match changed.
type Move struct {
	Kind MoveKind
	A, B int
}

// MoveWeights is the relative probability of each move family. Weights need
// not sum to 1.
type MoveWeights struct {
	SwapSlots  float64
	SwapFields float64
	Referee    float64
	Relocate   float64
}

func DefaultMoveWeights() MoveWeights {
	return MoveWeights{SwapSlots: 0.35, SwapFields: 0.15, Referee: 0.15, Relocate: 0.35}
}

func (w MoveWeights) total() float64 {
	return w.SwapSlots + w.SwapFields + w.Referee + w.Relocate
}

// GeneratorOptions widens the cells the generator may move matches into.
type GeneratorOptions struct {
	// Slots and Fields are added to those already used by the schedule.
	Slots  []int
	Fields []string
	// ExtraSlots appends that many slots after the last one in use.
	ExtraSlots int
	// Weights overrides the strategy's move distribution when non-zero.
	Weights MoveWeights
}

// attempts bounds the random retries of a single move family.
const attempts = 8

// Generator proposes structurally valid neighbors of a schedule. It is not
// safe for concurrent use; each search owns one.
type Generator struct {
	slots   []int
	fields  []string
	teams   []*schedule.Team
	weights MoveWeights
	rng     *rand.Rand
}

// NewGenerator prepares a generator for schedules shaped like base.
func NewGenerator(base *schedule.Schedule, opts GeneratorOptions, rng *rand.Rand) *Generator {
	slots := append(base.Slots(), opts.Slots...)
	slices.Sort(slots)
	slots = slices.Compact(slots)
	if opts.ExtraSlots > 0 {
		last := 0
		if len(slots) > 0 {
			last = slots[len(slots)-1]
		}
		for i := 1; i <= opts.ExtraSlots; i++ {
			slots = append(slots, last+i)
		}
	}
	fields := append(base.Fields(), opts.Fields...)
	slices.Sort(fields)
	fields = slices.Compact(fields)

	w := opts.Weights
	if w.total() <= 0 {
		w = DefaultMoveWeights()
	}
	return &Generator{
		slots:   slots,
		fields:  fields,
		teams:   base.Teams(),
		weights: w,
		rng:     rng,
	}
}

// Slots returns the slot pool.
func (g *Generator) Slots() []int { return slices.Clone(g.slots) }

// Fields returns the field pool.
func (g *Generator) Fields() []string { return slices.Clone(g.fields) }

// Neighbor returns a modified deep copy of s and the move applied. s is never
// modified. A moved copy carries no score until it is evaluated again. When
// no move family applies the copy is unchanged and the move is MoveNone.
func (g *Generator) Neighbor(s *schedule.Schedule) (*schedule.Schedule, Move) {
	c := s.DeepCopy()
	movable := movableIndices(c)

	first := g.pick()
	order := []MoveKind{first}
	for _, k := range []MoveKind{MoveSwapSlots, MoveSwapFields, MoveReferee, MoveRelocate} {
		if k != first {
			order = append(order, k)
		}
	}
	for _, k := range order {
		var (
			m  Move
			ok bool
		)
		switch k {
		case MoveSwapSlots:
			m, ok = g.swapSlots(c, movable)
		case MoveSwapFields:
			m, ok = g.swapFields(c, movable)
		case MoveReferee:
			m, ok = g.reassignReferee(c, movable)
		case MoveRelocate:
			m, ok = g.relocate(c, movable)
		}
		if ok {
			c.Score, c.Violations = 0, nil
			return c, m
		}
	}
	return c, Move{Kind: MoveNone, A: -1, B: -1}
}

func (g *Generator) pick() MoveKind {
	x := g.rng.Float64() * g.weights.total()
	switch {
	case x < g.weights.SwapSlots:
		return MoveSwapSlots
	case x < g.weights.SwapSlots+g.weights.SwapFields:
		return MoveSwapFields
	case x < g.weights.SwapSlots+g.weights.SwapFields+g.weights.Referee:
		return MoveReferee
	}
	return MoveRelocate
}

func movableIndices(s *schedule.Schedule) []int {
	var out []int
	for i := range s.Matches {
		if s.Matches[i].Movable() {
			out = append(out, i)
		}
	}
	return out
}

// occupiedBy reports whether a match other than the excluded ones sits in
// cell c.
func occupiedBy(s *schedule.Schedule, c schedule.Cell, exclude ...int) bool {
	for i := range s.Matches {
		if slices.Contains(exclude, i) {
			continue
		}
		if s.Matches[i].Cell() == c {
			return true
		}
	}
	return false
}

// swapSlots exchanges the slots of two movable matches. If either would land
// on an occupied cell the whole cells are exchanged instead.
func (g *Generator) swapSlots(s *schedule.Schedule, movable []int) (Move, bool) {
	if len(movable) < 2 {
		return Move{}, false
	}
	for range attempts {
		i, j := g.pair(movable)
		a, b := &s.Matches[i], &s.Matches[j]
		if a.TimeSlot == b.TimeSlot {
			continue
		}
		ca := schedule.Cell{Slot: b.TimeSlot, Field: a.Field}
		cb := schedule.Cell{Slot: a.TimeSlot, Field: b.Field}
		if occupiedBy(s, ca, i, j) || occupiedBy(s, cb, i, j) {
			a.Field, b.Field = b.Field, a.Field
		}
		a.TimeSlot, b.TimeSlot = b.TimeSlot, a.TimeSlot
		return Move{Kind: MoveSwapSlots, A: i, B: j}, true
	}
	return Move{}, false
}

// swapFields exchanges the fields of two movable matches sharing a slot.
func (g *Generator) swapFields(s *schedule.Schedule, movable []int) (Move, bool) {
	bySlot := make(map[int][]int)
	for _, i := range movable {
		bySlot[s.Matches[i].TimeSlot] = append(bySlot[s.Matches[i].TimeSlot], i)
	}
	var slots []int
	for slot, idxs := range bySlot {
		if len(idxs) >= 2 {
			slots = append(slots, slot)
		}
	}
	if len(slots) == 0 {
		return Move{}, false
	}
	slices.Sort(slots)
	for range attempts {
		i, j := g.pair(bySlot[slots[g.rng.Intn(len(slots))]])
		a, b := &s.Matches[i], &s.Matches[j]
		if a.Field == b.Field {
			continue
		}
		a.Field, b.Field = b.Field, a.Field
		return Move{Kind: MoveSwapFields, A: i, B: j}, true
	}
	return Move{}, false
}

// reassignReferee hands a movable match's referee duty to another team that
// is not playing in it, preferring teams with nothing else in that slot.
func (g *Generator) reassignReferee(s *schedule.Schedule, movable []int) (Move, bool) {
	var reffed []int
	for _, i := range movable {
		if s.Matches[i].Referee != nil {
			reffed = append(reffed, i)
		}
	}
	if len(reffed) == 0 {
		return Move{}, false
	}
	for range attempts {
		i := reffed[g.rng.Intn(len(reffed))]
		m := &s.Matches[i]
		busy := make(map[schedule.TeamKey]bool)
		for j := range s.Matches {
			o := &s.Matches[j]
			if j == i || o.TimeSlot != m.TimeSlot {
				continue
			}
			for _, t := range []*schedule.Team{o.Team1, o.Team2, o.Referee} {
				if t != nil {
					busy[t.Key()] = true
				}
			}
		}
		var idle, eligible []*schedule.Team
		for _, t := range g.teams {
			k := t.Key()
			if m.Plays(k) || k == m.Referee.Key() {
				continue
			}
			eligible = append(eligible, t)
			if !busy[k] {
				idle = append(idle, t)
			}
		}
		pool := idle
		if len(pool) == 0 {
			pool = eligible
		}
		if len(pool) == 0 {
			continue
		}
		m.Referee = pool[g.rng.Intn(len(pool))]
		return Move{Kind: MoveReferee, A: i, B: -1}, true
	}
	return Move{}, false
}

// relocate moves a movable match to another cell of the pool. An occupied
// target is only accepted when its single occupant is movable, in which case
// the two matches trade cells.
func (g *Generator) relocate(s *schedule.Schedule, movable []int) (Move, bool) {
	if len(movable) == 0 || len(g.slots) == 0 || len(g.fields) == 0 {
		return Move{}, false
	}
	occ := s.Occupancy()
	for range attempts {
		i := movable[g.rng.Intn(len(movable))]
		m := &s.Matches[i]
		target := schedule.Cell{
			Slot:  g.slots[g.rng.Intn(len(g.slots))],
			Field: g.fields[g.rng.Intn(len(g.fields))],
		}
		if target == m.Cell() {
			continue
		}
		switch occupants := occ[target]; len(occupants) {
		case 0:
			m.TimeSlot, m.Field = target.Slot, target.Field
			return Move{Kind: MoveRelocate, A: i, B: -1}, true
		case 1:
			j := occupants[0]
			o := &s.Matches[j]
			if !o.Movable() {
				continue
			}
			o.TimeSlot, o.Field = m.TimeSlot, m.Field
			m.TimeSlot, m.Field = target.Slot, target.Field
			return Move{Kind: MoveRelocate, A: i, B: j}, true
		}
	}
	return Move{}, false
}

// pair draws two distinct entries of idxs, which must hold at least two.
func (g *Generator) pair(idxs []int) (int, int) {
	a := g.rng.Intn(len(idxs))
	b := g.rng.Intn(len(idxs) - 1)
	if b >= a {
		b++
	}
	return idxs[a], idxs[b]
}
