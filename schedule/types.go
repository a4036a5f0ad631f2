package schedule

import (
	"fmt"
	"strings"
)

// Division is one of the independent competitive pools a team plays in.
type Division int

const (
	DivisionMixed Division = iota
	DivisionGendered
	DivisionCloth
)

// Divisions lists every division in tie-break order.
var Divisions = []Division{DivisionMixed, DivisionGendered, DivisionCloth}

func (d Division) String() string {
	switch d {
	case DivisionMixed:
		return "mixed"
	case DivisionGendered:
		return "gendered"
	case DivisionCloth:
		return "cloth"
	}
	return fmt.Sprintf("division(%d)", int(d))
}

// ParseDivision maps a division name to its Division. Matching ignores case
// and surrounding whitespace.
func ParseDivision(s string) (Division, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mixed":
		return DivisionMixed, nil
	case "gendered":
		return DivisionGendered, nil
	case "cloth":
		return DivisionCloth, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDivision, s)
}

// ActivityType distinguishes real games from slot-occupying placeholders.
type ActivityType int

const (
	ActivityRegular ActivityType = iota
	ActivitySetup
	ActivityPackingDown
)

func (a ActivityType) String() string {
	switch a {
	case ActivityRegular:
		return "REGULAR"
	case ActivitySetup:
		return "SETUP"
	case ActivityPackingDown:
		return "PACKING_DOWN"
	}
	return fmt.Sprintf("ACTIVITY(%d)", int(a))
}

// ParseActivityType maps REGULAR, SETUP and PACKING_DOWN (any case) to an
// ActivityType. The empty string is REGULAR.
func ParseActivityType(s string) (ActivityType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "REGULAR":
		return ActivityRegular, nil
	case "SETUP":
		return ActivitySetup, nil
	case "PACKING_DOWN", "PACKING DOWN", "PACKDOWN":
		return ActivityPackingDown, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownActivity, s)
}

// Player is an individual registered on up to one team per division.
type Player struct {
	Name         string
	MixedTeam    string
	GenderedTeam string
	ClothTeam    string
}

// TeamFor returns the name of the player's team in division d, or "".
func (p *Player) TeamFor(d Division) string {
	switch d {
	case DivisionMixed:
		return p.MixedTeam
	case DivisionGendered:
		return p.GenderedTeam
	case DivisionCloth:
		return p.ClothTeam
	}
	return ""
}

// TeamKey identifies a team: the same club may enter several divisions.
type TeamKey struct {
	Name     string
	Division Division
}

func (k TeamKey) String() string {
	return k.Name + " (" + k.Division.String() + ")"
}

// Less orders keys by name, then division.
func (k TeamKey) Less(o TeamKey) bool {
	if k.Name != o.Name {
		return k.Name < o.Name
	}
	return k.Division < o.Division
}

// Team is a club's entry in one division. Players are shared with the
// club's entries in other divisions.
type Team struct {
	Name     string
	Division Division
	Players  []*Player
}

func (t *Team) Key() TeamKey {
	return TeamKey{Name: t.Name, Division: t.Division}
}

// Club returns the club a team belongs to. Entries of one club share a name.
func (t *Team) Club() string {
	return t.Name
}

func (t *Team) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Key().String()
}

// Match is one scheduled unit: a game, or a SETUP / PACKING_DOWN
// placeholder carrying the duty team in Team1.
type Match struct {
	Team1    *Team
	Team2    *Team
	TimeSlot int
	Field    string
	Division Division
	Referee  *Team
	Activity ActivityType
	Locked   bool
}

// IsRegular reports whether m is a real game.
func (m *Match) IsRegular() bool {
	return m.Activity == ActivityRegular
}

// Movable reports whether the optimizer may move m.
func (m *Match) Movable() bool {
	return !m.Locked && m.IsRegular()
}

// Plays reports whether the team with key k is one of m's playing teams.
func (m *Match) Plays(k TeamKey) bool {
	if !m.IsRegular() {
		return false
	}
	return (m.Team1 != nil && m.Team1.Key() == k) || (m.Team2 != nil && m.Team2.Key() == k)
}

// Referees reports whether the team with key k referees m.
func (m *Match) Referees(k TeamKey) bool {
	return m.Referee != nil && m.Referee.Key() == k
}

// Cell is the (slot, field) pair a match occupies.
func (m *Match) Cell() Cell {
	return Cell{Slot: m.TimeSlot, Field: m.Field}
}

func (m *Match) String() string {
	if !m.IsRegular() {
		return fmt.Sprintf("%s by %s (slot %d, field %s)", m.Activity, m.Team1, m.TimeSlot, m.Field)
	}
	return fmt.Sprintf("%s vs %s (slot %d, field %s)", m.Team1, m.Team2, m.TimeSlot, m.Field)
}

// Cell is a (time slot, field) position.
type Cell struct {
	Slot  int
	Field string
}

// Violation is one breach of a rule's policy in a specific schedule state.
type Violation struct {
	Rule        string `json:"rule"`
	Description string `json:"description"`
	// Matches holds indices into Schedule.Matches.
	Matches  []int `json:"matches,omitempty"`
	Priority int   `json:"priority"`
}
