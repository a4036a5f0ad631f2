package schedule

import (
	"fmt"
	"slices"
)

// Directory indexes teams by (name, division) and resolves bare team names
// across divisions with a fixed tie-break: the preferred division first,
// then mixed, gendered, cloth.
type Directory struct {
	teams   map[TeamKey]*Team
	players map[string]*Player
}

func NewDirectory() *Directory {
	return &Directory{
		teams:   make(map[TeamKey]*Team),
		players: make(map[string]*Player),
	}
}

// AddTeam registers t. A second team with the same key is rejected.
func (d *Directory) AddTeam(t *Team) error {
	if _, ok := d.teams[t.Key()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTeam, t.Key())
	}
	d.teams[t.Key()] = t
	return nil
}

// Team returns the team registered under (name, div), creating an empty one
// on first use.
func (d *Directory) Team(name string, div Division) *Team {
	k := TeamKey{Name: name, Division: div}
	if t, ok := d.teams[k]; ok {
		return t
	}
	t := &Team{Name: name, Division: div}
	d.teams[k] = t
	return t
}

// Lookup returns the team registered under k.
func (d *Directory) Lookup(k TeamKey) (*Team, bool) {
	t, ok := d.teams[k]
	return t, ok
}

// Resolve finds a team by name, looking in preferred first.
func (d *Directory) Resolve(name string, preferred Division) (*Team, error) {
	if t, ok := d.teams[TeamKey{Name: name, Division: preferred}]; ok {
		return t, nil
	}
	for _, div := range Divisions {
		if t, ok := d.teams[TeamKey{Name: name, Division: div}]; ok {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTeam, name)
}

// AddPlayer registers p and attaches it to every team it names, creating
// those teams when needed. Re-adding a known name returns the existing
// player unchanged.
func (d *Directory) AddPlayer(p *Player) *Player {
	if existing, ok := d.players[p.Name]; ok {
		return existing
	}
	d.players[p.Name] = p
	for _, div := range Divisions {
		if name := p.TeamFor(div); name != "" {
			t := d.Team(name, div)
			t.Players = append(t.Players, p)
		}
	}
	return p
}

// Player returns the player registered under name.
func (d *Directory) Player(name string) (*Player, bool) {
	p, ok := d.players[name]
	return p, ok
}

// Teams returns all registered teams ordered by key.
func (d *Directory) Teams() []*Team {
	keys := make([]TeamKey, 0, len(d.teams))
	for k := range d.teams {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b TeamKey) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	out := make([]*Team, len(keys))
	for i, k := range keys {
		out[i] = d.teams[k]
	}
	return out
}
