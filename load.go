package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	"go.uber.org/multierr"
	"sigs.k8s.io/yaml"

	"github.com/daveytran/roundscheduler-sub001/rules"
	"github.com/daveytran/roundscheduler-sub001/schedule"
)

var errInvalidJSON = errors.New("invalid schedule JSON")

// LoadSchedule reads a schedule file. See ParseSchedule for the format.
func LoadSchedule(path string) (*schedule.Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := ParseSchedule(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseSchedule builds a schedule from its JSON form:
//
//	{
//	  "players": [{"name": "Ann", "mixedTeam": "Hawks", "clothTeam": "Hawks"}],
//	  "teams":   [{"name": "Owls", "division": "gendered"}],
//	  "matches": [{"team1": "Hawks", "team2": "Owls", "division": "mixed",
//	               "timeSlot": 1, "field": "1", "referee": "Kites",
//	               "activity": "REGULAR", "locked": false}]
//	}
//
// Teams named by players are registered implicitly. Match teams and
// referees are resolved by name, preferring the match's division. Every
// bad entry is reported, not only the first.
func ParseSchedule(data string) (*schedule.Schedule, error) {
	if !gjson.Valid(data) {
		return nil, errInvalidJSON
	}
	root := gjson.Parse(data)
	dir := schedule.NewDirectory()
	var errs error

	root.Get("players").ForEach(func(_, v gjson.Result) bool {
		p := &schedule.Player{
			Name:         v.Get("name").String(),
			MixedTeam:    v.Get("mixedTeam").String(),
			GenderedTeam: v.Get("genderedTeam").String(),
			ClothTeam:    v.Get("clothTeam").String(),
		}
		if p.Name == "" {
			errs = multierr.Append(errs, errors.New("player without a name"))
			return true
		}
		dir.AddPlayer(p)
		return true
	})

	root.Get("teams").ForEach(func(k, v gjson.Result) bool {
		div, err := schedule.ParseDivision(v.Get("division").String())
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("team %d: %w", k.Int(), err))
			return true
		}
		dir.Team(v.Get("name").String(), div)
		return true
	})

	var matches []schedule.Match
	root.Get("matches").ForEach(func(k, v gjson.Result) bool {
		m, err := parseMatch(dir, v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("match %d: %w", k.Int(), err))
			return true
		}
		matches = append(matches, m)
		return true
	})
	if errs != nil {
		return nil, errs
	}

	s := schedule.New(matches)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func parseMatch(dir *schedule.Directory, v gjson.Result) (schedule.Match, error) {
	m := schedule.Match{
		TimeSlot: int(v.Get("timeSlot").Int()),
		Field:    v.Get("field").String(),
		Locked:   v.Get("locked").Bool(),
	}
	var err error
	if m.Activity, err = schedule.ParseActivityType(v.Get("activity").String()); err != nil {
		return m, err
	}
	preferred := schedule.DivisionMixed
	if d := v.Get("division"); d.Exists() {
		if preferred, err = schedule.ParseDivision(d.String()); err != nil {
			return m, err
		}
	}

	resolve := func(key string) (*schedule.Team, error) {
		name := v.Get(key).String()
		if name == "" {
			return nil, nil
		}
		t, err := dir.Resolve(name, preferred)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return t, nil
	}
	if m.Team1, err = resolve("team1"); err != nil {
		return m, err
	}
	if m.Team2, err = resolve("team2"); err != nil {
		return m, err
	}
	if m.Referee, err = resolve("referee"); err != nil {
		return m, err
	}

	m.Division = preferred
	if !v.Get("division").Exists() && m.Team1 != nil {
		m.Division = m.Team1.Division
	}
	return m, nil
}

// RuleFile is the YAML (or JSON) rule configuration document.
type RuleFile struct {
	// Weighting selects how priorities turn into score: "flat" (default)
	// or "exponential" with Base.
	Weighting string         `json:"weighting,omitempty"`
	Base      float64        `json:"base,omitempty"`
	Rules     []rules.Config `json:"rules"`
}

// LoadRuleFile reads a rule configuration. An empty path yields the
// built-in defaults.
func LoadRuleFile(path string) (*RuleFile, error) {
	if path == "" {
		return &RuleFile{Rules: rules.DefaultConfigs()}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rf, err := ParseRuleFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rf, nil
}

// ParseRuleFile decodes a rule configuration. A bare list of rule entries
// is accepted as well as the full document.
func ParseRuleFile(data []byte) (*RuleFile, error) {
	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		var list []rules.Config
		if lerr := yaml.Unmarshal(data, &list); lerr != nil {
			return nil, err
		}
		rf.Rules = list
	}
	if err := checkWeighting(rf.Weighting); err != nil {
		return nil, err
	}
	return &rf, nil
}

func checkWeighting(w string) error {
	switch w {
	case "", "flat", "exponential":
		return nil
	}
	return fmt.Errorf("unknown weighting %q", w)
}
