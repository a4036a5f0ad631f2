package rules

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"
)

// Config is one entry of a rule configuration list, as read from YAML or
// JSON. Built-in rules are selected by ID; an entry with Type "scripted" (or
// a non-empty Body) wraps a CEL program instead.
type Config struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Name     string `json:"name,omitempty"`
	Enabled  *bool  `json:"enabled,omitempty"`
	Priority int    `json:"priority,omitempty"`
	Category string `json:"category,omitempty"`
	Params   Params `json:"params,omitempty"`
	Body     string `json:"body,omitempty"`
}

const (
	TypeBuiltin  = "builtin"
	TypeScripted = "scripted"
)

func (c Config) scripted() bool {
	return strings.EqualFold(c.Type, TypeScripted) || (c.Type == "" && c.Body != "")
}

type entry struct {
	id       string
	name     string
	priority int
	category Category
	critical bool
	// off marks rules that are disabled unless configured otherwise.
	off      bool
	defaults Params
	build    func(b base, p Params) (Rule, error)
}

// Built-in rule IDs.
const (
	IDDoubleBooking        = "avoid_double_booking"
	IDSetupThenPlay        = "avoid_setup_then_play"
	IDBackToBack           = "avoid_back_to_back"
	IDFirstAndLast         = "avoid_first_and_last"
	IDVenueTime            = "limit_venue_time"
	IDDivisionMixing       = "avoid_division_mixing"
	IDRefereeBeforePlay    = "avoid_referee_before_play"
	IDRefereeBalance       = "balance_referee_load"
	IDFieldFairness        = "field_fairness"
	IDClubConflict         = "avoid_club_conflict"
	IDBackToBackRefereeing = "avoid_back_to_back_refereeing"
	IDPlayerRestGap        = "player_rest_gap"
	IDPlayerGameLimit      = "player_game_limit"
	IDPlayerWarmup         = "player_warmup"
)

var catalog = []entry{
	{
		id: IDDoubleBooking, name: "Avoid double booking", priority: 10, category: CategoryBoth, critical: true,
		build: func(b base, _ Params) (Rule, error) { return &doubleBooking{b}, nil },
	},
	{
		id: IDSetupThenPlay, name: "Avoid setup then play", priority: 10, category: CategoryTeam, critical: true,
		build: func(b base, _ Params) (Rule, error) { return &setupThenPlay{b}, nil },
	},
	{
		id: IDBackToBack, name: "Avoid back-to-back games", priority: 5, category: CategoryBoth,
		build: func(b base, _ Params) (Rule, error) { return &backToBack{b}, nil },
	},
	{
		id: IDFirstAndLast, name: "Avoid first and last slot", priority: 4, category: CategoryBoth,
		build: func(b base, _ Params) (Rule, error) { return &firstAndLast{b}, nil },
	},
	{
		id: IDVenueTime, name: "Limit venue time", priority: 4, category: CategoryBoth,
		defaults: Params{"max_hours": 5.0, "minutes_per_slot": 40.0},
		build: func(b base, p Params) (Rule, error) {
			hours, err := p.Float("max_hours", 5)
			if err != nil {
				return nil, err
			}
			mins, err := p.Int("minutes_per_slot", 40)
			if err != nil {
				return nil, err
			}
			if hours <= 0 || mins <= 0 {
				return nil, fmt.Errorf("%w: max_hours and minutes_per_slot must be positive", ErrBadParam)
			}
			return &venueTime{base: b, limit: time.Duration(hours * float64(time.Hour)), minutesPerSlot: mins}, nil
		},
	},
	{
		id: IDDivisionMixing, name: "Avoid division mixing", priority: 4, category: CategoryBoth,
		build: func(b base, _ Params) (Rule, error) { return &divisionMixing{b}, nil },
	},
	{
		id: IDRefereeBeforePlay, name: "Avoid refereeing before playing", priority: 3, category: CategoryTeam,
		build: func(b base, _ Params) (Rule, error) { return &refereeBeforePlay{b}, nil },
	},
	{
		id: IDRefereeBalance, name: "Balance referee load", priority: 2, category: CategoryTeam,
		defaults: Params{"max_spread": 1.0},
		build: func(b base, p Params) (Rule, error) {
			spread, err := p.Int("max_spread", 1)
			if err != nil {
				return nil, err
			}
			if spread < 0 {
				return nil, fmt.Errorf("%w: max_spread must not be negative", ErrBadParam)
			}
			return &refereeBalance{base: b, maxSpread: spread}, nil
		},
	},
	{
		id: IDFieldFairness, name: "Field fairness", priority: 2, category: CategoryTeam,
		defaults: Params{"max_field_fraction": 0.5, "min_games": 3.0},
		build: func(b base, p Params) (Rule, error) {
			frac, err := p.Float("max_field_fraction", 0.5)
			if err != nil {
				return nil, err
			}
			games, err := p.Int("min_games", 3)
			if err != nil {
				return nil, err
			}
			if frac <= 0 || frac > 1 {
				return nil, fmt.Errorf("%w: max_field_fraction must be in (0, 1]", ErrBadParam)
			}
			return &fieldFairness{base: b, maxFraction: frac, minGames: games}, nil
		},
	},
	{
		id: IDClubConflict, name: "Avoid referee/club conflicts", priority: 3, category: CategoryTeam,
		build: func(b base, _ Params) (Rule, error) { return &clubConflict{b}, nil },
	},
	{
		id: IDBackToBackRefereeing, name: "Avoid back-to-back refereeing", priority: 2, category: CategoryTeam,
		build: func(b base, _ Params) (Rule, error) { return &backToBackRefereeing{b}, nil },
	},
	{
		id: IDPlayerRestGap, name: "Player rest and gap", priority: 1, category: CategoryPlayer,
		defaults: Params{"min_rest_slots": 1.0, "max_gap_slots": 4.0},
		build: func(b base, p Params) (Rule, error) {
			rest, err := p.Int("min_rest_slots", 1)
			if err != nil {
				return nil, err
			}
			gap, err := p.Int("max_gap_slots", 4)
			if err != nil {
				return nil, err
			}
			if rest < 0 || gap < rest {
				return nil, fmt.Errorf("%w: need 0 <= min_rest_slots <= max_gap_slots", ErrBadParam)
			}
			return &playerRestGap{base: b, minRest: rest, maxGap: gap}, nil
		},
	},
	{
		id: IDPlayerGameLimit, name: "Player game limit", priority: 1, category: CategoryPlayer,
		defaults: Params{"max_games": 6.0, "max_spread": 2.0},
		build: func(b base, p Params) (Rule, error) {
			games, err := p.Int("max_games", 6)
			if err != nil {
				return nil, err
			}
			spread, err := p.Int("max_spread", 2)
			if err != nil {
				return nil, err
			}
			if games < 1 || spread < 0 {
				return nil, fmt.Errorf("%w: max_games must be positive and max_spread not negative", ErrBadParam)
			}
			return &playerGameLimit{base: b, maxGames: games, maxSpread: spread}, nil
		},
	},
	{
		id: IDPlayerWarmup, name: "Player warm-up", priority: 1, category: CategoryPlayer, off: true,
		defaults: Params{"warmup_slots": 1.0},
		build: func(b base, p Params) (Rule, error) {
			n, err := p.Int("warmup_slots", 1)
			if err != nil {
				return nil, err
			}
			if n < 1 {
				return nil, fmt.Errorf("%w: warmup_slots must be positive", ErrBadParam)
			}
			return &playerWarmup{base: b, slots: n}, nil
		},
	},
}

var catalogByID = func() map[string]*entry {
	m := make(map[string]*entry, len(catalog))
	for i := range catalog {
		m[catalog[i].id] = &catalog[i]
	}
	return m
}()

// Catalog describes every built-in rule with its default settings.
func Catalog() []Meta {
	out := make([]Meta, len(catalog))
	for i, e := range catalog {
		out[i] = Meta{
			ID:       e.id,
			Name:     e.name,
			Priority: e.priority,
			Category: e.category,
			Critical: e.critical,
			Enabled:  !e.off,
			Params:   e.defaults.Clone(),
		}
	}
	return out
}

// DefaultConfigs returns one entry per built-in rule with catalog defaults.
func DefaultConfigs() []Config {
	out := make([]Config, len(catalog))
	for i, e := range catalog {
		out[i] = Config{ID: e.id, Type: TypeBuiltin}
	}
	return out
}

// Build turns one configuration entry into a live rule.
func Build(c Config, logger logr.Logger) (Rule, error) {
	if c.scripted() {
		return buildScripted(c, logger)
	}
	e, ok := catalogByID[c.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRule, c.ID)
	}
	meta := Meta{
		ID:       e.id,
		Name:     e.name,
		Priority: e.priority,
		Category: e.category,
		Critical: e.critical,
		Enabled:  !e.off,
		Params:   e.defaults.Clone(),
	}
	if c.Name != "" {
		meta.Name = c.Name
	}
	for _, k := range slices.Sorted(maps.Keys(c.Params)) {
		if _, ok := e.defaults[k]; !ok {
			return nil, fmt.Errorf("%w: %s does not take %q (have %v)", ErrBadParam, e.id, k, slices.Sorted(maps.Keys(e.defaults)))
		}
		meta.Params[k] = c.Params[k]
	}
	if c.Enabled != nil {
		meta.Enabled = *c.Enabled
	}
	if c.Priority != 0 {
		if c.Priority < MinPriority || c.Priority > MaxPriority {
			return nil, fmt.Errorf("%w: %d", ErrBadPriority, c.Priority)
		}
		meta.Priority = c.Priority
	}
	if e.critical {
		if !meta.Enabled {
			logger.Info("critical rule cannot be disabled, keeping it enabled", "rule", e.id)
			meta.Enabled = true
		}
		if meta.Priority != e.priority {
			logger.Info("critical rule priority is fixed", "rule", e.id, "requested", meta.Priority, "priority", e.priority)
			meta.Priority = e.priority
		}
	}
	return e.build(base{meta: meta}, meta.Params)
}

// BuildAll builds every entry it can. Entries that fail are skipped and
// logged; their errors, each a *ConfigError, are combined into the returned
// error so callers can surface them without losing the usable rules.
func BuildAll(cfgs []Config, logger logr.Logger) ([]Rule, error) {
	var (
		out  []Rule
		errs error
	)
	for i, c := range cfgs {
		r, err := Build(c, logger)
		if err != nil {
			id := c.ID
			if id == "" {
				id = c.Name
			}
			cerr := &ConfigError{Index: i, ID: id, Err: err}
			logger.Error(cerr, "skipping rule")
			errs = multierr.Append(errs, cerr)
			continue
		}
		out = append(out, r)
	}
	return out, errs
}
