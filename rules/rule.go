package rules

import (
	"context"
	"fmt"

	"github.com/daveytran/roundscheduler-sub001/schedule"
)

// Category says whether a rule inspects teams, players or both.
type Category int

const (
	CategoryTeam Category = iota
	CategoryPlayer
	CategoryBoth
)

func (c Category) String() string {
	switch c {
	case CategoryTeam:
		return "team"
	case CategoryPlayer:
		return "player"
	case CategoryBoth:
		return "both"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

const (
	MinPriority = 1
	MaxPriority = 10
)

// Meta is the static description of a configured rule.
type Meta struct {
	ID       string
	Name     string
	Priority int
	Category Category
	// Critical rules cannot be disabled or re-prioritised.
	Critical bool
	Enabled  bool
	Params   Params
}

// Rule inspects a schedule and reports violations. Implementations must not
// modify the schedule behind the view and must be safe for concurrent use.
type Rule interface {
	Meta() Meta
	Evaluate(ctx context.Context, v *View) ([]schedule.Violation, error)
}

// EvaluateSchedule runs r against s without a scorer.
func EvaluateSchedule(ctx context.Context, r Rule, s *schedule.Schedule) ([]schedule.Violation, error) {
	return r.Evaluate(ctx, NewView(s))
}

// base carries Meta for the built-in rules and a violation helper.
type base struct {
	meta Meta
}

func (b *base) Meta() Meta { return b.meta }

func (b *base) violation(desc string, matches ...int) schedule.Violation {
	return schedule.Violation{
		Rule:        b.meta.Name,
		Description: desc,
		Matches:     matches,
		Priority:    b.meta.Priority,
	}
}
