package main

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/daveytran/roundscheduler-sub001/rules"
	"github.com/daveytran/roundscheduler-sub001/schedule"
	"github.com/daveytran/roundscheduler-sub001/scoring"
	"github.com/daveytran/roundscheduler-sub001/search"
)

// MatchOut is a match in the loader's JSON form, so output can be fed back
// in as input.
type MatchOut struct {
	Team1    string `json:"team1,omitempty"`
	Team2    string `json:"team2,omitempty"`
	Division string `json:"division"`
	TimeSlot int    `json:"timeSlot"`
	Field    string `json:"field"`
	Referee  string `json:"referee,omitempty"`
	Activity string `json:"activity"`
	Locked   bool   `json:"locked,omitempty"`
}

// Report is the JSON-serializable result of an evaluate or optimize run.
type Report struct {
	RunID         string               `json:"runId,omitempty"`
	Strategy      string               `json:"strategy,omitempty"`
	Seed          int64                `json:"seed,omitempty"`
	Score         float64              `json:"score"`
	OriginalScore *float64             `json:"originalScore,omitempty"`
	Improvement   float64              `json:"improvement,omitempty"`
	Iterations    int                  `json:"iterations,omitempty"`
	Accepted      int                  `json:"accepted,omitempty"`
	Improvements  int                  `json:"improvements,omitempty"`
	Restarts      int                  `json:"restarts,omitempty"`
	TimeMs        int64                `json:"timeMs,omitempty"`
	Violations    []schedule.Violation `json:"violations"`
	Warnings      []string             `json:"warnings,omitempty"`
	Matches       []MatchOut           `json:"matches"`
}

func matchesOut(s *schedule.Schedule) []MatchOut {
	out := make([]MatchOut, len(s.Matches))
	name := func(t *schedule.Team) string {
		if t == nil {
			return ""
		}
		return t.Name
	}
	for i, m := range s.Matches {
		out[i] = MatchOut{
			Team1:    name(m.Team1),
			Team2:    name(m.Team2),
			Division: m.Division.String(),
			TimeSlot: m.TimeSlot,
			Field:    m.Field,
			Referee:  name(m.Referee),
			Activity: m.Activity.String(),
			Locked:   m.Locked,
		}
	}
	return out
}

func warningStrings(ws []scoring.Warning) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.String()
	}
	return out
}

// EvaluationReport describes a scored schedule.
func EvaluationReport(s *schedule.Schedule, res scoring.Result) Report {
	return Report{
		Score:      res.Score,
		Violations: nonNil(res.Violations),
		Warnings:   warningStrings(res.Warnings),
		Matches:    matchesOut(s),
	}
}

// SearchReport describes an optimizer result.
func SearchReport(res *search.Result) Report {
	return Report{
		RunID:         res.RunID,
		Strategy:      res.Strategy,
		Seed:          res.Seed,
		Score:         res.Best.Score,
		OriginalScore: res.Best.OriginalScore,
		Improvement:   res.Best.Improvement(),
		Iterations:    res.Iterations,
		Accepted:      res.Accepted,
		Improvements:  res.Improvements,
		Restarts:      res.Restarts,
		TimeMs:        res.Elapsed.Milliseconds(),
		Violations:    nonNil(res.Best.Violations),
		Warnings:      warningStrings(res.Warnings),
		Matches:       matchesOut(res.Best),
	}
}

func nonNil(vs []schedule.Violation) []schedule.Violation {
	if vs == nil {
		return []schedule.Violation{}
	}
	return vs
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatSchedule renders s slot by slot followed by its violations, worst
// first.
func FormatSchedule(s *schedule.Schedule) string {
	var b strings.Builder

	order := make([]int, len(s.Matches))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(x, y int) int {
		a, c := s.Matches[x], s.Matches[y]
		return cmp.Or(cmp.Compare(a.TimeSlot, c.TimeSlot), cmp.Compare(a.Field, c.Field))
	})

	fmt.Fprintf(&b, "%-5s %-6s %-44s %s\n", "Slot", "Field", "Match", "Referee")
	fmt.Fprintf(&b, "%-5s %-6s %-44s %s\n", "-----", "------", strings.Repeat("-", 44), "--------")
	for _, i := range order {
		m := s.Matches[i]
		desc := fmt.Sprintf("%s vs %s", m.Team1, m.Team2)
		if !m.IsRegular() {
			desc = fmt.Sprintf("%s: %s", m.Activity, m.Team1)
		}
		if m.Locked {
			desc += " [locked]"
		}
		ref := ""
		if m.Referee != nil {
			ref = m.Referee.String()
		}
		fmt.Fprintf(&b, "%-5d %-6s %-44s %s\n", m.TimeSlot, m.Field, desc, ref)
	}

	vs := slices.Clone(s.Violations)
	slices.SortStableFunc(vs, func(a, c schedule.Violation) int {
		return cmp.Compare(c.Priority, a.Priority)
	})
	fmt.Fprintf(&b, "\nScore: %g", s.Score)
	if s.OriginalScore != nil {
		fmt.Fprintf(&b, " (was %g, improved by %g)", *s.OriginalScore, s.Improvement())
	}
	fmt.Fprintf(&b, ", %d violation(s)\n", len(vs))
	for _, v := range vs {
		fmt.Fprintf(&b, "  [%2d] %s: %s\n", v.Priority, v.Rule, v.Description)
	}
	return b.String()
}

// FormatSearch adds run statistics to FormatSchedule.
func FormatSearch(res *search.Result) string {
	var b strings.Builder
	b.WriteString(FormatSchedule(res.Best))
	fmt.Fprintf(&b, "\n%s run %s (seed %d): %d iterations, %d accepted, %d improvements, %d restarts in %s\n",
		res.Strategy, res.RunID, res.Seed, res.Iterations, res.Accepted, res.Improvements, res.Restarts,
		res.Elapsed.Round(time.Millisecond))
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}
	return b.String()
}

// FormatCatalog lists the built-in rules and their defaults.
func FormatCatalog(metas []rules.Meta) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-26s %-34s %4s %-7s %-8s %s\n", "ID", "Name", "Prio", "Kind", "Default", "Params")
	for _, m := range metas {
		kind := m.Category.String()
		state := "on"
		if m.Critical {
			state = "critical"
		} else if !m.Enabled {
			state = "off"
		}
		keys := slices.Sorted(maps.Keys(m.Params))
		params := make([]string, len(keys))
		for i, k := range keys {
			params[i] = fmt.Sprintf("%s=%v", k, m.Params[k])
		}
		fmt.Fprintf(&b, "%-26s %-34s %4d %-7s %-8s %s\n", m.ID, m.Name, m.Priority, kind, state, strings.Join(params, " "))
	}
	return b.String()
}
