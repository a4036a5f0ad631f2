package scoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/daveytran/roundscheduler-sub001/rules"
	"github.com/daveytran/roundscheduler-sub001/schedule"
)

// ErrNilSchedule is returned when Evaluate is handed no schedule.
var ErrNilSchedule = errors.New("scoring: nil schedule")

// Warning records a rule that failed during evaluation. The rule
// contributed no violations to the result.
type Warning struct {
	Rule string
	Err  error
}

func (w Warning) String() string {
	return w.Rule + ": " + w.Err.Error()
}

// Result is the outcome of one evaluation.
type Result struct {
	Score      float64
	Violations []schedule.Violation
	Warnings   []Warning
}

// Scorer evaluates schedules against a rule set. The zero value is not
// usable; construct with New. A Scorer is safe for concurrent use.
type Scorer struct {
	weight    WeightFunc
	logger    logr.Logger
	onWarning func(Warning)
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithWeight replaces the default FlatWeight.
func WithWeight(w WeightFunc) Option {
	return func(s *Scorer) {
		if w != nil {
			s.weight = w
		}
	}
}

// WithLogger sets the logger rule failures are reported to.
func WithLogger(l logr.Logger) Option {
	return func(s *Scorer) { s.logger = l }
}

// WithWarningHook registers fn to be called for every rule failure. fn may be
// called from several goroutines at once.
func WithWarningHook(fn func(Warning)) Option {
	return func(s *Scorer) { s.onWarning = fn }
}

func New(opts ...Option) *Scorer {
	s := &Scorer{
		weight: FlatWeight,
		logger: logr.Discard(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Weight returns the weight of a single violation of the given priority.
func (s *Scorer) Weight(priority int) float64 {
	return s.weight(priority)
}

// Evaluate validates sch, runs every enabled rule against it and writes the
// weighted score and violations back onto sch. A structurally invalid
// schedule fails fast; a failing rule is reported as a Warning instead.
func (s *Scorer) Evaluate(ctx context.Context, sch *schedule.Schedule, rs []rules.Rule) (Result, error) {
	if sch == nil {
		return Result{}, ErrNilSchedule
	}
	if err := sch.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid schedule: %w", err)
	}

	var res Result
	v := rules.NewView(sch)
	for _, r := range rs {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		meta := r.Meta()
		if !meta.Enabled {
			continue
		}
		vs, err := evaluate(ctx, r, v)
		if err != nil {
			w := Warning{Rule: meta.Name, Err: err}
			res.Warnings = append(res.Warnings, w)
			s.logger.V(1).Info("rule failed, counting no violations", "rule", meta.ID, "err", err)
			if s.onWarning != nil {
				s.onWarning(w)
			}
			continue
		}
		for _, vi := range vs {
			vi.Rule = meta.Name
			vi.Priority = meta.Priority
			res.Score += s.weight(vi.Priority)
			res.Violations = append(res.Violations, vi)
		}
	}

	sch.Score = res.Score
	sch.Violations = res.Violations
	return res, nil
}

func evaluate(ctx context.Context, r rules.Rule, v *rules.View) (vs []schedule.Violation, err error) {
	defer func() {
		if p := recover(); p != nil {
			vs, err = nil, fmt.Errorf("panic: %v", p)
		}
	}()
	return r.Evaluate(ctx, v)
}
