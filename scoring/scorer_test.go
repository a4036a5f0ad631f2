package scoring_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daveytran/roundscheduler-sub001/rules"
	"github.com/daveytran/roundscheduler-sub001/schedule"
	"github.com/daveytran/roundscheduler-sub001/scoring"
)

func mixed(name string) *schedule.Team {
	return &schedule.Team{Name: name, Division: schedule.DivisionMixed}
}

func build(t *testing.T, cfgs ...rules.Config) []rules.Rule {
	t.Helper()
	rs, err := rules.BuildAll(cfgs, logr.Discard())
	require.NoError(t, err)
	return rs
}

func backToBack() *schedule.Schedule {
	a, b := mixed("A"), mixed("B")
	return schedule.New([]schedule.Match{
		{Team1: a, Team2: b, TimeSlot: 1, Field: "1"},
		{Team1: a, Team2: b, TimeSlot: 2, Field: "1"},
	})
}

func TestBackToBackExample(t *testing.T) {
	s := backToBack()
	res, err := scoring.New().Evaluate(context.Background(), s, build(t, rules.Config{ID: rules.IDBackToBack}))
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Score)
	require.Len(t, res.Violations, 1)
	assert.Empty(t, res.Warnings)

	// written back onto the schedule
	assert.Equal(t, 5.0, s.Score)
	assert.Equal(t, res.Violations, s.Violations)
}

func TestDoubleBookingExample(t *testing.T) {
	a, b, c := mixed("A"), mixed("B"), mixed("C")
	s := schedule.New([]schedule.Match{
		{Team1: a, Team2: b, TimeSlot: 3, Field: "1"},
		{Team1: a, Team2: c, TimeSlot: 3, Field: "2"},
	})
	res, err := scoring.New().Evaluate(context.Background(), s, build(t, rules.Config{ID: rules.IDDoubleBooking}))
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.Score)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, []int{0, 1}, res.Violations[0].Matches)
}

func TestNoViolationsScoresZero(t *testing.T) {
	a, b, c, d := mixed("A"), mixed("B"), mixed("C"), mixed("D")
	s := schedule.New([]schedule.Match{
		{Team1: a, Team2: b, TimeSlot: 1, Field: "1"},
		{Team1: c, Team2: d, TimeSlot: 1, Field: "2"},
	})
	res, err := scoring.New().Evaluate(context.Background(), s, build(t,
		rules.Config{ID: rules.IDDoubleBooking},
		rules.Config{ID: rules.IDBackToBack},
		rules.Config{ID: rules.IDRefereeBalance},
	))
	require.NoError(t, err)
	assert.Zero(t, res.Score)
	assert.Empty(t, res.Violations)
	assert.Empty(t, s.Violations)
}

func TestDeterministic(t *testing.T) {
	s := backToBack()
	rs := build(t, rules.DefaultConfigs()...)
	sc := scoring.New()

	first, err := sc.Evaluate(context.Background(), s, rs)
	require.NoError(t, err)
	second, err := sc.Evaluate(context.Background(), s, rs)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second evaluation differs (-first +second):\n%s", diff)
	}
}

func TestDeepCopyDoesNotLeak(t *testing.T) {
	s := backToBack()
	rs := build(t, rules.Config{ID: rules.IDBackToBack})
	sc := scoring.New()
	_, err := sc.Evaluate(context.Background(), s, rs)
	require.NoError(t, err)

	cp := s.DeepCopy()
	cp.Matches[1].TimeSlot = 5
	res, err := sc.Evaluate(context.Background(), cp, rs)
	require.NoError(t, err)
	assert.Zero(t, res.Score)

	again, err := sc.Evaluate(context.Background(), s, rs)
	require.NoError(t, err)
	assert.Equal(t, 5.0, again.Score)
}

func TestDisabledRulesAreSkipped(t *testing.T) {
	off := false
	res, err := scoring.New().Evaluate(context.Background(), backToBack(),
		build(t, rules.Config{ID: rules.IDBackToBack, Enabled: &off}))
	require.NoError(t, err)
	assert.Zero(t, res.Score)
}

func TestThrowingScriptedRule(t *testing.T) {
	var hooked []scoring.Warning
	sc := scoring.New(scoring.WithWarningHook(func(w scoring.Warning) { hooked = append(hooked, w) }))
	rs := build(t,
		rules.Config{Type: rules.TypeScripted, Name: "broken", Body: `[string(1/0)]`},
		rules.Config{ID: rules.IDBackToBack},
	)

	res, err := sc.Evaluate(context.Background(), backToBack(), rs)
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Score)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "Avoid back-to-back games", res.Violations[0].Rule)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "broken", res.Warnings[0].Rule)
	assert.ErrorIs(t, res.Warnings[0].Err, rules.ErrScript)
	assert.Equal(t, res.Warnings, hooked)
}

type panicky struct{}

func (panicky) Meta() rules.Meta {
	return rules.Meta{ID: "panicky", Name: "panicky", Priority: 1, Enabled: true}
}
func (panicky) Evaluate(context.Context, *rules.View) ([]schedule.Violation, error) {
	panic("boom")
}

func TestPanickingRuleBecomesWarning(t *testing.T) {
	res, err := scoring.New().Evaluate(context.Background(), backToBack(), []rules.Rule{panicky{}})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Err.Error(), "boom")
}

func TestScriptTimeoutBecomesWarning(t *testing.T) {
	a, b := mixed("A"), mixed("B")
	ms := make([]schedule.Match, 80)
	for i := range ms {
		ms[i] = schedule.Match{Team1: a, Team2: b, TimeSlot: 2 * i, Field: "1"}
	}
	rs := build(t,
		rules.Config{
			Type:   rules.TypeScripted,
			Name:   "slow",
			Body:   `matches.map(m, matches.filter(n, n.slot > m.slot).size()).filter(c, c < 0).map(c, "never")`,
			Params: rules.Params{"timeout": "1ns"},
		},
		rules.Config{ID: rules.IDDoubleBooking},
	)

	res, err := scoring.New().Evaluate(context.Background(), schedule.New(ms), rs)
	require.NoError(t, err)
	assert.Zero(t, res.Score)
	require.Len(t, res.Warnings, 1)
	assert.ErrorIs(t, res.Warnings[0].Err, rules.ErrScript)
	assert.Contains(t, res.Warnings[0].Err.Error(), "timed out")
}

// canceller cancels the evaluation it runs in.
type canceller struct{ cancel context.CancelFunc }

func (canceller) Meta() rules.Meta {
	return rules.Meta{ID: "canceller", Name: "canceller", Priority: 1, Enabled: true}
}

func (c canceller) Evaluate(context.Context, *rules.View) ([]schedule.Violation, error) {
	c.cancel()
	return nil, nil
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := backToBack()
	_, err := scoring.New().Evaluate(ctx, s, build(t, rules.Config{ID: rules.IDBackToBack}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, s.Violations)

	// cancelled between rules: the remaining rules are not run
	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	rs := append([]rules.Rule{canceller{cancel}}, build(t, rules.Config{Type: rules.TypeScripted, Name: "late", Body: `["ran"]`})...)
	_, err = scoring.New().Evaluate(ctx, backToBack(), rs)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvalidScheduleFailsFast(t *testing.T) {
	s := schedule.New([]schedule.Match{{Team1: mixed("A"), TimeSlot: 1, Field: "1"}})
	_, err := scoring.New().Evaluate(context.Background(), s, build(t, rules.Config{ID: rules.IDBackToBack}))
	require.Error(t, err)
	assert.ErrorIs(t, err, schedule.ErrMissingTeam)

	var me *schedule.MatchError
	assert.True(t, errors.As(err, &me))

	_, err = scoring.New().Evaluate(context.Background(), nil, nil)
	assert.ErrorIs(t, err, scoring.ErrNilSchedule)
}

func TestExponentialWeight(t *testing.T) {
	a, b, c := mixed("A"), mixed("B"), mixed("C")
	s := schedule.New([]schedule.Match{
		{Team1: a, Team2: b, TimeSlot: 3, Field: "1"},
		{Team1: a, Team2: c, TimeSlot: 3, Field: "2"},
	})
	sc := scoring.New(scoring.WithWeight(scoring.ExponentialWeight(2)))
	res, err := sc.Evaluate(context.Background(), s, build(t, rules.Config{ID: rules.IDDoubleBooking}))
	require.NoError(t, err)
	assert.Equal(t, 512.0, res.Score)
	assert.Equal(t, 1.0, sc.Weight(1))
}
