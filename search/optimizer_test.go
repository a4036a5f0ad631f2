package search_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/daveytran/roundscheduler-sub001/rules"
	"github.com/daveytran/roundscheduler-sub001/schedule"
	"github.com/daveytran/roundscheduler-sub001/scoring"
	"github.com/daveytran/roundscheduler-sub001/search"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func buildRules(t *testing.T, cfgs ...rules.Config) []rules.Rule {
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

func TestOptimizeBackToBack(t *testing.T) {
	start := backToBack()
	orig := start.DeepCopy()
	rs := buildRules(t, rules.Config{ID: rules.IDBackToBack})

	for _, name := range search.Strategies() {
		t.Run(name, func(t *testing.T) {
			o := search.New(search.Config{Strategy: name, Seed: 42, Generator: search.GeneratorOptions{ExtraSlots: 2}})
			res, err := o.Run(context.Background(), start, rs, 500, nil)
			require.NoError(t, err)
			assert.Zero(t, res.Best.Score)
			assert.Empty(t, res.Best.Violations)
			require.NotNil(t, res.Best.OriginalScore)
			assert.Equal(t, 5.0, *res.Best.OriginalScore)
			assert.Equal(t, 5.0, res.Best.Improvement())
			assert.Equal(t, 500, res.Iterations)
			assert.Equal(t, name, res.Strategy)
			assert.NotEmpty(t, res.RunID)
			assert.Equal(t, search.Completed, o.State())
		})
	}
	assert.Empty(t, cmp.Diff(orig, start), "starting schedule was modified")
}

func TestProgressIsMonotone(t *testing.T) {
	rs := buildRules(t, rules.DefaultConfigs()...)
	o := search.New(search.Config{Seed: 9, ProgressEvery: 1, Generator: search.GeneratorOptions{ExtraSlots: 2}})

	var got []search.Progress
	res, err := o.Run(context.Background(), fixture(), rs, 300, func(p search.Progress) {
		got = append(got, p)
	})
	require.NoError(t, err)
	require.Len(t, got, 300)

	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i].Iteration, got[i-1].Iteration)
		assert.LessOrEqual(t, got[i].BestScore, got[i-1].BestScore)
		assert.LessOrEqual(t, got[i].BestScore, got[i].CurrentScore)
	}
	last := got[len(got)-1]
	assert.Equal(t, 300, last.Iteration)
	assert.Equal(t, 1.0, last.Progress)
	assert.Equal(t, res.Best.Score, last.BestScore)
	assert.Equal(t, res.RunID, last.RunID)

	// snapshots are private copies
	last.Best.Matches[2].TimeSlot = 99
	assert.NotEqual(t, 99, res.Best.Matches[2].TimeSlot)
}

func TestZeroBudget(t *testing.T) {
	rs := buildRules(t, rules.DefaultConfigs()...)
	start := fixture()

	want, err := scoring.New().Evaluate(context.Background(), start.DeepCopy(), rs)
	require.NoError(t, err)

	var calls []search.Progress
	res, err := search.New(search.Config{Seed: 1}).Run(context.Background(), start, rs, 0, func(p search.Progress) {
		calls = append(calls, p)
	})
	require.NoError(t, err)
	assert.Equal(t, want.Score, res.Best.Score)
	assert.Equal(t, want.Violations, res.Best.Violations)
	assert.Equal(t, start.Matches, res.Best.Matches)
	assert.Equal(t, want.Score, *res.Best.OriginalScore)
	assert.Zero(t, res.Iterations)
	require.Len(t, calls, 1)
	assert.Zero(t, calls[0].Iteration)
}

func TestLockedMatchesStay(t *testing.T) {
	rs := buildRules(t, rules.DefaultConfigs()...)
	start := fixture()
	for _, name := range search.Strategies() {
		o := search.New(search.Config{Strategy: name, Seed: 5, Generator: search.GeneratorOptions{ExtraSlots: 3, Fields: []string{"3"}}})
		res, err := o.Run(context.Background(), start, rs, 400, nil)
		require.NoError(t, err, name)
		for i, m := range start.Matches {
			if m.Movable() {
				continue
			}
			got := res.Best.Matches[i]
			assert.Equal(t, m.TimeSlot, got.TimeSlot, "%s: match %d", name, i)
			assert.Equal(t, m.Field, got.Field, "%s: match %d", name, i)
			assert.Same(t, m.Referee, got.Referee, "%s: match %d", name, i)
		}
		assert.LessOrEqual(t, res.Best.Score, *res.Best.OriginalScore, name)
	}
}

func TestRunRejectsBadParameters(t *testing.T) {
	rs := buildRules(t, rules.Config{ID: rules.IDBackToBack})

	o := search.New(search.Config{})
	_, err := o.Run(context.Background(), backToBack(), rs, -1, nil)
	assert.ErrorIs(t, err, search.ErrInvalidIterations)
	_, err = o.Run(context.Background(), nil, rs, 10, nil)
	assert.ErrorIs(t, err, search.ErrNilSchedule)
	assert.Equal(t, search.Idle, o.State())

	_, err = search.New(search.Config{Strategy: "tabu"}).Run(context.Background(), backToBack(), rs, 10, nil)
	assert.ErrorIs(t, err, search.ErrUnknownStrategy)

	// a structurally broken schedule fails before the loop
	broken := schedule.New([]schedule.Match{{Team1: mixed("A"), TimeSlot: 1, Field: "1"}})
	_, err = o.Run(context.Background(), broken, rs, 10, nil)
	assert.ErrorIs(t, err, schedule.ErrMissingTeam)
}

func TestStrategyOrDefault(t *testing.T) {
	s := search.StrategyOrDefault("tabu", logr.Discard())
	assert.Equal(t, search.DefaultStrategy, s.Name())
	s = search.StrategyOrDefault(search.StrategyHillClimbing, logr.Discard())
	assert.Equal(t, search.StrategyHillClimbing, s.Name())
}

func TestCancelReturnsBestSoFar(t *testing.T) {
	rs := buildRules(t, rules.DefaultConfigs()...)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o := search.New(search.Config{Seed: 3, ProgressEvery: 50, YieldEvery: 1})
	res, err := o.Run(ctx, fixture(), rs, 100000, func(p search.Progress) {
		if p.Iteration >= 100 {
			cancel()
		}
	})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Less(t, res.Iterations, 100000)
	assert.NotNil(t, res.Best)
	assert.Equal(t, search.Completed, o.State())
}

func TestStartAndBusy(t *testing.T) {
	rs := buildRules(t, rules.Config{ID: rules.IDBackToBack})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o := search.New(search.Config{Seed: 8, Generator: search.GeneratorOptions{ExtraSlots: 2}})
	ch, err := o.Start(ctx, backToBack(), rs, 1_000_000, nil)
	require.NoError(t, err)
	assert.Equal(t, search.Running, o.State())

	_, err = o.Run(ctx, backToBack(), rs, 10, nil)
	assert.ErrorIs(t, err, search.ErrAlreadyRunning)

	cancel()
	select {
	case out := <-ch:
		assert.ErrorIs(t, out.Err, context.Canceled)
		require.NotNil(t, out.Result)
	case <-time.After(10 * time.Second):
		t.Fatal("search did not stop after cancel")
	}
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, search.Completed, o.State())

	// a completed optimizer can run again, e.g. from its own best schedule
	res, err := o.Run(context.Background(), backToBack(), rs, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Iterations)
}

func TestFailingScriptDoesNotStopSearch(t *testing.T) {
	rs := buildRules(t,
		rules.Config{Type: rules.TypeScripted, Name: "broken", Body: `[string(1/0)]`},
		rules.Config{ID: rules.IDBackToBack},
	)
	res, err := search.New(search.Config{Seed: 2, Generator: search.GeneratorOptions{ExtraSlots: 2}}).
		Run(context.Background(), backToBack(), rs, 200, nil)
	require.NoError(t, err)
	assert.Equal(t, 200, res.Iterations)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "broken", res.Warnings[0].Rule)
}

func TestAnnealingTemperature(t *testing.T) {
	a := &search.Annealing{Start: 10, Floor: 0.1}
	assert.InDelta(t, 10, a.Temperature(0, 100), 1e-9)
	assert.InDelta(t, 0.1, a.Temperature(99, 100), 1e-9)
	assert.Greater(t, a.Temperature(10, 100), a.Temperature(11, 100))
	assert.Equal(t, 0.1, a.Temperature(0, 1))

	h := &search.HillClimbing{}
	assert.True(t, h.Accept(3, 3, 0, nil))
	assert.False(t, h.Accept(3, 4, 0, nil))

	r := &search.RandomRestart{Patience: 10, Kick: 3}
	assert.Zero(t, r.Restart(9))
	assert.Equal(t, 3, r.Restart(10))
}
