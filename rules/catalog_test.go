package rules_test

import (
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/daveytran/roundscheduler-sub001/rules"
)

func TestCatalog(t *testing.T) {
	cat := rules.Catalog()
	require.Len(t, cat, 14)

	seen := map[string]bool{}
	for _, m := range cat {
		assert.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
		assert.NotEmpty(t, m.Name)
		assert.GreaterOrEqual(t, m.Priority, rules.MinPriority)
		assert.LessOrEqual(t, m.Priority, rules.MaxPriority)
		if m.Critical {
			assert.Equal(t, rules.MaxPriority, m.Priority, m.ID)
		}
	}
	assert.True(t, seen[rules.IDDoubleBooking])

	// the catalog hands out copies
	cat[0].Params["x"] = 1
	assert.NotContains(t, rules.Catalog()[0].Params, "x")
}

func TestDefaultConfigs(t *testing.T) {
	rs, err := rules.BuildAll(rules.DefaultConfigs(), logr.Discard())
	require.NoError(t, err)
	require.Len(t, rs, 14)
	for _, r := range rs {
		if r.Meta().ID == rules.IDPlayerWarmup {
			assert.False(t, r.Meta().Enabled)
			continue
		}
		assert.True(t, r.Meta().Enabled, r.Meta().ID)
	}
}

func TestBuildAllSkipsBadEntries(t *testing.T) {
	rs, err := rules.BuildAll([]rules.Config{
		{ID: "no_such_rule"},
		{ID: rules.IDBackToBack},
		{ID: rules.IDRefereeBalance, Params: rules.Params{"max_spread": "lots"}},
		{ID: rules.IDFirstAndLast, Priority: 11},
	}, logr.Discard())
	require.Error(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, rules.IDBackToBack, rs[0].Meta().ID)

	errs := multierr.Errors(err)
	require.Len(t, errs, 3)

	var ce *rules.ConfigError
	require.True(t, errors.As(errs[0], &ce))
	assert.Equal(t, 0, ce.Index)
	assert.Equal(t, "no_such_rule", ce.ID)
	assert.ErrorIs(t, errs[0], rules.ErrUnknownRule)
	assert.ErrorIs(t, errs[1], rules.ErrBadParam)
	assert.ErrorIs(t, errs[2], rules.ErrBadPriority)
	assert.Contains(t, errs[2].Error(), "rule config 3")
}

func TestBuildOverrides(t *testing.T) {
	off := false
	r := mustBuild(t, rules.Config{ID: rules.IDBackToBack, Name: "No doubles", Priority: 7, Enabled: &off})
	m := r.Meta()
	assert.Equal(t, "No doubles", m.Name)
	assert.Equal(t, 7, m.Priority)
	assert.False(t, m.Enabled)
	assert.Equal(t, rules.CategoryBoth, m.Category)
}

func TestCriticalRulesStayOn(t *testing.T) {
	off := false
	r := mustBuild(t, rules.Config{ID: rules.IDDoubleBooking, Priority: 3, Enabled: &off})
	assert.True(t, r.Meta().Enabled)
	assert.Equal(t, 10, r.Meta().Priority)
	assert.True(t, r.Meta().Critical)
}

func TestParams(t *testing.T) {
	_, err := rules.Build(rules.Config{ID: rules.IDRefereeBalance, Params: rules.Params{"max_spread": 1.5}}, logr.Discard())
	assert.ErrorIs(t, err, rules.ErrBadParam)

	_, err = rules.Build(rules.Config{ID: rules.IDRefereeBalance, Params: rules.Params{"max_spread": -1.0}}, logr.Discard())
	assert.ErrorIs(t, err, rules.ErrBadParam)

	_, err = rules.Build(rules.Config{ID: rules.IDFieldFairness, Params: rules.Params{"max_field_fraction": 2.0}}, logr.Discard())
	assert.ErrorIs(t, err, rules.ErrBadParam)

	_, err = rules.Build(rules.Config{ID: rules.IDVenueTime, Params: rules.Params{"max_hour": 3.0}}, logr.Discard())
	assert.ErrorIs(t, err, rules.ErrBadParam)
	assert.ErrorContains(t, err, `"max_hour"`)

	_, err = rules.Build(rules.Config{ID: rules.IDBackToBack, Params: rules.Params{"max_spread": 1.0}}, logr.Discard())
	assert.ErrorIs(t, err, rules.ErrBadParam)

	r := mustBuild(t, rules.Config{ID: rules.IDVenueTime, Params: rules.Params{"max_hours": "3"}})
	assert.Equal(t, "3", r.Meta().Params["max_hours"])
	assert.Equal(t, 40.0, r.Meta().Params["minutes_per_slot"])

	p := rules.Params{"a": "1s", "b": 1500.0}
	d, err := p.Duration("a", 0)
	require.NoError(t, err)
	assert.Equal(t, "1s", d.String())
	d, err = p.Duration("b", 0)
	require.NoError(t, err)
	assert.Equal(t, "1.5s", d.String())
}
