package schedule_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daveytran/roundscheduler-sub001/schedule"
)

func TestDirectoryResolveTieBreak(t *testing.T) {
	d := schedule.NewDirectory()
	cloth := d.Team("Sharks", schedule.DivisionCloth)
	gendered := d.Team("Sharks", schedule.DivisionGendered)

	got, err := d.Resolve("Sharks", schedule.DivisionCloth)
	require.NoError(t, err)
	assert.Same(t, cloth, got)

	// mixed is absent, so the fixed order picks gendered before cloth
	got, err = d.Resolve("Sharks", schedule.DivisionMixed)
	require.NoError(t, err)
	assert.Same(t, gendered, got)

	_, err = d.Resolve("Whales", schedule.DivisionMixed)
	assert.ErrorIs(t, err, schedule.ErrUnknownTeam)
}

func TestDirectoryPlayers(t *testing.T) {
	d := schedule.NewDirectory()
	p := d.AddPlayer(&schedule.Player{Name: "Ana", MixedTeam: "Sharks", ClothTeam: "Rays"})
	again := d.AddPlayer(&schedule.Player{Name: "Ana", MixedTeam: "Other"})
	assert.Same(t, p, again)

	sharks, ok := d.Lookup(schedule.TeamKey{Name: "Sharks", Division: schedule.DivisionMixed})
	require.True(t, ok)
	assert.Equal(t, []*schedule.Player{p}, sharks.Players)

	rays, ok := d.Lookup(schedule.TeamKey{Name: "Rays", Division: schedule.DivisionCloth})
	require.True(t, ok)
	assert.Len(t, rays.Players, 1)

	_, ok = d.Lookup(schedule.TeamKey{Name: "Other", Division: schedule.DivisionMixed})
	assert.False(t, ok)

	require.Len(t, d.Teams(), 2)
	assert.Equal(t, "Rays", d.Teams()[0].Name)
}

func TestDirectoryAddTeamDuplicate(t *testing.T) {
	d := schedule.NewDirectory()
	require.NoError(t, d.AddTeam(&schedule.Team{Name: "A"}))
	assert.ErrorIs(t, d.AddTeam(&schedule.Team{Name: "A"}), schedule.ErrDuplicateTeam)
}
