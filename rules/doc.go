// Package rules implements the schedule constraints: a Rule contract, a
// read-only View that indexes a schedule for rules to query, the built-in
// rule catalog and a scripted rule backed by CEL.
//
// Rules are built from Config entries with Build or BuildAll. Each rule
// reports violations referencing matches by their index in
// Schedule.Matches; the scoring package weights and sums them.
//
// Scripted rules see three variables:
//
//	matches  list of maps: index, team1, team2, division, slot, field,
//	         referee, activity, locked, players
//	teams    list of maps: key, name, division, club, players
//	helpers  byTeam, byField, byDivision, bySlot, refereeCounts,
//	         gameCounts, playerGames, slots, consecutive, gameStats,
//	         refereeStats
//
// plus the functions spread(list<int>) and mean(list<int>). A body returns
// a list of strings or of maps with "description" and optional "matches":
//
//	helpers.refereeStats.spread > 2
//	  ? ["referee duties are unbalanced"]
//	  : []
//
// Each call runs under a cost limit and a timeout; failures come back as
// errors wrapping ErrScript.
package rules
