// Package schedule holds the tournament entity model: players, teams,
// matches and the Schedule aggregate that rules inspect and the optimizer
// mutates.
//
// Teams are identified by (name, division); the same club may enter several
// divisions and share players between them. A Schedule owns its Match values
// but only references Team and Player values, so DeepCopy is cheap and the
// copy can be mutated without disturbing the original.
//
// Validate enforces the structural contract the rule engine relies on:
// every match has its teams, no team plays itself, and a referee never plays
// in the match it officiates.
package schedule
