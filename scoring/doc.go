// Package scoring turns rule violations into a single schedule score.
//
// Each violation adds weight(priority) to the score; lower is better and a
// schedule without violations scores 0. The weight function is pluggable:
// FlatWeight charges the priority itself, ExponentialWeight lets higher
// priorities dominate.
package scoring
