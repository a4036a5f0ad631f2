package search

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sync"

	"github.com/go-logr/logr"
)

// Strategy is the policy the optimizer loop consults on every iteration.
// All strategies share the loop's best-so-far tracking and progress
// reporting; they only decide temperature, acceptance and restarts.
type Strategy interface {
	Name() string
	// Temperature returns the temperature for iteration i of n.
	Temperature(i, n int) float64
	// Accept reports whether the loop moves from a schedule scoring current
	// to one scoring candidate.
	Accept(current, candidate, temp float64, rng *rand.Rand) bool
	// Restart returns how many random moves to apply to the best schedule
	// to form a new current one, given the iterations since the last
	// improvement. 0 means keep going.
	Restart(stale int) int
	// Weights is the move-family distribution this strategy prefers.
	Weights() MoveWeights
}

// Strategy names.
const (
	StrategyAnnealing     = "annealing"
	StrategyHillClimbing  = "hill-climbing"
	StrategyRandomRestart = "random-restart"

	DefaultStrategy = StrategyAnnealing
)

// Annealing cools geometrically from Start to Floor over the budget and
// accepts worse schedules with probability exp(-delta/T).
type Annealing struct {
	Start float64
	Floor float64
	Moves MoveWeights
}

func (a *Annealing) Name() string { return StrategyAnnealing }

func (a *Annealing) Temperature(i, n int) float64 {
	if n <= 1 || a.Start <= a.Floor {
		return a.Floor
	}
	frac := float64(i) / float64(n-1)
	return a.Start * math.Pow(a.Floor/a.Start, frac)
}

func (a *Annealing) Accept(current, candidate, temp float64, rng *rand.Rand) bool {
	if candidate <= current {
		return true
	}
	if temp <= 0 {
		return false
	}
	return rng.Float64() < math.Exp(-(candidate-current)/temp)
}

func (a *Annealing) Restart(int) int { return 0 }

func (a *Annealing) Weights() MoveWeights { return a.Moves }

// HillClimbing only accepts candidates that are no worse.
type HillClimbing struct {
	Moves MoveWeights
}

func (h *HillClimbing) Name() string { return StrategyHillClimbing }

func (h *HillClimbing) Temperature(int, int) float64 { return 0 }

func (h *HillClimbing) Accept(current, candidate, _ float64, _ *rand.Rand) bool {
	return candidate <= current
}

func (h *HillClimbing) Restart(int) int { return 0 }

func (h *HillClimbing) Weights() MoveWeights { return h.Moves }

// RandomRestart climbs like HillClimbing and, after Patience iterations
// without improvement, restarts from the best schedule shaken by Kick random
// moves.
type RandomRestart struct {
	HillClimbing
	Patience int
	Kick     int
}

func (r *RandomRestart) Name() string { return StrategyRandomRestart }

func (r *RandomRestart) Restart(stale int) int {
	if r.Patience > 0 && stale >= r.Patience {
		return max(r.Kick, 1)
	}
	return 0
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Strategy{
		StrategyAnnealing: func() Strategy {
			return &Annealing{Start: 10, Floor: 0.05, Moves: DefaultMoveWeights()}
		},
		StrategyHillClimbing: func() Strategy {
			return &HillClimbing{Moves: DefaultMoveWeights()}
		},
		StrategyRandomRestart: func() Strategy {
			return &RandomRestart{HillClimbing: HillClimbing{Moves: DefaultMoveWeights()}, Patience: 200, Kick: 5}
		},
	}
)

// RegisterStrategy makes a strategy available by name, replacing any
// previous registration.
func RegisterStrategy(name string, factory func() Strategy) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Strategies lists the registered names, sorted.
func Strategies() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// StrategyByName returns a fresh instance of the named strategy; "" selects
// DefaultStrategy.
func StrategyByName(name string) (Strategy, error) {
	if name == "" {
		name = DefaultStrategy
	}
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownStrategy, name, Strategies())
	}
	return f(), nil
}

// StrategyOrDefault is StrategyByName falling back to DefaultStrategy with a
// logged warning.
func StrategyOrDefault(name string, logger logr.Logger) Strategy {
	s, err := StrategyByName(name)
	if err != nil {
		logger.Info("unknown strategy, using default", "strategy", name, "default", DefaultStrategy)
		s, _ = StrategyByName(DefaultStrategy)
	}
	return s
}
