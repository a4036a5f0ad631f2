package search

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/daveytran/roundscheduler-sub001/rules"
	"github.com/daveytran/roundscheduler-sub001/schedule"
	"github.com/daveytran/roundscheduler-sub001/scoring"
)

// State is the lifecycle of an Optimizer.
type State int

const (
	Idle State = iota
	Running
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Config tunes an Optimizer. Zero fields take the defaults below.
type Config struct {
	// Strategy names a registered strategy, DefaultStrategy when empty.
	Strategy string
	// Seed makes a run reproducible; 0 seeds from the clock.
	Seed int64

	Generator GeneratorOptions

	// ProgressEvery and ProgressInterval throttle progress callbacks: one is
	// sent when either is reached.
	ProgressEvery    int
	ProgressInterval time.Duration
	// YieldEvery and YieldInterval bound how long the loop runs before
	// yielding the processor and checking its context.
	YieldEvery    int
	YieldInterval time.Duration

	Scorer *scoring.Scorer
	Logger logr.Logger
}

const (
	defaultProgressEvery    = 100
	defaultProgressInterval = 100 * time.Millisecond
	defaultYieldEvery       = 50
	defaultYieldInterval    = 5 * time.Millisecond
)

func (c Config) withDefaults() Config {
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = defaultProgressEvery
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = defaultProgressInterval
	}
	if c.YieldEvery <= 0 {
		c.YieldEvery = defaultYieldEvery
	}
	if c.YieldInterval <= 0 {
		c.YieldInterval = defaultYieldInterval
	}
	if c.Scorer == nil {
		c.Scorer = scoring.New(scoring.WithLogger(c.logger()))
	}
	return c
}

func (c Config) logger() logr.Logger {
	if c.Logger.GetSink() == nil {
		return logr.Discard()
	}
	return c.Logger
}

// Progress is a snapshot of a running search. Best is a private deep copy.
type Progress struct {
	RunID        string
	Iteration    int
	Progress     float64
	CurrentScore float64
	BestScore    float64
	Temperature  float64
	Best         *schedule.Schedule
}

// Result is the outcome of one search. Best.OriginalScore holds the score
// the run started from.
type Result struct {
	RunID        string
	Strategy     string
	Seed         int64
	Best         *schedule.Schedule
	Iterations   int
	Accepted     int
	Improvements int
	Restarts     int
	Elapsed      time.Duration
	Warnings     []scoring.Warning
}

// Outcome is delivered by Start once the search ends.
type Outcome struct {
	Result *Result
	Err    error
}

// Optimizer searches for a lower scoring schedule. One Optimizer runs one
// search at a time; use several for concurrent searches.
type Optimizer struct {
	cfg    Config
	logger logr.Logger

	mu    sync.Mutex
	state State
}

func New(cfg Config) *Optimizer {
	cfg = cfg.withDefaults()
	return &Optimizer{cfg: cfg, logger: cfg.logger()}
}

// State reports where the optimizer is in its lifecycle.
func (o *Optimizer) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Optimizer) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == Running {
		return ErrAlreadyRunning
	}
	o.state = Running
	return nil
}

func (o *Optimizer) finish() {
	o.mu.Lock()
	o.state = Completed
	o.mu.Unlock()
}

func (o *Optimizer) prepare(start *schedule.Schedule, iterations int) (Strategy, error) {
	if iterations < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIterations, iterations)
	}
	if start == nil {
		return nil, ErrNilSchedule
	}
	strat, err := StrategyByName(o.cfg.Strategy)
	if err != nil {
		return nil, err
	}
	return strat, o.begin()
}

// Run searches from start for iterations steps and returns the best schedule
// found. start is never modified. onProgress, if set, is called on the
// calling goroutine. When ctx ends the best schedule found so far is
// returned together with the context's error.
func (o *Optimizer) Run(ctx context.Context, start *schedule.Schedule, rs []rules.Rule, iterations int, onProgress func(Progress)) (*Result, error) {
	strat, err := o.prepare(start, iterations)
	if err != nil {
		return nil, err
	}
	defer o.finish()
	return o.run(ctx, strat, start, rs, iterations, onProgress)
}

// Start is Run on a new goroutine. Parameter errors are returned at once;
// the search outcome arrives on the channel, which is then closed.
func (o *Optimizer) Start(ctx context.Context, start *schedule.Schedule, rs []rules.Rule, iterations int, onProgress func(Progress)) (<-chan Outcome, error) {
	strat, err := o.prepare(start, iterations)
	if err != nil {
		return nil, err
	}
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		defer o.finish()
		res, err := o.run(ctx, strat, start, rs, iterations, onProgress)
		ch <- Outcome{Result: res, Err: err}
	}()
	return ch, nil
}

type loop struct {
	o          *Optimizer
	rs         []rules.Rule
	gen        *Generator
	res        *Result
	warned     map[string]bool
	onProgress func(Progress)

	current *schedule.Schedule
	best    *schedule.Schedule
}

func (o *Optimizer) run(ctx context.Context, strat Strategy, start *schedule.Schedule, rs []rules.Rule, iterations int, onProgress func(Progress)) (*Result, error) {
	began := time.Now()
	seed := o.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	l := &loop{
		o:          o,
		rs:         rs,
		warned:     make(map[string]bool),
		onProgress: onProgress,
		res: &Result{
			RunID:    uuid.NewString(),
			Strategy: strat.Name(),
			Seed:     seed,
		},
	}
	log := o.logger.WithValues("run", l.res.RunID, "strategy", strat.Name())

	l.current = start.DeepCopy()
	if err := l.evaluate(ctx, l.current); err != nil {
		return nil, err
	}
	startScore := l.current.Score
	l.current.SetOriginalScore(startScore)
	l.best = l.current

	gopts := o.cfg.Generator
	if gopts.Weights.total() <= 0 {
		gopts.Weights = strat.Weights()
	}
	l.gen = NewGenerator(l.current, gopts, rand.New(rand.NewSource(seed)))
	log.V(1).Info("search started", "iterations", iterations, "score", startScore, "seed", seed)

	finish := func(err error) (*Result, error) {
		l.best = l.best.DeepCopy()
		l.best.SetOriginalScore(startScore)
		l.res.Best = l.best
		l.res.Elapsed = time.Since(began)
		log.V(1).Info("search finished", "best", l.best.Score, "start", startScore,
			"iterations", l.res.Iterations, "accepted", l.res.Accepted, "elapsed", l.res.Elapsed, "err", err)
		return l.res, err
	}

	if iterations == 0 {
		l.progress(0, 0, 0)
		return finish(nil)
	}

	var (
		stale        int
		lastProgress = time.Now()
		lastYield    = time.Now()
	)
	for i := range iterations {
		temp := strat.Temperature(i, iterations)
		cand, move := l.gen.Neighbor(l.current)
		if move.Kind != MoveNone {
			if err := l.evaluate(ctx, cand); err != nil {
				if ctx.Err() != nil {
					return finish(ctx.Err())
				}
				return nil, err
			}
		}

		if strat.Accept(l.current.Score, cand.Score, temp, l.gen.rng) {
			l.current = cand
			l.res.Accepted++
		}
		if cand.Score < l.best.Score {
			l.best = cand
			l.res.Improvements++
			stale = 0
		} else {
			stale++
		}

		if kick := strat.Restart(stale); kick > 0 {
			next := l.best
			for range kick {
				next, _ = l.gen.Neighbor(next)
			}
			if err := l.evaluate(ctx, next); err != nil {
				if ctx.Err() != nil {
					return finish(ctx.Err())
				}
				return nil, err
			}
			l.current = next
			l.res.Restarts++
			stale = 0
			if next.Score < l.best.Score {
				l.best = next
				l.res.Improvements++
			}
			log.V(3).Info("restarted from best", "iteration", i, "score", next.Score)
		}
		l.res.Iterations = i + 1

		now := time.Now()
		if (i+1)%o.cfg.ProgressEvery == 0 || now.Sub(lastProgress) >= o.cfg.ProgressInterval || i+1 == iterations {
			l.progress(i+1, iterations, temp)
			lastProgress = now
		}
		if (i+1)%o.cfg.YieldEvery == 0 || now.Sub(lastYield) >= o.cfg.YieldInterval {
			runtime.Gosched()
			lastYield = time.Now()
			if err := ctx.Err(); err != nil {
				return finish(err)
			}
		}
	}
	return finish(nil)
}

// evaluate scores s and remembers the first failure of each rule.
func (l *loop) evaluate(ctx context.Context, s *schedule.Schedule) error {
	res, err := l.o.cfg.Scorer.Evaluate(ctx, s, l.rs)
	if err != nil {
		if isContextErr(err) {
			return err
		}
		return fmt.Errorf("evaluate: %w", err)
	}
	for _, w := range res.Warnings {
		if !l.warned[w.Rule] {
			l.warned[w.Rule] = true
			l.res.Warnings = append(l.res.Warnings, w)
		}
	}
	return nil
}

func (l *loop) progress(i, n int, temp float64) {
	if l.onProgress == nil {
		return
	}
	p := 1.0
	if n > 0 {
		p = float64(i) / float64(n)
	}
	l.onProgress(Progress{
		RunID:        l.res.RunID,
		Iteration:    i,
		Progress:     p,
		CurrentScore: l.current.Score,
		BestScore:    l.best.Score,
		Temperature:  temp,
		Best:         l.best.DeepCopy(),
	})
}
