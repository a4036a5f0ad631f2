package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/daveytran/roundscheduler-sub001/metrics"
	"github.com/daveytran/roundscheduler-sub001/rules"
	"github.com/daveytran/roundscheduler-sub001/schedule"
	"github.com/daveytran/roundscheduler-sub001/scoring"
	"github.com/daveytran/roundscheduler-sub001/search"
)

// options are the knobs shared by the CLI and the Lambda handler.
type options struct {
	Strategy   string
	Iterations int
	Restarts   int
	Seed       int64
	ExtraSlots int
	Verbose    bool
}

func defaultOptions() options {
	return options{
		Strategy:   cfg.Strategy,
		Iterations: cfg.Iterations,
		Restarts:   cfg.Restarts,
		ExtraSlots: cfg.ExtraSlots,
	}
}

// newScorer builds a scorer for rf's weighting. rec may be nil.
func newScorer(rf *RuleFile, logger logr.Logger, rec *metrics.Recorder) *scoring.Scorer {
	opts := []scoring.Option{scoring.WithLogger(logger)}
	switch {
	case rf.Weighting == "exponential":
		base := rf.Base
		if base <= 1 {
			base = 2
		}
		opts = append(opts, scoring.WithWeight(scoring.ExponentialWeight(base)))
	case rf.Weighting == "" && cfg.ExponentialBase > 1:
		opts = append(opts, scoring.WithWeight(scoring.ExponentialWeight(cfg.ExponentialBase)))
	}
	if rec != nil {
		opts = append(opts, scoring.WithWarningHook(rec.RuleFailed))
	}
	return scoring.New(opts...)
}

// buildRules turns rf into live rules. Bad entries are skipped and logged;
// their combined error is returned alongside the usable rules.
func buildRules(rf *RuleFile, logger logr.Logger) ([]rules.Rule, error) {
	return rules.BuildAll(rf.Rules, logger)
}

// evaluateOnce scores a copy of s and returns it with the result.
func evaluateOnce(ctx context.Context, s *schedule.Schedule, rs []rules.Rule, sc *scoring.Scorer) (*schedule.Schedule, scoring.Result, error) {
	c := s.DeepCopy()
	res, err := sc.Evaluate(ctx, c, rs)
	return c, res, err
}

// optimize runs one search, or a multi-start search when opts.Restarts > 1.
func optimize(ctx context.Context, s *schedule.Schedule, rs []rules.Rule, sc *scoring.Scorer, opts options, logger logr.Logger, rec *metrics.Recorder) (*search.Result, error) {
	strat := search.StrategyOrDefault(opts.Strategy, logger)
	sc2 := search.Config{
		Strategy:         strat.Name(),
		Seed:             opts.Seed,
		Generator:        search.GeneratorOptions{ExtraSlots: opts.ExtraSlots},
		ProgressEvery:    cfg.ProgressEvery,
		ProgressInterval: cfg.ProgressInterval,
		Scorer:           sc,
		Logger:           logger,
	}

	var progress func(search.Progress)
	if opts.Verbose {
		progress = func(p search.Progress) {
			logger.Info("progress", "run", p.RunID, "iteration", p.Iteration,
				"pct", fmt.Sprintf("%.0f%%", p.Progress*100), "current", p.CurrentScore,
				"best", p.BestScore, "temp", p.Temperature)
		}
	}
	if rec != nil {
		progress = rec.Progress(strat.Name(), progress)
	}

	began := time.Now()
	var (
		res *search.Result
		err error
	)
	if opts.Restarts > 1 {
		res, err = search.MultiStart(ctx, opts.Restarts, sc2, s, rs, opts.Iterations, progress)
	} else {
		res, err = search.New(sc2).Run(ctx, s, rs, opts.Iterations, progress)
	}
	if rec != nil {
		rec.ObserveResult(res, err)
	}
	if res != nil {
		logger.V(1).Info("optimize done", "best", res.Best.Score, "elapsed", time.Since(began))
	}
	return res, err
}
