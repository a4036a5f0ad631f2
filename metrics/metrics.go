// Package metrics exposes optimizer and scoring activity as Prometheus
// metrics.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/daveytran/roundscheduler-sub001/scoring"
	"github.com/daveytran/roundscheduler-sub001/search"
)

const (
	Namespace = "roundscheduler"

	StrategyLabel = "strategy"
	OutcomeLabel  = "outcome"
	RuleLabel     = "rule"
)

// Recorder owns a registry with the scheduler's collectors. The zero value
// is not usable; call NewRecorder.
type Recorder struct {
	registry *prometheus.Registry

	iterations   *prometheus.CounterVec
	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	bestScore    *prometheus.GaugeVec
	improvement  *prometheus.GaugeVec
	temperature  *prometheus.GaugeVec
	ruleFailures *prometheus.CounterVec

	mu            sync.Mutex
	lastIteration map[string]int
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		iterations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "search_iterations_total",
				Help:      "Search iterations completed, by strategy",
			},
			[]string{StrategyLabel},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "search_runs_total",
				Help:      "Finished searches, by strategy and outcome",
			},
			[]string{StrategyLabel, OutcomeLabel},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "search_duration_seconds",
				Help:      "Wall time of finished searches",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{StrategyLabel},
		),
		bestScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "search_best_score",
				Help:      "Best score of the latest progress report or finished search",
			},
			[]string{StrategyLabel},
		),
		improvement: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "search_improvement",
				Help:      "Score reduction achieved by the latest finished search",
			},
			[]string{StrategyLabel},
		),
		temperature: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "search_temperature",
				Help:      "Temperature at the latest progress report",
			},
			[]string{StrategyLabel},
		),
		ruleFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "rule_failures_total",
				Help:      "Rule evaluations that failed and were skipped, by rule",
			},
			[]string{RuleLabel},
		),
		lastIteration: make(map[string]int),
	}
	r.registry.MustRegister(
		r.iterations,
		r.runs,
		r.runDuration,
		r.bestScore,
		r.improvement,
		r.temperature,
		r.ruleFailures,
	)
	return r
}

// Registry is the registry the collectors live in.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Progress returns a progress callback for a search using strategy. The
// returned func forwards to next when it is set.
func (r *Recorder) Progress(strategy string, next func(search.Progress)) func(search.Progress) {
	return func(p search.Progress) {
		r.mu.Lock()
		if d := p.Iteration - r.lastIteration[p.RunID]; d > 0 {
			r.iterations.WithLabelValues(strategy).Add(float64(d))
			r.lastIteration[p.RunID] = p.Iteration
		}
		r.mu.Unlock()
		r.bestScore.WithLabelValues(strategy).Set(p.BestScore)
		r.temperature.WithLabelValues(strategy).Set(p.Temperature)
		if next != nil {
			next(p)
		}
	}
}

// ObserveResult records a finished search. err is the error returned with
// res, if any.
func (r *Recorder) ObserveResult(res *search.Result, err error) {
	if res == nil {
		return
	}
	outcome := "completed"
	if err != nil {
		outcome = "cancelled"
	}
	r.runs.WithLabelValues(res.Strategy, outcome).Inc()
	r.runDuration.WithLabelValues(res.Strategy).Observe(res.Elapsed.Seconds())
	if res.Best != nil {
		r.bestScore.WithLabelValues(res.Strategy).Set(res.Best.Score)
		r.improvement.WithLabelValues(res.Strategy).Set(res.Best.Improvement())
	}
	r.mu.Lock()
	delete(r.lastIteration, res.RunID)
	r.mu.Unlock()
}

// RuleFailed counts a skipped rule. It has the shape scoring.WithWarningHook
// expects.
func (r *Recorder) RuleFailed(w scoring.Warning) {
	r.ruleFailures.WithLabelValues(w.Rule).Inc()
}
