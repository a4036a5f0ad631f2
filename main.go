//go:build !lambda

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/daveytran/roundscheduler-sub001/metrics"
	"github.com/daveytran/roundscheduler-sub001/rules"
	"github.com/daveytran/roundscheduler-sub001/schedule"
	"github.com/daveytran/roundscheduler-sub001/search"
)

func main() {
	klog.InitFlags(nil)
	defer klog.Flush()
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		klog.Flush()
		os.Exit(1)
	}
}

type rootFlags struct {
	rulesPath string
	jsonOut   bool
}

func newRootCommand(out io.Writer) *cobra.Command {
	rf := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "roundscheduler",
		Short:         "Score and optimize tournament round schedules",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.PersistentFlags().StringVar(&rf.rulesPath, "rules", "", "Rule configuration file (YAML or JSON); built-in defaults when empty")
	cmd.PersistentFlags().BoolVar(&rf.jsonOut, "json", false, "Output results as JSON")

	cmd.AddCommand(newEvaluateCommand(rf), newOptimizeCommand(rf), newRulesCommand(rf))
	return cmd
}

// loadInputs reads the schedule and rules. Rule entries that fail to build
// are logged and skipped.
func loadInputs(logger logr.Logger, rf *rootFlags, path string) (*RuleFile, []rules.Rule, *schedule.Schedule, error) {
	ruleFile, err := LoadRuleFile(rf.rulesPath)
	if err != nil {
		return nil, nil, nil, err
	}
	rs, err := buildRules(ruleFile, logger)
	if err != nil {
		logger.Info("some rules were skipped", "err", err.Error())
	}
	s, err := LoadSchedule(path)
	if err != nil {
		return nil, nil, nil, err
	}
	return ruleFile, rs, s, nil
}

func newEvaluateCommand(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate <schedule.json>",
		Short: "Score a schedule and list its violations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := klog.NewKlogr().WithName("evaluate")
			ruleFile, rs, s, err := loadInputs(logger, rf, args[0])
			if err != nil {
				return err
			}
			scored, res, err := evaluateOnce(cmd.Context(), s, rs, newScorer(ruleFile, logger, nil))
			if err != nil {
				return err
			}
			if rf.jsonOut {
				return writeJSON(cmd.OutOrStdout(), EvaluationReport(scored, res))
			}
			fmt.Fprint(cmd.OutOrStdout(), FormatSchedule(scored))
			for _, w := range res.Warnings {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", w)
			}
			return nil
		},
	}
}

func newOptimizeCommand(rf *rootFlags) *cobra.Command {
	opts := defaultOptions()
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "optimize <schedule.json>",
		Short: "Search for a lower scoring schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := klog.NewKlogr().WithName("optimize")
			ruleFile, rs, s, err := loadInputs(logger, rf, args[0])
			if err != nil {
				return err
			}

			var rec *metrics.Recorder
			if metricsAddr != "" {
				rec = metrics.NewRecorder()
				stop := serveMetrics(logger, metricsAddr, rec)
				defer stop()
			}

			res, err := optimize(cmd.Context(), s, rs, newScorer(ruleFile, logger, rec), opts, logger, rec)
			if res == nil {
				return err
			}
			if err != nil {
				// interrupted: report the best schedule found so far
				logger.Info("search interrupted", "err", err.Error(), "iterations", res.Iterations)
			}
			if rf.jsonOut {
				return writeJSON(cmd.OutOrStdout(), SearchReport(res))
			}
			fmt.Fprint(cmd.OutOrStdout(), FormatSearch(res))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Strategy, "strategy", opts.Strategy, fmt.Sprintf("Search strategy, one of %v", search.Strategies()))
	f.IntVar(&opts.Iterations, "iterations", opts.Iterations, "Iterations per run")
	f.IntVar(&opts.Restarts, "restarts", opts.Restarts, "Independently seeded runs; the best one is kept")
	f.Int64Var(&opts.Seed, "seed", 0, "Random seed; 0 seeds from the clock")
	f.IntVar(&opts.ExtraSlots, "extra-slots", opts.ExtraSlots, "Empty slots appended after the last scheduled one")
	f.BoolVar(&opts.Verbose, "progress", false, "Log search progress")
	f.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while searching, e.g. :9090")
	return cmd
}

func newRulesCommand(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the built-in rules and their defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat := rules.Catalog()
			if rf.jsonOut {
				return writeJSON(cmd.OutOrStdout(), cat)
			}
			fmt.Fprint(cmd.OutOrStdout(), FormatCatalog(cat))
			return nil
		},
	}
}

// serveMetrics exposes rec on addr/metrics until the returned func is
// called.
func serveMetrics(logger logr.Logger, addr string, rec *metrics.Recorder) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "metrics server failed", "addr", addr)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
