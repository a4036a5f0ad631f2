package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-logr/logr"

	"github.com/daveytran/roundscheduler-sub001/rules"
	"github.com/daveytran/roundscheduler-sub001/search"
)

// maxLambdaIterations caps the budget a single request may ask for.
const maxLambdaIterations = 200000

var jsonHeader = map[string]string{
	"Content-Type": "application/json",
}

type optimizeRequest struct {
	Schedule   json.RawMessage `json:"schedule"`
	Rules      []rules.Config  `json:"rules"`
	Weighting  string          `json:"weighting"`
	Base       float64         `json:"base"`
	Strategy   string          `json:"strategy"`
	Iterations int             `json:"iterations"`
	Restarts   int             `json:"restarts"`
	Seed       int64           `json:"seed"`
	ExtraSlots int             `json:"extraSlots"`
	// EvaluateOnly scores the schedule without searching.
	EvaluateOnly bool `json:"evaluateOnly"`
}

type lambdaHandler struct {
	logger logr.Logger
}

func (h lambdaHandler) handle(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return errResp(400, "invalid base64 body")
		}
		body = string(decoded)
	}

	var req optimizeRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return errResp(400, "invalid JSON: "+err.Error())
	}
	if len(req.Schedule) == 0 {
		return errResp(400, "missing schedule field")
	}
	if req.Iterations < 0 || req.Iterations > maxLambdaIterations {
		return errResp(400, "iterations out of range")
	}
	if err := checkWeighting(req.Weighting); err != nil {
		return errResp(400, err.Error())
	}

	s, err := ParseSchedule(string(req.Schedule))
	if err != nil {
		return errResp(400, err.Error())
	}
	rf := &RuleFile{Weighting: req.Weighting, Base: req.Base, Rules: req.Rules}
	if len(rf.Rules) == 0 {
		rf.Rules = rules.DefaultConfigs()
	}
	rs, err := buildRules(rf, h.logger)
	if err != nil {
		// usable rules still run; bad entries are reported as warnings
		h.logger.Info("some rules were skipped", "err", err.Error())
	}
	sc := newScorer(rf, h.logger, nil)

	if req.EvaluateOnly {
		scored, res, err := evaluateOnce(ctx, s, rs, sc)
		if err != nil {
			return errResp(400, err.Error())
		}
		return okResp(EvaluationReport(scored, res))
	}

	opts := defaultOptions()
	if req.Strategy != "" {
		opts.Strategy = req.Strategy
	}
	if req.Iterations > 0 {
		opts.Iterations = req.Iterations
	}
	if req.Restarts > 0 {
		opts.Restarts = req.Restarts
	}
	opts.Seed = req.Seed
	opts.ExtraSlots = req.ExtraSlots

	res, err := optimize(ctx, s, rs, sc, opts, h.logger, nil)
	if res == nil {
		if errors.Is(err, search.ErrInvalidIterations) || errors.Is(err, search.ErrInvalidRestarts) {
			return errResp(400, err.Error())
		}
		return errResp(500, err.Error())
	}
	return okResp(SearchReport(res))
}

func okResp(v any) (events.LambdaFunctionURLResponse, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return errResp(500, err.Error())
	}
	return events.LambdaFunctionURLResponse{StatusCode: 200, Headers: jsonHeader, Body: string(body)}, nil
}

func errResp(code int, msg string) (events.LambdaFunctionURLResponse, error) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.LambdaFunctionURLResponse{StatusCode: code, Headers: jsonHeader, Body: string(body)}, nil
}
