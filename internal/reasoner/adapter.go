// Package reasoner performs the one-shot structured-JSON reasoner call
// (§4.9) and normalizes its output into a valid Report (§4.11).
package reasoner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adcompliance/auditor/internal/llm"
	"github.com/adcompliance/auditor/internal/metadata"
	"github.com/adcompliance/auditor/internal/metrics"
	"github.com/adcompliance/auditor/internal/models"
	"github.com/adcompliance/auditor/internal/router"
	"github.com/rs/zerolog/log"
)

// CallTimeout is the hard wall-clock deadline per reasoner call (§5).
const CallTimeout = 30 * time.Second

// failSafeScoreFloor/violation count gate the fail-safe re-analysis rerun.
const failSafeScoreFloor = 90

// ReasonerTimeout is returned when a call exceeds CallTimeout.
type ReasonerTimeout struct{ Model string }

func (e *ReasonerTimeout) Error() string { return fmt.Sprintf("reasoner timeout: %s", e.Model) }

// ReasonerInvalidJSON is returned when the response cannot be repaired
// into parseable JSON.
type ReasonerInvalidJSON struct {
	Model string
	Err   error
}

func (e *ReasonerInvalidJSON) Error() string {
	return fmt.Sprintf("reasoner invalid json from %s: %v", e.Model, e.Err)
}

// ReasonerUpstream wraps a non-2xx / transport failure from the provider.
type ReasonerUpstream struct {
	Model string
	Err   error
}

func (e *ReasonerUpstream) Error() string {
	return fmt.Sprintf("reasoner upstream error from %s: %v", e.Model, e.Err)
}
func (e *ReasonerUpstream) Unwrap() error { return e.Err }

// ReasonerUnrecoverable means both the primary and the fallback (if any)
// failed. The Pipeline must convert this into a Report shell, never panic.
type ReasonerUnrecoverable struct {
	PrimaryErr  error
	FallbackErr error
}

func (e *ReasonerUnrecoverable) Error() string {
	return fmt.Sprintf("reasoner unrecoverable: primary=%v fallback=%v", e.PrimaryErr, e.FallbackErr)
}

// Adapter runs the router-selected call with timeout, single-fallback
// retry, and the fail-safe re-analysis rerun.
type Adapter struct {
	Router               *router.Router
	EnableFailSafeRerun bool
}

func New(r *router.Router, enableFailSafeRerun bool) *Adapter {
	return &Adapter{Router: r, EnableFailSafeRerun: enableFailSafeRerun}
}

// Result carries the normalized report plus the bookkeeping fields the
// Pipeline needs to fill into the Report (modelUsed, usedFallback).
type Result struct {
	Report       models.Report
	UsedFallback bool
	ModelUsed    string
}

// Run executes the full §4.9 contract: primary call, optional single
// fallback, optional fail-safe rerun, then ReportNormalizer.
func (a *Adapter) Run(ctx context.Context, reduced string, rules []models.Rule, meta metadata.ContentMetadata, analysisMode, category, jurisdiction string) (Result, error) {
	system := buildSystemPrompt(rules, jurisdiction, category, analysisMode, meta.Language)
	user := metaContext(meta) + reduced

	plan := a.Router.Plan(len([]rune(reduced)), router.IsComplex(len(rules)))
	raw, primaryErr := a.call(ctx, a.Router.Primary, system, user, plan)

	usedFallback := false
	model := plan.Model

	if primaryErr != nil {
		if !a.Router.HasFallback() {
			metrics.ReasonerUnrecoverableTotal.Inc()
			return Result{}, &ReasonerUnrecoverable{PrimaryErr: primaryErr}
		}
		fallbackPlan := a.Router.FallbackPlan(len([]rune(reduced)), router.IsComplex(len(rules)))
		fbRaw, fallbackErr := a.call(ctx, a.Router.Fallback, system, user, fallbackPlan)
		if fallbackErr != nil {
			metrics.ReasonerUnrecoverableTotal.Inc()
			return Result{}, &ReasonerUnrecoverable{PrimaryErr: primaryErr, FallbackErr: fallbackErr}
		}
		raw = fbRaw
		usedFallback = true
		model = fallbackPlan.Model
		metrics.ReasonerFallbacksTotal.Inc()
	}

	// Normalize zeroes the score of a report with no violations, so the
	// rerun gate reads the model's own first-pass score from the raw output.
	firstPassScore := 0
	if repaired, ok := repairJSON(raw); ok {
		var head struct {
			Score interface{} `json:"score"`
		}
		if json.Unmarshal([]byte(repaired), &head) == nil {
			firstPassScore = coerceScore(head.Score)
		}
	}

	report := Normalize(raw)

	if a.EnableFailSafeRerun && len(report.Violations) == 0 && firstPassScore >= failSafeScoreFloor {
		metrics.FailSafeRerunsTotal.Inc()
		rerunReport, rerunErr := a.failSafeRerun(ctx, system, user, plan, usedFallback)
		if rerunErr == nil && len(rerunReport.Violations) > 0 {
			report = rerunReport
		} else if rerunErr != nil {
			log.Warn().Err(rerunErr).Msg("fail-safe re-analysis rerun failed, keeping first pass")
		}
	}

	report.ModelUsed = model
	report.UsedFallback = usedFallback

	return Result{Report: report, UsedFallback: usedFallback, ModelUsed: model}, nil
}

func (a *Adapter) failSafeRerun(ctx context.Context, system, user string, plan router.GenerationPlan, usedFallback bool) (models.Report, error) {
	provider := a.Router.Primary
	if usedFallback {
		provider = a.Router.Fallback
	}
	raw, err := a.call(ctx, provider, system+buildStrictRerunSuffix(), user, plan)
	if err != nil {
		return models.Report{}, err
	}
	return Normalize(raw), nil
}

func (a *Adapter) call(ctx context.Context, provider llm.Provider, system, user string, plan router.GenerationPlan) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	start := time.Now()
	out, err := provider.CompleteWithSystem(callCtx, system, user, llm.CompletionOptions{
		Model:       plan.Model,
		Temperature: plan.Temperature,
		TopP:        plan.TopP,
		MaxTokens:   plan.MaxOutputTokens,
		JSONMode:    true,
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		if callCtx.Err() != nil {
			metrics.RecordReasonerCall(plan.Model, "timeout", elapsed)
			return "", &ReasonerTimeout{Model: plan.Model}
		}
		metrics.RecordReasonerCall(plan.Model, "upstream_error", elapsed)
		return "", &ReasonerUpstream{Model: plan.Model, Err: err}
	}
	if _, ok := repairJSON(out); !ok {
		metrics.RecordReasonerCall(plan.Model, "invalid_json", elapsed)
		return "", &ReasonerInvalidJSON{Model: plan.Model, Err: fmt.Errorf("no JSON object in response")}
	}
	metrics.RecordReasonerCall(plan.Model, "succeeded", elapsed)
	return out, nil
}
