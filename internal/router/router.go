// Package router selects the reasoner model and generation parameters and
// carries the ModelRouter's single fallback hop, per §4.9.
package router

import (
	"github.com/adcompliance/auditor/internal/config"
	"github.com/adcompliance/auditor/internal/llm"
)

const (
	minMaxOutputTokens = 1500
	maxMaxOutputTokens = 8192

	topP        = 0.95
	temperature = 0.0
)

// GenerationPlan is the resolved set of call parameters for one reasoner
// invocation.
type GenerationPlan struct {
	Model           string
	Temperature     float64
	TopP            float64
	MaxOutputTokens int
}

// Router picks a GenerationPlan and owns the primary/fallback provider
// pair. A single default provider is always acceptable; the fallback is
// optional.
type Router struct {
	Primary          llm.Provider
	PrimaryModel     string
	Fallback         llm.Provider
	FallbackModel    string
	ShortThreshold   int
	LongThreshold    int
}

// New builds a Router from the LLM config and the already-constructed
// provider pair. fallback may be nil when no FallbackProvider is configured.
func New(cfg *config.LLMConfig, primary, fallback llm.Provider, shortThreshold, longThreshold int) *Router {
	return &Router{
		Primary:        primary,
		PrimaryModel:   cfg.Model,
		Fallback:       fallback,
		FallbackModel:  cfg.FallbackModel,
		ShortThreshold: shortThreshold,
		LongThreshold:  longThreshold,
	}
}

// HasFallback reports whether a fallback hop is configured.
func (r *Router) HasFallback() bool {
	return r.Fallback != nil
}

// Plan resolves the generation parameters for a call over reduced content
// of the given length. IsComplex additionally widens the output budget,
// since a complex rule pack produces more violations to enumerate.
func (r *Router) Plan(inputLen int, isComplex bool) GenerationPlan {
	maxTokens := minMaxOutputTokens
	switch {
	case inputLen >= r.LongThreshold || isComplex:
		maxTokens = maxMaxOutputTokens
	case inputLen >= r.ShortThreshold:
		maxTokens = (minMaxOutputTokens + maxMaxOutputTokens) / 2
	}

	return GenerationPlan{
		Model:           r.PrimaryModel,
		Temperature:     temperature,
		TopP:            topP,
		MaxOutputTokens: maxTokens,
	}
}

// FallbackPlan mirrors Plan for the fallback model.
func (r *Router) FallbackPlan(inputLen int, isComplex bool) GenerationPlan {
	plan := r.Plan(inputLen, isComplex)
	plan.Model = r.FallbackModel
	return plan
}

// IsComplex is the router's complexity predicate: a rule pack wide enough
// to plausibly surface many distinct violations.
func IsComplex(ruleCount int) bool {
	return ruleCount > 15
}
