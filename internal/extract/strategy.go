// Package extract implements the strategy catalog of §4.3/§4.10: pure
// functions turning a source into (text, method) or failing, composed
// into ordered per-Kind strategy lists.
package extract

import (
	"context"
	"fmt"

	"github.com/adcompliance/auditor/internal/clean"
	"github.com/adcompliance/auditor/internal/fetch"
	"github.com/adcompliance/auditor/internal/metrics"
	"github.com/adcompliance/auditor/internal/models"
	"github.com/adcompliance/auditor/internal/validate"
	"github.com/rs/zerolog/log"
)

// tooShortCleanedLength is the §4.10 threshold below which a successful
// extraction is still recorded as "too short" and the next strategy tried.
const tooShortCleanedLength = 300

// strategyFetcher is the subset of *fetch.Fetcher a Strategy depends on,
// so tests can substitute a stub.
type strategyFetcher interface {
	Get(ctx context.Context, url string) (*fetch.Result, error)
}

// Source is everything a Strategy needs: the classified input plus the
// shared Fetcher singleton.
type Source struct {
	Input   models.Input
	Fetcher *fetch.Fetcher
}

// Strategy is one named extraction attempt.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, src Source) (string, error)
}

// metadataOnlyStrategyName matches MetadataOnly.Name(); a successful
// MetadataOnly extraction is the §3 "explicitly metadata-only" source the
// MIN_CLEANED invariant exempts, so it skips the too-short gate below.
const metadataOnlyStrategyName = "MetadataOnly"

// ExtractionExhausted is returned when every strategy for a kind failed.
type ExtractionExhausted struct {
	LastError error
}

func (e *ExtractionExhausted) Error() string {
	return fmt.Sprintf("extraction exhausted: %v", e.LastError)
}

// Plan is the dispatcher-resolved, per-Kind ordered strategy list.
type Plan struct {
	Strategies []Strategy
}

// Run tries each strategy in order, cleaning and validating after each
// success, per §4.10's "between consecutive strategies" rule.
func (p Plan) Run(ctx context.Context, src Source) (models.ExtractedContent, error) {
	var lastErr error

	for _, strategy := range p.Strategies {
		raw, err := strategy.Extract(ctx, src)
		if err != nil {
			log.Info().
				Str("event", "extract_attempt_failed").
				Str("method", strategy.Name()).
				Err(err).
				Msg("extraction strategy failed")
			lastErr = err
			metrics.RecordExtractorAttempt(strategy.Name(), "failed")
			continue
		}

		cleaned := clean.Clean(raw)
		if err := validate.EnforceContentLossGuard(raw, cleaned); err != nil {
			log.Info().
				Str("event", "extract_attempt_failed").
				Str("method", strategy.Name()).
				Str("status", "content_loss").
				Err(err).
				Msg("cleaning discarded too much of the raw text")
			lastErr = err
			metrics.RecordExtractorAttempt(strategy.Name(), "content_loss")
			continue
		}

		metadataOnly := strategy.Name() == metadataOnlyStrategyName
		if !metadataOnly && len([]rune(cleaned)) < tooShortCleanedLength {
			log.Info().
				Str("event", "extract_attempt_too_short").
				Str("method", strategy.Name()).
				Int("length", len([]rune(cleaned))).
				Msg("extraction too short, trying next strategy")
			lastErr = fmt.Errorf("extraction too short (%d chars)", len([]rune(cleaned)))
			metrics.RecordExtractorAttempt(strategy.Name(), "too_short")
			continue
		}

		// Validate is a signal, not a fatal error (§4.5): a sparse but
		// readable page still produces a Report, it just carries the
		// validator's reasons along for review.
		result := validate.Validate(cleaned)
		if !result.IsValid && !metadataOnly {
			log.Info().
				Str("event", "extract_attempt_validation_signal").
				Str("method", strategy.Name()).
				Strs("reasons", result.Reasons).
				Msg("validator flagged extraction as insufficient, accepting anyway")
			metrics.RecordExtractorAttempt(strategy.Name(), "validation_warning")
		}
		if len(result.Warnings) > 0 {
			log.Info().
				Str("event", "extract_attempt_warnings").
				Str("method", strategy.Name()).
				Strs("warnings", result.Warnings).
				Msg("extraction accepted with validator warnings")
		}

		log.Info().
			Str("event", "extract_attempt_succeeded").
			Str("method", strategy.Name()).
			Msg("extraction strategy succeeded")
		metrics.RecordExtractorAttempt(strategy.Name(), "succeeded")

		return models.ExtractedContent{
			Raw:                raw,
			Cleaned:            cleaned,
			ExtractionMethod:   strategy.Name(),
			MetadataOnly:       metadataOnly,
			ValidationWarnings: result.Warnings,
			ValidationReasons:  result.Reasons,
		}, nil
	}

	metrics.ExtractionExhaustedTotal.WithLabelValues(string(src.Input.Kind)).Inc()
	return models.ExtractedContent{}, &ExtractionExhausted{LastError: lastErr}
}
