package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStrategy struct {
	name string
	text string
	err  error
}

func (s stubStrategy) Name() string { return s.name }

func (s stubStrategy) Extract(ctx context.Context, src Source) (string, error) {
	return s.text, s.err
}

func TestPlanRun_MetadataOnlyExemptFromTooShortGate(t *testing.T) {
	plan := Plan{Strategies: []Strategy{
		stubStrategy{name: metadataOnlyStrategyName, text: "Title: Miracle Cure; Description: Cures everything"},
	}}

	out, err := plan.Run(context.Background(), Source{})
	require.NoError(t, err)
	assert.True(t, out.MetadataOnly)
	assert.Contains(t, out.Cleaned, "Miracle Cure")
}

func TestPlanRun_NonMetadataTooShortFallsThrough(t *testing.T) {
	plan := Plan{Strategies: []Strategy{
		stubStrategy{name: "ReaderProxy", text: "short"},
	}}

	_, err := plan.Run(context.Background(), Source{})
	assert.Error(t, err)
	var exhausted *ExtractionExhausted
	assert.ErrorAs(t, err, &exhausted)
}

func TestPlanRun_ValidatorSignalDoesNotBlockSuccess(t *testing.T) {
	// Long enough to pass the 300-char gate but well under the Validator's
	// 3000-char sufficiency floor; the attempt still succeeds, carrying
	// the Validator's reasons along rather than falling through.
	text := strings.Repeat("word ", 100)
	plan := Plan{Strategies: []Strategy{
		stubStrategy{name: "ReadabilityLocal", text: text},
	}}

	out, err := plan.Run(context.Background(), Source{})
	require.NoError(t, err)
	assert.False(t, out.MetadataOnly)
	assert.NotEmpty(t, out.ValidationReasons)
}

func TestPlanRun_FirstStrategyFailureFallsToNext(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 200)
	plan := Plan{Strategies: []Strategy{
		stubStrategy{name: "ReaderProxy", err: assert.AnError},
		stubStrategy{name: "ReadabilityLocal", text: text},
	}}

	out, err := plan.Run(context.Background(), Source{})
	require.NoError(t, err)
	assert.Equal(t, "ReadabilityLocal", out.ExtractionMethod)
}
