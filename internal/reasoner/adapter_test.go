package reasoner

import (
	"context"
	"errors"
	"testing"

	"github.com/adcompliance/auditor/internal/llm"
	"github.com/adcompliance/auditor/internal/metadata"
	"github.com/adcompliance/auditor/internal/models"
	"github.com/adcompliance/auditor/internal/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedProvider struct {
	name string
	out  string
	err  error
}

func (s scriptedProvider) Complete(ctx context.Context, prompt string, opts llm.CompletionOptions) (string, error) {
	return s.out, s.err
}
func (s scriptedProvider) CompleteWithSystem(ctx context.Context, system, user string, opts llm.CompletionOptions) (string, error) {
	return s.out, s.err
}
func (s scriptedProvider) Embed(ctx context.Context, text string) ([]float32, error) { return nil, nil }
func (s scriptedProvider) Name() string                                             { return s.name }
func (s scriptedProvider) SupportsEmbeddings() bool                                 { return false }

func testMeta() metadata.ContentMetadata {
	return metadata.ContentMetadata{SourceType: models.SourceBlog, ContentFormat: models.FormatArticle, Language: models.LangEnglish, ExtractionMethod: "readability"}
}

func TestAdapter_PrimarySuccess(t *testing.T) {
	primary := scriptedProvider{name: "primary", out: `{"score":70,"status":"Non-Compliant","violations":[{"severity":"high","evidence":"x"}]}`}
	r := &router.Router{Primary: primary, PrimaryModel: "gpt-test", ShortThreshold: 3000, LongThreshold: 10000}
	a := New(r, false)

	result, err := a.Run(context.Background(), "reduced content", nil, testMeta(), "standard", "health", "India")
	require.NoError(t, err)
	assert.False(t, result.UsedFallback)
	assert.Equal(t, "gpt-test", result.ModelUsed)
	assert.Len(t, result.Report.Violations, 1)
}

func TestAdapter_FallsBackOnPrimaryFailure(t *testing.T) {
	primary := scriptedProvider{name: "primary", err: errors.New("upstream 500")}
	fallback := scriptedProvider{name: "fallback", out: `{"score":60,"status":"Non-Compliant","violations":[{"severity":"high","evidence":"x"}]}`}
	r := &router.Router{Primary: primary, PrimaryModel: "primary-model", Fallback: fallback, FallbackModel: "fallback-model", ShortThreshold: 3000, LongThreshold: 10000}
	a := New(r, false)

	result, err := a.Run(context.Background(), "reduced content", nil, testMeta(), "standard", "health", "India")
	require.NoError(t, err)
	assert.True(t, result.UsedFallback)
	assert.Equal(t, "fallback-model", result.ModelUsed)
}

func TestAdapter_UnrecoverableWhenNoFallback(t *testing.T) {
	primary := scriptedProvider{name: "primary", err: errors.New("upstream 500")}
	r := &router.Router{Primary: primary, PrimaryModel: "primary-model", ShortThreshold: 3000, LongThreshold: 10000}
	a := New(r, false)

	_, err := a.Run(context.Background(), "reduced content", nil, testMeta(), "standard", "health", "India")
	assert.Error(t, err)
	var unrecoverable *ReasonerUnrecoverable
	assert.ErrorAs(t, err, &unrecoverable)
}

func TestAdapter_UnrecoverableWhenBothFail(t *testing.T) {
	primary := scriptedProvider{name: "primary", err: errors.New("upstream 500")}
	fallback := scriptedProvider{name: "fallback", err: errors.New("also down")}
	r := &router.Router{Primary: primary, PrimaryModel: "primary-model", Fallback: fallback, FallbackModel: "fallback-model", ShortThreshold: 3000, LongThreshold: 10000}
	a := New(r, false)

	_, err := a.Run(context.Background(), "reduced content", nil, testMeta(), "standard", "health", "India")
	assert.Error(t, err)
}

func TestAdapter_FailSafeRerunSupersedesEmptyResult(t *testing.T) {
	calls := 0
	primary := &sequencedProvider{
		outputs: []string{
			`{"score":95,"status":"Compliant","violations":[]}`,
			`{"score":80,"status":"Non-Compliant","violations":[{"severity":"high","evidence":"y"}]}`,
		},
		calls: &calls,
	}
	r := &router.Router{Primary: primary, PrimaryModel: "primary-model", ShortThreshold: 3000, LongThreshold: 10000}
	a := New(r, true)

	result, err := a.Run(context.Background(), "reduced content", nil, testMeta(), "standard", "health", "India")
	require.NoError(t, err)
	assert.Len(t, result.Report.Violations, 1)
	assert.Equal(t, 2, calls)
}

type sequencedProvider struct {
	outputs []string
	calls   *int
}

func (s *sequencedProvider) Complete(ctx context.Context, prompt string, opts llm.CompletionOptions) (string, error) {
	return s.next(), nil
}
func (s *sequencedProvider) CompleteWithSystem(ctx context.Context, system, user string, opts llm.CompletionOptions) (string, error) {
	return s.next(), nil
}
func (s *sequencedProvider) Embed(ctx context.Context, text string) ([]float32, error) { return nil, nil }
func (s *sequencedProvider) Name() string                                             { return "sequenced" }
func (s *sequencedProvider) SupportsEmbeddings() bool                                 { return false }

func (s *sequencedProvider) next() string {
	idx := *s.calls
	*s.calls++
	if idx >= len(s.outputs) {
		return s.outputs[len(s.outputs)-1]
	}
	return s.outputs[idx]
}
