package translate

import (
	"context"
	"errors"
	"testing"

	"github.com/adcompliance/auditor/internal/llm"
	"github.com/adcompliance/auditor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	out string
	err error
}

func (s stubProvider) Complete(ctx context.Context, prompt string, opts llm.CompletionOptions) (string, error) {
	return s.out, s.err
}
func (s stubProvider) CompleteWithSystem(ctx context.Context, system, user string, opts llm.CompletionOptions) (string, error) {
	return s.out, s.err
}
func (s stubProvider) Embed(ctx context.Context, text string) ([]float32, error) { return nil, nil }
func (s stubProvider) Name() string                                             { return "stub" }
func (s stubProvider) SupportsEmbeddings() bool                                 { return false }

func TestTranslate_SkipsEnglish(t *testing.T) {
	tr := New(stubProvider{out: "should not be used"})
	out, err := tr.Translate(context.Background(), "hello world", models.LangEnglish)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestTranslate_RunsForHindi(t *testing.T) {
	tr := New(stubProvider{out: "This medicine cures disease."})
	out, err := tr.Translate(context.Background(), "यह दवा रोग ठीक करती है", models.LangHindi)
	require.NoError(t, err)
	assert.Equal(t, "This medicine cures disease.", out)
}

func TestTranslate_FailureIsNonFatal(t *testing.T) {
	tr := New(stubProvider{err: errors.New("provider down")})
	out, err := tr.Translate(context.Background(), "यह दवा रोग ठीक करती है", models.LangMixed)
	assert.Error(t, err)
	assert.Empty(t, out)
}
