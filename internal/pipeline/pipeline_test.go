package pipeline

import (
	"context"
	"testing"

	"github.com/adcompliance/auditor/internal/claims"
	"github.com/adcompliance/auditor/internal/config"
	"github.com/adcompliance/auditor/internal/llm"
	"github.com/adcompliance/auditor/internal/models"
	"github.com/adcompliance/auditor/internal/reasoner"
	"github.com/adcompliance/auditor/internal/router"
	"github.com/adcompliance/auditor/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	out string
	err error
}

func (s *stubProvider) Complete(ctx context.Context, prompt string, opts llm.CompletionOptions) (string, error) {
	return s.out, s.err
}
func (s *stubProvider) CompleteWithSystem(ctx context.Context, system, user string, opts llm.CompletionOptions) (string, error) {
	return s.out, s.err
}
func (s *stubProvider) Embed(ctx context.Context, text string) ([]float32, error) { return nil, nil }
func (s *stubProvider) Name() string                                              { return "stub" }
func (s *stubProvider) SupportsEmbeddings() bool                                  { return false }

const cleanReport = `{
	"score": 70,
	"status": "Non-Compliant",
	"summary": "Exaggerated claims found.",
	"financialPenalty": {"riskLevel": "Medium", "description": "Possible fine."},
	"ethicalMarketing": {"score": 40, "assessment": "Manipulative urgency language."},
	"violations": [{
		"severity": "HIGH",
		"regulation": "DCGI Act",
		"violation_title": "Unsubstantiated cure claim",
		"evidence": "cures diabetes in 7 days",
		"guidance": ["Remove absolute cure claims", "Cite clinical evidence"],
		"fix": ["Rephrase with qualified language", "Add disclaimer"],
		"risk_score": 80
	}]
}`

func newTestPipeline(t *testing.T, provider llm.Provider) *Pipeline {
	t.Helper()
	repo := rules.New(t.TempDir())
	r := router.New(&config.LLMConfig{Model: "gpt-stub"}, provider, nil, 3000, 10000)
	adapter := reasoner.New(r, false)

	return New(Services{
		Rules:               repo,
		Reasoner:            adapter,
		Claims:              claims.New(10000),
		JurisdictionDefault: "India",
	})
}

func TestAudit_RejectsMissingUserID(t *testing.T) {
	p := newTestPipeline(t, &stubProvider{out: cleanReport})

	_, err := p.Audit(context.Background(), models.Input{
		Kind: models.InputText,
		Body: "Some ad copy",
	})
	assert.ErrorAs(t, err, new(*Unauthenticated))
}

func TestAudit_TextInputEndToEnd(t *testing.T) {
	p := newTestPipeline(t, &stubProvider{out: cleanReport})

	report, err := p.Audit(context.Background(), models.Input{
		Kind: models.InputText,
		Body: "Our supplement cures diabetes in just 7 days guaranteed, act now before the offer ends!",
		Options: models.Options{
			UserID:   "user-1",
			Category: "health",
			Country:  "India",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNonCompliant, report.Status)
	assert.Len(t, report.Violations, 1)
	assert.Equal(t, "gpt-stub", report.ModelUsed)
	assert.False(t, report.UsedFallback)
	assert.Greater(t, report.ProcessingTimeMs, -1)
}

func TestAudit_ReasonerFailureReturnsShellReport(t *testing.T) {
	p := newTestPipeline(t, &stubProvider{err: assert.AnError})

	report, err := p.Audit(context.Background(), models.Input{
		Kind: models.InputText,
		Body: "Plain ad copy with nothing unusual about it at all.",
		Options: models.Options{UserID: "user-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNeedsReview, report.Status)
	assert.NotEmpty(t, report.Error)
}

func TestContentTypeFor_CoversEveryKind(t *testing.T) {
	cases := map[models.Kind]models.ContentType{
		models.KindText:     models.ContentTypeText,
		models.KindWebPage:  models.ContentTypeWebPage,
		models.KindYouTube:  models.ContentTypeURL,
		models.KindMediaURL: models.ContentTypeURL,
		models.KindImage:    models.ContentTypeImage,
		models.KindVideo:    models.ContentTypeVideo,
		models.KindAudio:    models.ContentTypeAudio,
		models.KindDocument: models.ContentTypeDocument,
	}
	for kind, want := range cases {
		assert.Equal(t, want, contentTypeFor(kind))
	}
}

func TestSourceTypeFor_YouTubeIsDistinctFromWebPage(t *testing.T) {
	assert.Equal(t, models.SourceYouTube, sourceTypeFor(models.KindYouTube))
	assert.Equal(t, models.SourceBlog, sourceTypeFor(models.KindWebPage))
}
