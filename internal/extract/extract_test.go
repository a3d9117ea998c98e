package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/adcompliance/auditor/internal/config"
	"github.com/adcompliance/auditor/internal/fetch"
	"github.com/adcompliance/auditor/internal/models"
	"github.com/adcompliance/auditor/internal/pipelineconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMainContent_PrefersArticleOverNav(t *testing.T) {
	html := `<html><body><nav>Home About Contact</nav><article><p>The quick brown fox jumps over the lazy dog repeatedly.</p></article></body></html>`
	out, err := renderMainContent(html)
	require.NoError(t, err)
	assert.Contains(t, out, "quick brown fox")
	assert.NotContains(t, out, "Home About Contact")
}

func TestRenderMainContent_NoContainerFails(t *testing.T) {
	_, err := renderMainContent(`<html><head></head></html>`)
	assert.Error(t, err)
}

func TestScanMetaTags_ExtractsTitleAndDescription(t *testing.T) {
	html := `<html><head><title>Miracle Cure</title><meta name="description" content="Cures everything in 7 days"></head><body></body></html>`
	out, err := scanMetaTags(html)
	require.NoError(t, err)
	assert.Contains(t, out, "Title: Miracle Cure")
	assert.Contains(t, out, "Description: Cures everything in 7 days")
}

func TestExtractEmbeddedPDFText_FindsTjOperators(t *testing.T) {
	pdf := []byte(`1 0 obj << >> stream BT /F1 12 Tf (Hello World) Tj ET endstream endobj`)
	text := extractEmbeddedPDFText(pdf)
	assert.Contains(t, text, "Hello World")
}

func TestYoutubeVideoID_Formats(t *testing.T) {
	cases := map[string]string{
		"https://www.youtube.com/watch?v=abc123": "abc123",
		"https://youtu.be/xyz789":                "xyz789",
	}
	for href, want := range cases {
		got, err := youtubeVideoID(href)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestCatalog_PlanForEachKind(t *testing.T) {
	catalog := NewCatalog(fetch.New(), config.CapabilityConfig{}, &pipelineconfig.PipelineConfig{
		OCRLanguages: "eng+hin", MinPDFChars: 500, MaxPDFPages: 25,
	})

	plan, err := catalog.PlanFor(models.KindWebPage, "")
	require.NoError(t, err)
	assert.Equal(t, "ReaderProxy", plan.Strategies[0].Name())
	assert.Equal(t, "MetadataOnly", plan.Strategies[len(plan.Strategies)-1].Name())

	plan, err = catalog.PlanFor(models.KindYouTube, "")
	require.NoError(t, err)
	assert.Equal(t, "CaptionTrack", plan.Strategies[0].Name())

	plan, err = catalog.PlanFor(models.KindImage, "")
	require.NoError(t, err)
	assert.Equal(t, "ImageOCR", plan.Strategies[0].Name())

	plan, err = catalog.PlanFor(models.KindDocument, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "PdfTextThenOCR", plan.Strategies[0].Name())

	plan, err = catalog.PlanFor(models.KindText, "")
	require.NoError(t, err)
	assert.Empty(t, plan.Strategies)
}

func TestPdfTextThenOCR_FallsBackToSingleWholeDocumentOCRCall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"scanned page text"}`))
	}))
	defer srv.Close()

	ocr := NewOCRClient(srv.URL, "", "eng")
	// Three /Type/Page markers simulate a multi-page scanned PDF (§8 S5).
	pdf := []byte("%PDF-1.4\n/Type /Page\n/Type /Page\n/Type /Page\n")
	strategy := NewPdfTextThenOCR(ocr, 500, 25)

	out, err := strategy.Extract(context.Background(), Source{Input: models.Input{FileBytes: pdf, Filename: "scan.pdf"}})
	require.NoError(t, err)
	assert.Contains(t, out, "scanned page text")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

type stubStrategyFetcher struct {
	bodies map[string][]byte
}

func (s stubStrategyFetcher) Get(ctx context.Context, url string) (*fetch.Result, error) {
	if b, ok := s.bodies[url]; ok {
		return &fetch.Result{Bytes: b, MIME: "text/html"}, nil
	}
	return nil, assert.AnError
}

func TestReadabilityLocal_ExtractsArticleOverNav(t *testing.T) {
	href := "https://example.com/ad"
	html := `<html><body><nav>Home About Contact</nav><article><p>Our supplement cures everything in days.</p></article></body></html>`
	strategy := NewReadabilityLocal(stubStrategyFetcher{bodies: map[string][]byte{href: []byte(html)}})

	out, err := strategy.Extract(context.Background(), Source{Input: models.Input{Href: href}})
	require.NoError(t, err)
	assert.Contains(t, out, "cures everything")
	assert.NotContains(t, out, "Home About Contact")
}

func TestReadabilityLocal_FetchErrorPropagates(t *testing.T) {
	strategy := NewReadabilityLocal(stubStrategyFetcher{bodies: map[string][]byte{}})

	_, err := strategy.Extract(context.Background(), Source{Input: models.Input{Href: "https://example.com/missing"}})
	assert.Error(t, err)
}
