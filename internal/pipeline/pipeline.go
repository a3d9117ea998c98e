// Package pipeline wires the fingerprint, extract, clean, validate,
// metadata, translate, claims, router and reasoner stages into the single
// top-level Audit(Input, Options) -> Report operation, per §4.12.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/adcompliance/auditor/internal/claims"
	"github.com/adcompliance/auditor/internal/database"
	"github.com/adcompliance/auditor/internal/extract"
	"github.com/adcompliance/auditor/internal/fetch"
	"github.com/adcompliance/auditor/internal/fingerprint"
	"github.com/adcompliance/auditor/internal/metadata"
	"github.com/adcompliance/auditor/internal/metrics"
	"github.com/adcompliance/auditor/internal/models"
	"github.com/adcompliance/auditor/internal/reasoner"
	"github.com/adcompliance/auditor/internal/rules"
	"github.com/adcompliance/auditor/internal/translate"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Unauthenticated is returned when options.UserID is absent, per §6's
// "the pipeline requires a userId in options" contract.
type Unauthenticated struct{}

func (e *Unauthenticated) Error() string { return "unauthenticated: userId is required" }

// Services bundles the process-wide singletons the Pipeline depends on:
// the reasoner's model clients (via Adapter), the extractor catalog's
// transcriber/OCR/downloader (via Catalog), the rule repository, and the
// audit store. All are safe for concurrent use across requests (§5).
type Services struct {
	Fetcher    *fetch.Fetcher
	Catalog    *extract.Catalog
	Rules      *rules.Repository
	Reasoner   *reasoner.Adapter
	Classifier metadata.Classifier
	Store      database.Store
	Claims     *claims.Reducer

	JurisdictionDefault string
}

// reportCache is the subset of *database.CachingStore the pipeline needs
// for document-hash dedup; Store satisfies it only when the caller wired
// a CachingStore, so the dedup path is skipped entirely otherwise.
type reportCache interface {
	GetCachedReport(ctx context.Context, inputHash string) (models.Report, bool, error)
	CacheReport(ctx context.Context, inputHash string, report models.Report)
}

// Pipeline runs the full Audit operation.
type Pipeline struct {
	services Services
}

// New constructs a Pipeline over a fully wired Services bundle.
func New(services Services) *Pipeline {
	return &Pipeline{services: services}
}

// Audit runs the ten-step §4.12 contract: classify, load rules, extract,
// detect metadata, translate if needed, reduce claims, call the reasoner,
// normalize, persist best-effort, and return the Report.
func (p *Pipeline) Audit(ctx context.Context, input models.Input) (models.Report, error) {
	start := time.Now()

	if input.Options.UserID == "" {
		return models.Report{}, &Unauthenticated{}
	}

	jurisdiction := input.Options.Country
	if jurisdiction == "" {
		jurisdiction = p.services.JurisdictionDefault
	}

	cache, cacheable := p.services.Store.(reportCache)
	inputHash := dedupHash(input)
	if cacheable && inputHash != "" {
		if cached, hit, err := cache.GetCachedReport(ctx, inputHash); err != nil {
			log.Warn().Err(err).Msg("dedup cache lookup failed, proceeding without it")
		} else if hit {
			metrics.RecordPipelineRun("cached", "cache_hit", time.Since(start).Seconds())
			return cached, nil
		}
	}

	kind, err := fingerprint.Classify(input)
	if err != nil {
		metrics.RecordPipelineRun("unknown", "classify_failed", time.Since(start).Seconds())
		return models.Report{}, fmt.Errorf("classifying input: %w", err)
	}

	rulePack, err := p.services.Rules.Get(input.Options.Country, input.Options.Region, input.Options.Category)
	if err != nil {
		metrics.RecordPipelineRun(string(kind), "rules_failed", time.Since(start).Seconds())
		return models.Report{}, fmt.Errorf("loading rule pack: %w", err)
	}

	extracted, err := p.extractContent(ctx, kind, input)
	if err != nil {
		metrics.RecordPipelineRun(string(kind), "extract_failed", time.Since(start).Seconds())
		return models.Report{}, fmt.Errorf("extracting content: %w", err)
	}
	if len(extracted.ValidationWarnings) > 0 || len(extracted.ValidationReasons) > 0 {
		log.Info().
			Strs("warnings", extracted.ValidationWarnings).
			Strs("reasons", extracted.ValidationReasons).
			Bool("metadataOnly", extracted.MetadataOnly).
			Msg("extracted content carries validator signal")
	}

	meta := metadata.Detect(extracted.Cleaned, extracted.SourceType, extracted.ContentFormat, extracted.ExtractionMethod, p.services.Classifier)
	extracted.Language = meta.Language

	reducerInput := extracted.Cleaned
	translated, translateErr := p.translateIfNeeded(ctx, extracted.Cleaned, meta.Language)
	if translateErr != nil {
		log.Warn().Err(translateErr).Msg("translation failed, proceeding with original text")
	} else if translated != "" {
		extracted.Translated = translated
		reducerInput = translated
	}

	reduced := p.services.Claims.Reduce(reducerInput)

	result, reasonErr := p.services.Reasoner.Run(ctx, reduced, rulePack, meta, input.Options.AnalysisMode, input.Options.Category, jurisdiction)
	var report models.Report
	if reasonErr != nil {
		log.Error().Err(reasonErr).Msg("reasoner unrecoverable, returning shell report")
		report = reasoner.Normalize("")
		report.ModelUsed = "none"
		report.Error = reasonErr.Error()
		report.Message = "Automated analysis is temporarily unavailable. Please try again later."
	} else {
		report = result.Report
	}
	report.ProcessingTimeMs = int(time.Since(start).Milliseconds())

	p.saveBestEffort(ctx, input, kind, extracted, report)

	if cacheable && inputHash != "" && reasonErr == nil {
		cache.CacheReport(ctx, inputHash, report)
	}

	metrics.RecordPipelineRun(string(kind), "succeeded", time.Since(start).Seconds())
	return report, nil
}

// dedupHash fingerprints an Input's payload together with the options that
// change what rule pack applies, so the same ad copy audited under two
// different jurisdictions never collides in the cache. Empty for inputs
// with nothing byte-stable to hash (none today, but URL/File could one day
// carry volatile headers).
func dedupHash(input models.Input) string {
	var payload []byte
	switch input.Kind {
	case models.InputText:
		payload = []byte(input.Body)
	case models.InputURL:
		payload = []byte(input.Href)
	case models.InputFile:
		payload = input.FileBytes
	}
	if len(payload) == 0 {
		return ""
	}
	key := fmt.Sprintf("%s|%s|%s|%s", input.Options.Country, input.Options.Region, input.Options.Category, input.Options.AnalysisMode)
	return database.FingerprintInput(append(payload, []byte(key)...))
}

func (p *Pipeline) extractContent(ctx context.Context, kind models.Kind, input models.Input) (models.ExtractedContent, error) {
	if kind == models.KindText {
		return models.ExtractedContent{
			Raw:              input.Body,
			Cleaned:          input.Body,
			SourceType:       models.SourceUpload,
			ContentFormat:    models.FormatArticle,
			ExtractionMethod: "direct_text",
		}, nil
	}

	mime := input.MIME
	plan, err := p.services.Catalog.PlanFor(kind, mime)
	if err != nil {
		return models.ExtractedContent{}, err
	}
	if len(plan.Strategies) == 0 {
		return models.ExtractedContent{}, fmt.Errorf("no extraction strategy available for kind %q", kind)
	}

	src := extract.Source{Input: input, Fetcher: p.services.Fetcher}
	extracted, err := plan.Run(ctx, src)
	if err != nil {
		return models.ExtractedContent{}, err
	}

	extracted.SourceType = sourceTypeFor(kind)
	extracted.ContentFormat = contentFormatFor(kind)
	return extracted, nil
}

func sourceTypeFor(kind models.Kind) models.SourceType {
	switch kind {
	case models.KindYouTube:
		return models.SourceYouTube
	case models.KindMediaURL, models.KindAudio, models.KindVideo:
		return models.SourceMedia
	case models.KindDocument, models.KindImage:
		return models.SourceUpload
	default:
		return models.SourceBlog
	}
}

func contentFormatFor(kind models.Kind) models.ContentFormat {
	switch kind {
	case models.KindYouTube, models.KindAudio, models.KindVideo, models.KindMediaURL:
		return models.FormatSpeech
	default:
		return models.FormatArticle
	}
}

func (p *Pipeline) translateIfNeeded(ctx context.Context, cleaned string, language models.Language) (string, error) {
	if language != models.LangHindi && language != models.LangMixed {
		return "", nil
	}
	translator := translate.New(p.services.Reasoner.Router.Primary)
	return translator.Translate(ctx, cleaned, language)
}

func (p *Pipeline) saveBestEffort(ctx context.Context, input models.Input, kind models.Kind, extracted models.ExtractedContent, report models.Report) {
	if p.services.Store == nil {
		return
	}
	record := &models.AuditRecord{
		ID:            uuid.New().String(),
		UserID:        input.Options.UserID,
		ContentType:   contentTypeFor(kind),
		OriginalInput: originalInputFor(input),
		ExtractedText: extracted.Cleaned,
		Transcript:    transcriptFor(extracted),
		Report:        report,
		CreatedAt:     time.Now().UTC(),

		MetadataOnly:       extracted.MetadataOnly,
		ValidationWarnings: extracted.ValidationWarnings,
	}
	if err := p.services.Store.SaveAudit(ctx, record); err != nil {
		log.Warn().Err(err).Str("auditId", record.ID).Msg("failed to persist audit record, continuing")
	}
}

func contentTypeFor(kind models.Kind) models.ContentType {
	switch kind {
	case models.KindText:
		return models.ContentTypeText
	case models.KindWebPage:
		return models.ContentTypeWebPage
	case models.KindYouTube, models.KindMediaURL:
		return models.ContentTypeURL
	case models.KindImage:
		return models.ContentTypeImage
	case models.KindVideo:
		return models.ContentTypeVideo
	case models.KindAudio:
		return models.ContentTypeAudio
	case models.KindDocument:
		return models.ContentTypeDocument
	default:
		return models.ContentTypeText
	}
}

func originalInputFor(input models.Input) string {
	switch input.Kind {
	case models.InputText:
		return input.Body
	case models.InputURL:
		return input.Href
	case models.InputFile:
		return input.Filename
	}
	return ""
}

func transcriptFor(extracted models.ExtractedContent) string {
	if extracted.ContentFormat == models.FormatSpeech {
		return extracted.Raw
	}
	return ""
}
