// Package models defines the core data structures shared across the audit pipeline.
package models

import "time"

// InputKind is the tag of an Input's underlying payload.
type InputKind string

const (
	InputText InputKind = "text"
	InputURL  InputKind = "url"
	InputFile InputKind = "file"
)

// Input is a tagged union over the three ways content reaches the pipeline.
type Input struct {
	Kind InputKind

	// Text payload, set when Kind == InputText.
	Body string

	// URL payload, set when Kind == InputURL.
	Href string

	// File payload, set when Kind == InputFile.
	FileBytes []byte
	Filename  string
	MIME      string

	Options Options
}

// Options carries the per-request settings that shape routing and rule selection.
type Options struct {
	UserID        string
	Category      string
	Country       string
	Region        string
	AnalysisMode  string
}

// Kind classifies an Input into the strategy dispatch categories.
type Kind string

const (
	KindText     Kind = "text"
	KindWebPage  Kind = "webpage"
	KindYouTube  Kind = "youtube"
	KindMediaURL Kind = "media_url"
	KindImage    Kind = "image"
	KindAudio    Kind = "audio"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

// Rule is one regulatory rule loaded read-only from a rule pack.
type Rule struct {
	ID               string   `json:"id"`
	Regulation       string   `json:"regulation"`
	Section          string   `json:"section,omitempty"`
	Title            string   `json:"title"`
	JurisdictionPath []string `json:"jurisdictionPath"`
}

// RulePack is an ordered, filtered list of rules for one (country, region, category) triple.
type RulePack struct {
	Country  string
	Region   string
	Category string
	Rules    []Rule
}

// SourceType classifies where ExtractedContent's text came from.
type SourceType string

const (
	SourceBlog       SourceType = "blog"
	SourceYouTube    SourceType = "youtube"
	SourceMedia      SourceType = "media"
	SourceUpload     SourceType = "upload"
	SourceTranscript SourceType = "transcript"
)

// ContentFormat distinguishes written from spoken content.
type ContentFormat string

const (
	FormatArticle ContentFormat = "article"
	FormatSpeech  ContentFormat = "speech"
)

// Language is the ISO-2 (or sentinel) language tag MetadataDetector assigns.
type Language string

const (
	LangEnglish Language = "en"
	LangHindi   Language = "hi"
	LangMixed   Language = "mixed"
	LangUnknown Language = "unknown"
	LangUrdu    Language = "ur"
	LangPunjabi Language = "pa"
	LangBengali Language = "bn"
)

// ExtractedContent is the enrichable record that flows through cleaning,
// detection, translation and claim reduction before the reasoner call.
type ExtractedContent struct {
	Raw               string
	Cleaned           string
	Translated        string
	SourceType        SourceType
	ContentFormat     ContentFormat
	ExtractionMethod  string
	Language          Language
	MetadataOnly      bool

	// ValidationWarnings and ValidationReasons carry the Validator's
	// sufficiency signal through to the audit record; a failed Validate
	// is advisory, not fatal, so the strategy that produced this content
	// may still have been accepted.
	ValidationWarnings []string
	ValidationReasons  []string
}

// RiskLevel is a coarse risk rating used by the financial-penalty assessment.
type RiskLevel string

const (
	RiskNone   RiskLevel = "None"
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Status is the overall compliance verdict of a Report.
type Status string

const (
	StatusCompliant    Status = "Compliant"
	StatusNeedsReview  Status = "Needs Review"
	StatusNonCompliant Status = "Non-Compliant"
)

// Severity ranks a single Violation.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// FinancialPenalty is the report's regulatory-exposure estimate.
type FinancialPenalty struct {
	RiskLevel   RiskLevel `json:"riskLevel"`
	Description string    `json:"description"`
}

// EthicalMarketing is the report's separate ethics-of-persuasion score.
type EthicalMarketing struct {
	Score      int    `json:"score"`
	Assessment string `json:"assessment"`
}

// Violation is one cited regulatory breach with evidence and remediation.
type Violation struct {
	Severity        Severity `json:"severity"`
	Regulation      string   `json:"regulation"`
	ViolationTitle  string   `json:"violation_title"`
	Evidence        string   `json:"evidence"`
	Translation     string   `json:"translation"`
	Guidance        []string `json:"guidance"`
	Fix             []string `json:"fix"`
	RiskScore       int      `json:"risk_score"`
}

// Report is the canonical output of one audit.
type Report struct {
	Score             int              `json:"score"`
	Status            Status           `json:"status"`
	Summary           string           `json:"summary"`
	Transcription     string           `json:"transcription"`
	FinancialPenalty  FinancialPenalty `json:"financialPenalty"`
	EthicalMarketing  EthicalMarketing `json:"ethicalMarketing"`
	Violations        []Violation      `json:"violations"`
	ModelUsed         string           `json:"modelUsed"`
	UsedFallback      bool             `json:"usedFallback"`
	ProcessingTimeMs  int              `json:"processingTimeMs"`

	// Error is set only on the ReasonerUnrecoverable shell; omitted otherwise.
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ContentType enumerates the kinds an AuditRecord can describe.
type ContentType string

const (
	ContentTypeText     ContentType = "text"
	ContentTypeURL      ContentType = "url"
	ContentTypeWebPage  ContentType = "webpage"
	ContentTypeImage    ContentType = "image"
	ContentTypeVideo    ContentType = "video"
	ContentTypeAudio    ContentType = "audio"
	ContentTypeDocument ContentType = "document"
)

// AuditRecord is the opaque-to-core record handed to AuditStore.Save.
type AuditRecord struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	ContentType    ContentType `json:"contentType"`
	OriginalInput  string      `json:"originalInput"`
	ExtractedText  string      `json:"extractedText"`
	Transcript     string      `json:"transcript"`
	Report         Report      `json:"auditResult"`
	CreatedAt      time.Time   `json:"createdAt"`

	// MetadataOnly and ValidationWarnings echo the Validator's signal on
	// the extraction that produced ExtractedText, for later review.
	MetadataOnly       bool     `json:"metadataOnly,omitempty"`
	ValidationWarnings []string `json:"validationWarnings,omitempty"`
}

// APIKey is the external auth boundary's credential record (unchanged concern
// from the teacher, repurposed to gate /api/v1/audit instead of /verify).
type APIKey struct {
	ID                string     `json:"id"`
	KeyHash           string     `json:"-"`
	Name              string     `json:"name"`
	RequestsPerMinute int        `json:"requests_per_minute"`
	TokensPerDay      int        `json:"tokens_per_day"`
	CreatedAt         time.Time  `json:"created_at"`
	LastUsedAt        *time.Time `json:"last_used_at,omitempty"`
}

// AuditLog is an HTTP-request-level audit trail entry (distinct from the
// compliance AuditRecord above), kept from the teacher's schema.
type AuditLog struct {
	ID           string    `json:"id"`
	APIKeyID     string    `json:"api_key_id"`
	Endpoint     string    `json:"endpoint"`
	Method       string    `json:"method"`
	RequestSize  int64     `json:"request_size"`
	ResponseCode int       `json:"response_code"`
	DurationMs   int64     `json:"duration_ms"`
	Timestamp    time.Time `json:"timestamp"`
}
