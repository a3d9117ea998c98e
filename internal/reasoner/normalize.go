package reasoner

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/adcompliance/auditor/internal/models"
)

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

type rawViolation struct {
	Severity       interface{} `json:"severity"`
	Regulation     interface{} `json:"regulation"`
	ViolationTitle interface{} `json:"violation_title"`
	Evidence       interface{} `json:"evidence"`
	Translation    interface{} `json:"translation"`
	Guidance       []string    `json:"guidance"`
	Fix            []string    `json:"fix"`
	RiskScore      interface{} `json:"risk_score"`
}

type rawReport struct {
	Score            interface{}         `json:"score"`
	Status           string               `json:"status"`
	Summary          string               `json:"summary"`
	Transcription    string               `json:"transcription"`
	FinancialPenalty *rawFinancialPenalty `json:"financialPenalty"`
	EthicalMarketing *rawEthicalMarketing `json:"ethicalMarketing"`
	Violations       []rawViolation       `json:"violations"`
}

type rawFinancialPenalty struct {
	RiskLevel   string `json:"riskLevel"`
	Description string `json:"description"`
}

type rawEthicalMarketing struct {
	Score      interface{} `json:"score"`
	Assessment string      `json:"assessment"`
}

// Normalize turns arbitrary model output into a valid Report, per §4.11.
// It never returns an error: unparseable input becomes a minimal shell
// with status "Needs Review", per the "never crash" contract.
func Normalize(raw string) models.Report {
	repaired, ok := repairJSON(raw)
	if !ok {
		return shellReport()
	}

	if !validateReportShape(repaired) {
		return shellReport()
	}

	var parsed rawReport
	if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
		return shellReport()
	}

	report := models.Report{
		Status:  coerceStatus(parsed.Status),
		Summary: coerceSummary(parsed.Summary),
	}
	report.Score = coerceScore(parsed.Score)
	report.Transcription = parsed.Transcription
	report.FinancialPenalty = coerceFinancialPenalty(parsed.FinancialPenalty)
	report.EthicalMarketing = coerceEthicalMarketing(parsed.EthicalMarketing)
	report.Violations = coerceViolations(parsed.Violations)

	if len(report.Violations) == 0 {
		report.Status = models.StatusCompliant
		report.Score = 0
	}

	return report
}

func shellReport() models.Report {
	return models.Report{
		Score:            0,
		Status:           models.StatusNeedsReview,
		Summary:          "Summary unavailable.",
		FinancialPenalty: models.FinancialPenalty{RiskLevel: models.RiskLow, Description: "Unable to assess financial penalty risk."},
		EthicalMarketing: models.EthicalMarketing{Score: 0, Assessment: "Unable to assess."},
		Violations:       []models.Violation{},
	}
}

// repairJSON implements the two-pass strategy: strip Markdown fences if
// present, otherwise slice from the first '{' to its matching '}' using a
// string-escape-aware depth tracker, then drop trailing commas.
func repairJSON(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)

	if m := fencePattern.FindStringSubmatch(raw); m != nil {
		return trailingComma.ReplaceAllString(strings.TrimSpace(m[1]), "$1"), true
	}

	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}
	end := matchingBrace(raw, start)
	if end < 0 {
		return "", false
	}
	sliced := raw[start : end+1]
	return trailingComma.ReplaceAllString(sliced, "$1"), true
}

// matchingBrace returns the index of the '}' matching the '{' at start,
// aware of string literals and escape sequences so braces inside quoted
// strings are not counted.
func matchingBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func coerceScore(v interface{}) int {
	f, ok := asFloat(v)
	if !ok {
		return 0
	}
	if f > 0 && f <= 1 {
		f *= 100
	}
	score := int(math.Round(f))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func coerceStatus(status string) models.Status {
	switch models.Status(status) {
	case models.StatusCompliant, models.StatusNeedsReview, models.StatusNonCompliant:
		return models.Status(status)
	default:
		return models.StatusNeedsReview
	}
}

func coerceSummary(summary string) string {
	if strings.TrimSpace(summary) == "" {
		return "Summary unavailable."
	}
	return summary
}

func coerceFinancialPenalty(fp *rawFinancialPenalty) models.FinancialPenalty {
	if fp == nil {
		return models.FinancialPenalty{RiskLevel: models.RiskLow, Description: "No financial penalty assessment provided."}
	}
	level := models.RiskLevel(fp.RiskLevel)
	switch level {
	case models.RiskNone, models.RiskLow, models.RiskMedium, models.RiskHigh:
	default:
		level = models.RiskLow
	}
	desc := fp.Description
	if strings.TrimSpace(desc) == "" {
		desc = "No financial penalty assessment provided."
	}
	return models.FinancialPenalty{RiskLevel: level, Description: desc}
}

func coerceEthicalMarketing(em *rawEthicalMarketing) models.EthicalMarketing {
	if em == nil {
		return models.EthicalMarketing{Score: 0, Assessment: "No ethical marketing assessment provided."}
	}
	score := coerceScore(em.Score)
	assessment := em.Assessment
	if strings.TrimSpace(assessment) == "" {
		assessment = "No ethical marketing assessment provided."
	}
	return models.EthicalMarketing{Score: score, Assessment: assessment}
}

func coerceViolations(raws []rawViolation) []models.Violation {
	out := make([]models.Violation, 0, len(raws))
	for _, rv := range raws {
		out = append(out, coerceViolation(rv))
	}
	return out
}

func coerceViolation(rv rawViolation) models.Violation {
	v := models.Violation{
		Severity:       coerceSeverity(rv.Severity),
		Regulation:     coerceStringField(rv.Regulation, "Unspecified regulation"),
		ViolationTitle: coerceStringField(rv.ViolationTitle, "Unspecified violation"),
		Evidence:       coerceStringField(rv.Evidence, "[evidence unavailable]"),
		Translation:    coerceStringField(rv.Translation, ""),
		Guidance:       padStrings(rv.Guidance, 2, "[guidance unavailable]"),
		Fix:            padStrings(rv.Fix, 2, "[FIX PLACEHOLDER — review required]"),
	}
	v.RiskScore = coerceRiskScore(rv.RiskScore, v.Severity)
	return v
}

func coerceSeverity(v interface{}) models.Severity {
	s, _ := asString(v)
	s = strings.ToUpper(strings.TrimSpace(s))
	switch models.Severity(s) {
	case models.SeverityCritical, models.SeverityHigh, models.SeverityMedium, models.SeverityLow:
		return models.Severity(s)
	default:
		return models.SeverityMedium
	}
}

func coerceStringField(v interface{}, fallback string) string {
	s, ok := asString(v)
	if !ok || strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func coerceRiskScore(v interface{}, severity models.Severity) int {
	f, ok := asFloat(v)
	if !ok {
		return defaultRiskScore(severity)
	}
	score := int(math.Round(f))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func defaultRiskScore(severity models.Severity) int {
	switch severity {
	case models.SeverityCritical:
		return 90
	case models.SeverityHigh:
		return 70
	case models.SeverityMedium:
		return 50
	default:
		return 30
	}
}

func padStrings(items []string, min int, placeholder string) []string {
	out := append([]string{}, items...)
	for len(out) < min {
		out = append(out, placeholder)
	}
	return out
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func asString(v interface{}) (string, bool) {
	switch n := v.(type) {
	case string:
		return n, true
	case nil:
		return "", false
	default:
		b, err := json.Marshal(n)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}
