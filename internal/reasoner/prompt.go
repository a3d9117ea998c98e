package reasoner

import (
	"fmt"
	"strings"

	"github.com/adcompliance/auditor/internal/metadata"
	"github.com/adcompliance/auditor/internal/models"
)

const topRulesListed = 50

const jsonSchema = `{
  "score": <integer 0-100>,
  "status": "Compliant" | "Needs Review" | "Non-Compliant",
  "summary": "<string>",
  "financialPenalty": {"riskLevel": "None"|"Low"|"Medium"|"High", "description": "<string>"},
  "ethicalMarketing": {"score": <integer 0-100>, "assessment": "<string>"},
  "violations": [
    {
      "severity": "CRITICAL"|"HIGH"|"MEDIUM"|"LOW",
      "regulation": "<string>",
      "violation_title": "<string>",
      "evidence": "<verbatim quoted source text>",
      "translation": "<string>",
      "guidance": ["<string>", "<string>", "..."],
      "fix": ["<string>", "<string>", "..."],
      "risk_score": <integer 0-100>
    }
  ]
}`

// buildSystemPrompt assembles the auditor-role instruction, the
// jurisdiction, the top-K rule pack entries, and the output contract.
func buildSystemPrompt(rules []models.Rule, jurisdiction, category, analysisMode string, lang models.Language) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a regulatory compliance auditor reviewing marketing and advertising content for jurisdiction %q, category %q, analysis mode %q.\n\n", jurisdiction, category, analysisMode)
	b.WriteString("Applicable rules (ordinal. regulation — title):\n")

	limit := len(rules)
	if limit > topRulesListed {
		limit = topRulesListed
	}
	for i := 0; i < limit; i++ {
		rule := rules[i]
		if rule.Section != "" {
			fmt.Fprintf(&b, "%d. %s §%s — %s\n", i+1, rule.Regulation, rule.Section, rule.Title)
		} else {
			fmt.Fprintf(&b, "%d. %s — %s\n", i+1, rule.Regulation, rule.Title)
		}
	}

	b.WriteString("\nOutput contract:\n")
	b.WriteString("- Respond with JSON only, matching the schema below exactly. No markdown fences, no commentary.\n")
	b.WriteString("- Every violation must include at least 2 guidance entries and at least 2 full-rewrite fix entries.\n")
	b.WriteString("- evidence must quote the source content verbatim.\n")

	if lang == models.LangHindi || lang == models.LangMixed {
		b.WriteString("- All user-visible strings (violation_title, evidence, translation, guidance, fix, summary, assessment) must be written in the source content's language, EXCEPT regulation names, which remain in English.\n")
	}

	b.WriteString("\nJSON schema:\n")
	b.WriteString(jsonSchema)

	return b.String()
}

func buildStrictRerunSuffix() string {
	return "\n\nCarefully re-analyze and detect ANY misleading or prohibited healthcare claims, even subtle ones. The prior pass found none; treat that as suspicious, not as confirmation of compliance."
}

func metaContext(meta metadata.ContentMetadata) string {
	return fmt.Sprintf("[source_type=%s format=%s extraction_method=%s language=%s]\n", meta.SourceType, meta.ContentFormat, meta.ExtractionMethod, meta.Language)
}
