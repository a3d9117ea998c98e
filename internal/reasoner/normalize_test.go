package reasoner

import (
	"encoding/json"
	"testing"

	"github.com/adcompliance/auditor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_StripsMarkdownFences(t *testing.T) {
	raw := "```json\n{\"score\": 80, \"status\": \"Non-Compliant\", \"violations\": [{\"severity\":\"high\",\"evidence\":\"cures everything\"}]}\n```"
	report := Normalize(raw)
	assert.Equal(t, 80, report.Score)
	assert.Equal(t, models.StatusNonCompliant, report.Status)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, models.SeverityHigh, report.Violations[0].Severity)
	assert.GreaterOrEqual(t, len(report.Violations[0].Guidance), 2)
	assert.GreaterOrEqual(t, len(report.Violations[0].Fix), 2)
}

func TestNormalize_BalancedBraceSliceWithNoise(t *testing.T) {
	raw := "Here is the analysis:\n{\"score\": 50, \"status\": \"Needs Review\", \"violations\": [],}\nThanks!"
	report := Normalize(raw)
	assert.Equal(t, models.StatusCompliant, report.Status) // empty violations forces Compliant/0
	assert.Equal(t, 0, report.Score)
}

func TestNormalize_FractionalScoreScaled(t *testing.T) {
	raw := `{"score": 0.42, "status": "Needs Review", "violations": [{"evidence":"x"}]}`
	report := Normalize(raw)
	assert.Equal(t, 42, report.Score)
}

func TestNormalize_ClampsOutOfRangeScore(t *testing.T) {
	raw := `{"score": 140, "status": "Needs Review", "violations": [{"evidence":"x"}]}`
	report := Normalize(raw)
	assert.Equal(t, 100, report.Score)
}

func TestNormalize_UnparseableInputYieldsShell(t *testing.T) {
	report := Normalize("not json at all")
	assert.Equal(t, models.StatusNeedsReview, report.Status)
	assert.Empty(t, report.Violations)
}

func TestNormalize_DefaultsRiskScoreFromSeverity(t *testing.T) {
	raw := `{"score": 60, "status": "Non-Compliant", "violations": [{"severity":"critical","evidence":"x"}]}`
	report := Normalize(raw)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, 90, report.Violations[0].RiskScore)
}

func TestNormalize_EmptyViolationsForcesCompliant(t *testing.T) {
	raw := `{"score": 77, "status": "Non-Compliant", "violations": []}`
	report := Normalize(raw)
	assert.Equal(t, models.StatusCompliant, report.Status)
	assert.Equal(t, 0, report.Score)
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := `{"score": 65, "status": "Non-Compliant", "summary": "test", "violations": [{"severity":"medium","regulation":"ASCI","violation_title":"x","evidence":"y","translation":"z","guidance":["a","b"],"fix":["c","d"],"risk_score":55}]}`
	once := Normalize(raw)

	encoded, err := json.Marshal(once)
	require.NoError(t, err)

	twice := Normalize(string(encoded))
	assert.Equal(t, once, twice)
}
