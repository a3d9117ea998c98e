package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func paragraph(words int) string {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = "word"
	}
	return strings.Join(parts, " ")
}

func TestValidate_TooShort(t *testing.T) {
	result := Validate("too short")
	assert.False(t, result.IsValid)
	assert.NotEmpty(t, result.Reasons)
}

func TestValidate_SufficientProse(t *testing.T) {
	line := paragraph(15)
	var lines []string
	for i := 0; i < 60; i++ {
		lines = append(lines, line)
	}
	text := strings.Join(lines, "\n")
	result := Validate(text)
	assert.True(t, result.IsValid)
	assert.False(t, result.HeadingHeavy)
}

func TestValidate_HeadingHeavyBelowFloor(t *testing.T) {
	var lines []string
	for i := 0; i < 200; i++ {
		lines = append(lines, "Short Title")
	}
	text := strings.Join(lines, "\n")
	result := Validate(text)
	assert.True(t, result.HeadingHeavy)
	assert.False(t, result.IsValid)
}

func TestValidate_TruncationSuspected(t *testing.T) {
	line := paragraph(15)
	var lines []string
	for i := 0; i < 60; i++ {
		lines = append(lines, line)
	}
	text := strings.Join(lines, "\n") + " continue reading..."
	result := Validate(text)
	assert.True(t, result.TruncatedSuspected)
}

func TestEnforceContentLossGuard_WithinBudget(t *testing.T) {
	raw := strings.Repeat("x", 1000)
	cleaned := strings.Repeat("x", 650)
	assert.NoError(t, EnforceContentLossGuard(raw, cleaned))
}

func TestEnforceContentLossGuard_TripsOverBudget(t *testing.T) {
	raw := strings.Repeat("x", 1000)
	cleaned := strings.Repeat("x", 500)
	err := EnforceContentLossGuard(raw, cleaned)
	assert.Error(t, err)
	var lossErr *CleaningLoss
	assert.ErrorAs(t, err, &lossErr)
}

func TestEnforceContentLossGuard_EmptyRaw(t *testing.T) {
	assert.NoError(t, EnforceContentLossGuard("", ""))
}
