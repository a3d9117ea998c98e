// Package translate produces an English semantic rendering of non-English
// content so the reasoner receives English text for Hindi/mixed-script
// input whenever translation succeeds (§4.7).
package translate

import (
	"context"
	"fmt"

	"github.com/adcompliance/auditor/internal/llm"
	"github.com/adcompliance/auditor/internal/models"
)

const (
	maxInputChars = 10000
	temperature   = 0.0
	maxTokens     = 1500
)

const systemPrompt = `You translate marketing and health-claim text into plain English.
Preserve medical terminology and the precise phrasing of any claims being made.
Output plain text only. Do not summarize, explain, or add commentary.`

// Translator renders non-English cleaned text into English via a Provider.
type Translator struct {
	provider llm.Provider
}

func New(provider llm.Provider) *Translator {
	return &Translator{provider: provider}
}

// Translate runs only for models.LangHindi / models.LangMixed content per
// the caller's routing decision (§4.12 step 5). Failure is non-fatal: the
// caller proceeds with an empty translation.
func (t *Translator) Translate(ctx context.Context, cleaned string, language models.Language) (string, error) {
	if language != models.LangHindi && language != models.LangMixed {
		return "", nil
	}

	input := cleaned
	if runes := []rune(input); len(runes) > maxInputChars {
		input = string(runes[:maxInputChars])
	}

	out, err := t.provider.CompleteWithSystem(ctx, systemPrompt, input, llm.CompletionOptions{
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("translation failed: %w", err)
	}
	return out, nil
}
