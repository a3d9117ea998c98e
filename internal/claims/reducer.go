// Package claims reduces long text to its claim-bearing subset before it
// reaches the reasoner, per §4.8. Unlike the teacher's LLM-based claim
// extraction, this reduction is regex-based: a cheap pre-filter, not an
// analysis step.
package claims

import (
	"regexp"
	"strings"
)

// ReduceThreshold is the input length above which reduction triggers.
const ReduceThreshold = 2000

var claimPattern = regexp.MustCompile(`(?i)\b(cure|treat|heal|prevent|medicine|drug|treatment|therapy|effective|works|improves|boosts|better|best|faster|stronger)\b|\d+\s*%|in \d+ days`)

var sentenceSplit = regexp.MustCompile(`(?:[.!?]+\s+|\n+)`)

// Reducer extracts claim-bearing sentences from text, capping the fallback
// slice at maxContentForAI (MAX_CONTENT_FOR_AI, §6) instead of a fixed const
// so an operator override actually takes effect.
type Reducer struct {
	maxContentForAI int
}

// New constructs a Reducer bounded by maxContentForAI.
func New(maxContentForAI int) *Reducer {
	return &Reducer{maxContentForAI: maxContentForAI}
}

// Reduce extracts claim-bearing sentences from input. If none match, it
// returns the first maxContentForAI characters verbatim.
func (r *Reducer) Reduce(input string) string {
	if len([]rune(input)) <= ReduceThreshold {
		return input
	}

	var matched []string
	for _, sentence := range sentenceSplit.Split(input, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if claimPattern.MatchString(sentence) {
			matched = append(matched, sentence)
		}
	}

	if len(matched) == 0 {
		return r.cap(input)
	}

	return r.cap(strings.Join(matched, ". "))
}

func (r *Reducer) cap(s string) string {
	runes := []rune(s)
	if len(runes) > r.maxContentForAI {
		runes = runes[:r.maxContentForAI]
	}
	return string(runes)
}
