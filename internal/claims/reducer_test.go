package claims

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReduce_ShortInputPassesThrough(t *testing.T) {
	r := New(10000)
	input := "This product is nice."
	assert.Equal(t, input, r.Reduce(input))
}

func TestReduce_ExtractsClaimSentences(t *testing.T) {
	r := New(10000)
	filler := strings.Repeat("This paragraph has nothing to do with anything relevant here. ", 50)
	input := filler + "This medicine cures the disease in 7 days. " + filler
	out := r.Reduce(input)
	assert.Contains(t, out, "This medicine cures the disease in 7 days")
	assert.Less(t, len(out), len(input))
}

func TestReduce_FallsBackWhenNoMatches(t *testing.T) {
	r := New(10000)
	filler := strings.Repeat("Nothing notable happens in this sentence at all. ", 60)
	out := r.Reduce(filler)
	assert.True(t, len(out) <= 10000)
	assert.True(t, strings.HasPrefix(filler, out[:20]))
}

func TestReduce_RespectsConfiguredCap(t *testing.T) {
	r := New(50)
	filler := strings.Repeat("Nothing notable happens in this sentence at all. ", 60)
	out := r.Reduce(filler)
	assert.LessOrEqual(t, len([]rune(out)), 50)
}
