// Package clean normalizes raw extracted text into cleaned text, conservatively:
// it never discards paragraph content, only navigation/boilerplate noise.
package clean

import (
	"regexp"
	"strings"
)

// navTermsPattern matches the short boilerplate phrases spec §4.4 names.
var navTermsPattern = regexp.MustCompile(`(?i)\b(home|about|contact|privacy|terms|cookie|subscribe|newsletter|sign in|sign up|login|register|follow|share|advert|sponsored|related posts|comments|categories|tags|sidebar)\b`)

// sidebarPattern matches the secondary short-line noise set.
var sidebarPattern = regexp.MustCompile(`(?i)\b(popular|recent|recommended|archive|newsletter|share)\b`)

const (
	shortLineThreshold = 90
	longLineThreshold  = 120
)

var whitespaceRun = regexp.MustCompile(`[ \t]+`)

// Clean normalizes line endings, collapses intra-line whitespace, drops
// empty lines, and drops short boilerplate lines — while never touching a
// line at or above longLineThreshold, since long lines are always paragraph
// content (§4.4).
func Clean(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")

	seen := make(map[string]bool)
	var kept []string

	for _, line := range lines {
		line = whitespaceRun.ReplaceAllString(strings.TrimSpace(line), " ")
		if line == "" {
			continue
		}

		// Long lines are always paragraph content: never dropped, never deduped.
		if len(line) >= longLineThreshold {
			kept = append(kept, line)
			continue
		}

		if len(line) < shortLineThreshold {
			if isNoise(line) {
				continue
			}
			key := strings.ToLower(line)
			if seen[key] {
				continue
			}
			seen[key] = true
			kept = append(kept, line)
			continue
		}

		kept = append(kept, line)
	}

	return strings.Join(kept, "\n")
}

func isNoise(line string) bool {
	return navTermsPattern.MatchString(line) || sidebarPattern.MatchString(line)
}
