// Package metadata detects source language and script mix and tags
// content with its source type, format, and extraction method (§4.6).
package metadata

import (
	"unicode"

	"github.com/adcompliance/auditor/internal/models"
)

const (
	mixedDevanagariFloor = 0.15
	mixedLatinFloor      = 0.15
	hindiDevanagariFloor = 0.20
	unknownLengthFloor   = 80
	classifierWindow     = 6000
)

// ContentMetadata is the MetadataDetector's output.
type ContentMetadata struct {
	SourceType        models.SourceType
	ContentFormat     models.ContentFormat
	Language          models.Language
	ExtractionMethod  string
}

// Classifier runs a natural-language classifier over a text window and
// returns an ISO-639-2 code (e.g. "hin", "eng"). Implementations wrap a
// real detector; satisfied in tests by a stub.
type Classifier interface {
	Detect(text string) (string, error)
}

var iso2 = map[string]models.Language{
	"hin": models.LangHindi,
	"eng": models.LangEnglish,
	"urd": models.LangUrdu,
	"pan": models.LangPunjabi,
	"ben": models.LangBengali,
}

// Detect implements §4.6's script-ratio cascade, falling back to a
// Classifier for texts the ratios cannot resolve. classifier may be nil,
// in which case an unresolved text is tagged LangUnknown.
func Detect(cleaned string, sourceType models.SourceType, format models.ContentFormat, method string, classifier Classifier) ContentMetadata {
	lang := detectLanguage(cleaned, classifier)
	return ContentMetadata{
		SourceType:       sourceType,
		ContentFormat:    format,
		Language:         lang,
		ExtractionMethod: method,
	}
}

func detectLanguage(text string, classifier Classifier) models.Language {
	nonWhitespace := 0
	devanagari := 0
	latin := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		nonWhitespace++
		switch {
		case r >= 0x0900 && r <= 0x097F:
			devanagari++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
		}
	}

	if nonWhitespace == 0 {
		return models.LangUnknown
	}

	devanagariRatio := float64(devanagari) / float64(nonWhitespace)
	latinRatio := float64(latin) / float64(nonWhitespace)

	if devanagariRatio > mixedDevanagariFloor && latinRatio > mixedLatinFloor {
		return models.LangMixed
	}
	if devanagariRatio > hindiDevanagariFloor {
		return models.LangHindi
	}
	if len([]rune(text)) < unknownLengthFloor {
		return models.LangUnknown
	}

	if classifier == nil {
		return models.LangUnknown
	}

	window := text
	if runes := []rune(text); len(runes) > classifierWindow {
		window = string(runes[:classifierWindow])
	}
	code, err := classifier.Detect(window)
	if err != nil {
		return models.LangUnknown
	}
	if lang, ok := iso2[code]; ok {
		return lang
	}
	return models.LangUnknown
}
