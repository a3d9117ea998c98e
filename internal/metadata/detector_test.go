package metadata

import (
	"strings"
	"testing"

	"github.com/adcompliance/auditor/internal/models"
	"github.com/stretchr/testify/assert"
)

type stubClassifier struct {
	code string
	err  error
}

func (s stubClassifier) Detect(text string) (string, error) { return s.code, s.err }

func TestDetect_MixedScript(t *testing.T) {
	text := strings.Repeat("यह दवा रोग ठीक करती है ", 10) + strings.Repeat("this medicine works great ", 10)
	meta := Detect(text, models.SourceBlog, models.FormatArticle, "readability", nil)
	assert.Equal(t, models.LangMixed, meta.Language)
}

func TestDetect_Hindi(t *testing.T) {
	text := strings.Repeat("यह दवा रोग ठीक करती है और स्वास्थ्य में सुधार करती है ", 10)
	meta := Detect(text, models.SourceBlog, models.FormatArticle, "readability", nil)
	assert.Equal(t, models.LangHindi, meta.Language)
}

func TestDetect_ShortTextIsUnknown(t *testing.T) {
	meta := Detect("too short", models.SourceBlog, models.FormatArticle, "readability", nil)
	assert.Equal(t, models.LangUnknown, meta.Language)
}

func TestDetect_FallsBackToClassifier(t *testing.T) {
	text := strings.Repeat("word ", 40)
	meta := Detect(text, models.SourceBlog, models.FormatArticle, "readability", stubClassifier{code: "eng"})
	assert.Equal(t, models.LangEnglish, meta.Language)
}

func TestDetect_NoClassifierConfigured(t *testing.T) {
	text := strings.Repeat("word ", 40)
	meta := Detect(text, models.SourceBlog, models.FormatArticle, "readability", nil)
	assert.Equal(t, models.LangUnknown, meta.Language)
}

func TestDetect_UnmappedClassifierCode(t *testing.T) {
	text := strings.Repeat("word ", 40)
	meta := Detect(text, models.SourceBlog, models.FormatArticle, "readability", stubClassifier{code: "xyz"})
	assert.Equal(t, models.LangUnknown, meta.Language)
}
