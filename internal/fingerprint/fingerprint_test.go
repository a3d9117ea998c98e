package fingerprint

import (
	"testing"

	"github.com/adcompliance/auditor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Text(t *testing.T) {
	kind, err := Classify(models.Input{Kind: models.InputText, Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, models.KindText, kind)
}

func TestClassify_EmptyText(t *testing.T) {
	_, err := Classify(models.Input{Kind: models.InputText, Body: "   "})
	assert.Error(t, err)
}

func TestClassify_URL(t *testing.T) {
	cases := []struct {
		name string
		href string
		want models.Kind
	}{
		{"youtube watch", "https://www.youtube.com/watch?v=abc123", models.KindYouTube},
		{"youtu.be short link", "https://youtu.be/abc123", models.KindYouTube},
		{"mp3 file", "https://cdn.example.com/ad.mp3", models.KindMediaURL},
		{"mp4 file", "https://cdn.example.com/spot.mp4", models.KindMediaURL},
		{"vimeo host", "https://vimeo.com/12345", models.KindMediaURL},
		{"blog page", "https://example.com/blog/post-1", models.KindWebPage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, err := Classify(models.Input{Kind: models.InputURL, Href: tc.href})
			require.NoError(t, err)
			assert.Equal(t, tc.want, kind)
		})
	}
}

func TestClassify_URL_RejectsNonHTTP(t *testing.T) {
	_, err := Classify(models.Input{Kind: models.InputURL, Href: "ftp://example.com/a"})
	assert.Error(t, err)
}

func TestClassify_File(t *testing.T) {
	cases := []struct {
		mime string
		want models.Kind
	}{
		{"image/png", models.KindImage},
		{"audio/mpeg", models.KindAudio},
		{"video/mp4", models.KindVideo},
		{"application/pdf", models.KindDocument},
		{"application/msword", models.KindDocument},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", models.KindDocument},
	}
	for _, tc := range cases {
		t.Run(tc.mime, func(t *testing.T) {
			kind, err := Classify(models.Input{Kind: models.InputFile, MIME: tc.mime})
			require.NoError(t, err)
			assert.Equal(t, tc.want, kind)
		})
	}
}

func TestClassify_File_Unsupported(t *testing.T) {
	_, err := Classify(models.Input{Kind: models.InputFile, MIME: "application/zip"})
	assert.Error(t, err)
}

func TestClassify_Idempotent(t *testing.T) {
	in := models.Input{Kind: models.InputURL, Href: "https://example.com/article"}
	k1, err1 := Classify(in)
	k2, err2 := Classify(in)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, k1, k2)
}
