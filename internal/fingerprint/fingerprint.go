// Package fingerprint classifies an Input into the strategy dispatch kind
// the rest of the pipeline routes on.
package fingerprint

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/adcompliance/auditor/internal/models"
)

// mediaExtensions is the media-file extension set from spec §4.1.
var mediaExtensions = map[string]bool{
	".mp3": true, ".mp4": true, ".wav": true, ".m4a": true, ".aac": true,
	".ogg": true, ".flac": true, ".webm": true, ".mov": true, ".avi": true,
	".mkv": true, ".flv": true,
}

// videoPlatformHosts are known video hosts classified as MediaURL even
// without a recognized file extension in the path.
var videoPlatformHosts = map[string]bool{
	"vimeo.com": true, "dailymotion.com": true, "www.dailymotion.com": true,
}

var youtubeHosts = map[string]bool{
	"youtube.com": true, "www.youtube.com": true, "youtu.be": true, "m.youtube.com": true,
}

// UnsupportedInput is returned when no fingerprint rule matches.
type UnsupportedInput struct {
	Reason string
}

func (e *UnsupportedInput) Error() string {
	return fmt.Sprintf("unsupported input: %s", e.Reason)
}

// Classify is a total function over the declared input set (§8 property 4):
// classifying the same Input twice always yields the same Kind.
func Classify(in models.Input) (models.Kind, error) {
	switch in.Kind {
	case models.InputText:
		if strings.TrimSpace(in.Body) == "" {
			return "", &UnsupportedInput{Reason: "empty text body"}
		}
		return models.KindText, nil

	case models.InputURL:
		return classifyURL(in.Href)

	case models.InputFile:
		return classifyMIME(in.MIME)
	}
	return "", &UnsupportedInput{Reason: "unrecognized input kind"}
}

func classifyURL(href string) (models.Kind, error) {
	u, err := url.Parse(href)
	if err != nil {
		return "", &UnsupportedInput{Reason: "malformed URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &UnsupportedInput{Reason: "non-http(s) scheme"}
	}

	host := strings.ToLower(u.Hostname())
	if youtubeHosts[host] {
		return models.KindYouTube, nil
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if mediaExtensions[ext] || videoPlatformHosts[host] {
		return models.KindMediaURL, nil
	}

	return models.KindWebPage, nil
}

func classifyMIME(mime string) (models.Kind, error) {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch {
	case strings.HasPrefix(mime, "image/"):
		return models.KindImage, nil
	case strings.HasPrefix(mime, "audio/"):
		return models.KindAudio, nil
	case strings.HasPrefix(mime, "video/"):
		return models.KindVideo, nil
	case mime == "application/pdf",
		mime == "application/msword",
		mime == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return models.KindDocument, nil
	}
	return "", &UnsupportedInput{Reason: fmt.Sprintf("unsupported MIME type %q", mime)}
}
