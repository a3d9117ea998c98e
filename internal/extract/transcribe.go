package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
)

// Transcriber calls the external speech-to-text collaborator (§6:
// "Credentials for the reasoner/transcriber/OCR are provided via an
// external CredentialsProvider interface"). The concrete vendor is out
// of scope; this is a thin adapter over its HTTP surface.
type Transcriber struct {
	url        string
	key        string
	httpClient *http.Client
}

func NewTranscriber(url, key string) *Transcriber {
	return &Transcriber{url: url, key: key, httpClient: &http.Client{Timeout: TranscribeTimeout}}
}

type transcribeResponse struct {
	Text string `json:"text"`
}

func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if t.url == "" {
		return "", fmt.Errorf("no transcriber configured")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", filename)
	if err != nil {
		return "", fmt.Errorf("building transcriber request: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("writing audio payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, &body)
	if err != nil {
		return "", fmt.Errorf("building transcriber request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if t.key != "" {
		req.Header.Set("Authorization", "Bearer "+t.key)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling transcriber: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("transcriber returned status %d", resp.StatusCode)
	}

	var parsed transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding transcriber response: %w", err)
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return "", fmt.Errorf("transcriber returned empty text")
	}
	return parsed.Text, nil
}

// TranscribeAudio runs for Audio/Video uploads and MediaURL sources:
// fetch (or use the uploaded bytes directly) then transcribe.
type TranscribeAudio struct {
	fetcher     strategyFetcher
	transcriber *Transcriber
}

func NewTranscribeAudio(f strategyFetcher, t *Transcriber) *TranscribeAudio {
	return &TranscribeAudio{fetcher: f, transcriber: t}
}

func (t *TranscribeAudio) Name() string { return "TranscribeAudio" }

func (t *TranscribeAudio) Extract(ctx context.Context, src Source) (string, error) {
	audio := src.Input.FileBytes
	filename := src.Input.Filename

	if len(audio) == 0 && src.Input.Href != "" {
		result, err := t.fetcher.Get(ctx, src.Input.Href)
		if err != nil {
			return "", fmt.Errorf("fetching media: %w", err)
		}
		audio = result.Bytes
		filename = "media"
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("no audio payload available")
	}

	return t.transcriber.Transcribe(ctx, audio, filename)
}

// AudioDownloadThenTranscribe is YouTube's fallback when captions and
// oEmbed both fail: download audio, then transcribe it, releasing the
// temp file on every exit path.
type AudioDownloadThenTranscribe struct {
	downloader  *AudioDownloader
	transcriber *Transcriber
}

func NewAudioDownloadThenTranscribe(d *AudioDownloader, t *Transcriber) *AudioDownloadThenTranscribe {
	return &AudioDownloadThenTranscribe{downloader: d, transcriber: t}
}

func (a *AudioDownloadThenTranscribe) Name() string { return "AudioDownloaderThenTranscribe" }

func (a *AudioDownloadThenTranscribe) Extract(ctx context.Context, src Source) (string, error) {
	path, cleanup, err := a.downloader.Download(ctx, src.Input.Href)
	if err != nil {
		return "", err
	}
	defer cleanup()

	audio, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading downloaded audio: %w", err)
	}

	return a.transcriber.Transcribe(ctx, audio, "audio.m4a")
}
