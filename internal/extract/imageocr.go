package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// OCRClient calls the external OCR collaborator (§6), vendor out of scope.
type OCRClient struct {
	url        string
	key        string
	languages  string
	httpClient *http.Client
}

func NewOCRClient(url, key, languages string) *OCRClient {
	return &OCRClient{url: url, key: key, languages: languages, httpClient: &http.Client{Timeout: 60 * time.Second}}
}

type ocrResponse struct {
	Text string `json:"text"`
}

func (o *OCRClient) Recognize(ctx context.Context, image []byte, filename string) (string, error) {
	if o.url == "" {
		return "", fmt.Errorf("no OCR service configured")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("languages", o.languages); err != nil {
		return "", fmt.Errorf("building OCR request: %w", err)
	}
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("building OCR request: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("writing image payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, &body)
	if err != nil {
		return "", fmt.Errorf("building OCR request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if o.key != "" {
		req.Header.Set("Authorization", "Bearer "+o.key)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling OCR service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("OCR service returned status %d", resp.StatusCode)
	}

	var parsed ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding OCR response: %w", err)
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return "", fmt.Errorf("OCR returned empty text")
	}
	return parsed.Text, nil
}

// ImageOCR runs OCR over an uploaded image (§4.10).
type ImageOCR struct {
	ocr *OCRClient
}

func NewImageOCR(ocr *OCRClient) *ImageOCR {
	return &ImageOCR{ocr: ocr}
}

func (i *ImageOCR) Name() string { return "ImageOCR" }

func (i *ImageOCR) Extract(ctx context.Context, src Source) (string, error) {
	if len(src.Input.FileBytes) == 0 {
		return "", fmt.Errorf("no image bytes provided")
	}
	return i.ocr.Recognize(ctx, src.Input.FileBytes, src.Input.Filename)
}
