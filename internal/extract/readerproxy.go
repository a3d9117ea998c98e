package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// ReaderProxy delegates rendering to an external reader-mode proxy (e.g. a
// self-hosted "strip this page to text" service) before falling back to
// local extraction. If no ProxyURLTemplate is configured, this strategy
// always fails fast so the plan moves on to ReadabilityLocal.
type ReaderProxy struct {
	fetcher          strategyFetcher
	proxyURLTemplate string // e.g. "https://reader.internal/api?target=%s"
}

func NewReaderProxy(f strategyFetcher, proxyURLTemplate string) *ReaderProxy {
	return &ReaderProxy{fetcher: f, proxyURLTemplate: proxyURLTemplate}
}

func (r *ReaderProxy) Name() string { return "ReaderProxy" }

func (r *ReaderProxy) Extract(ctx context.Context, src Source) (string, error) {
	if r.proxyURLTemplate == "" {
		return "", fmt.Errorf("reader proxy not configured")
	}

	proxied := fmt.Sprintf(r.proxyURLTemplate, url.QueryEscape(src.Input.Href))
	result, err := r.fetcher.Get(ctx, proxied)
	if err != nil {
		return "", fmt.Errorf("reader proxy fetch: %w", err)
	}

	text := string(result.Bytes)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("reader proxy returned empty body")
	}
	return text, nil
}
