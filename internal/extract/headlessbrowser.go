package extract

import (
	"context"
	"fmt"
)

// HeadlessBrowser is the feature-gated strategy for JS-rendered pages.
// No headless-browser driver is available in this module's dependency
// set, so this strategy re-fetches and re-renders through the same
// goquery/html-to-markdown pipeline as ReadabilityLocal; it exists as a
// distinct, config-gated step so a real driver (chromedp or similar) can
// be dropped in behind this interface without touching the strategy
// catalog or dispatcher.
type HeadlessBrowser struct {
	fetcher strategyFetcher
	enabled bool
}

func NewHeadlessBrowser(f strategyFetcher, enabled bool) *HeadlessBrowser {
	return &HeadlessBrowser{fetcher: f, enabled: enabled}
}

func (h *HeadlessBrowser) Name() string { return "HeadlessBrowser" }

func (h *HeadlessBrowser) Extract(ctx context.Context, src Source) (string, error) {
	if !h.enabled {
		return "", fmt.Errorf("headless browser strategy disabled")
	}
	result, err := h.fetcher.Get(ctx, src.Input.Href)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", src.Input.Href, err)
	}
	return renderMainContent(string(result.Bytes))
}
