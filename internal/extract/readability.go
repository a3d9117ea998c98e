package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// noiseSelectors are stripped before locating the content container, per
// §4.3's noise list plus the teacher's own extras.
var noiseSelectors = []string{
	"script", "style", "noscript",
	"nav", "footer", "header", "aside",
	"img", "picture", "figure", "figcaption",
	"iframe", "video", "audio", "svg", "canvas",
	"form", "button", "input", "select", "textarea",
	".sidebar", ".menu", ".navigation", ".ads", ".advertisement",
	".advert", ".ad", ".sponsored", ".newsletter", ".cookie", ".banner",
}

// contentContainers is §4.3's literal container-selector list, tried in
// order until one matches.
var contentContainers = []string{"article", ".post-content", ".entry-content", ".content", ".main-content"}

// ReadabilityLocal strips noise elements and html-to-markdown renders the
// best-guess content container, entirely in-process (no third-party
// readability service).
type ReadabilityLocal struct {
	fetcher strategyFetcher
}

func NewReadabilityLocal(f strategyFetcher) *ReadabilityLocal {
	return &ReadabilityLocal{fetcher: f}
}

func (r *ReadabilityLocal) Name() string { return "ReadabilityLocal" }

func (r *ReadabilityLocal) Extract(ctx context.Context, src Source) (string, error) {
	result, err := r.fetcher.Get(ctx, src.Input.Href)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", src.Input.Href, err)
	}
	return renderMainContent(string(result.Bytes))
}

func renderMainContent(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}

	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	var content *goquery.Selection
	for _, tag := range contentContainers {
		sel := doc.Find(tag)
		if sel.Length() > 0 {
			content = sel.First()
			break
		}
	}
	if content == nil {
		return "", fmt.Errorf("no content container found")
	}

	fragment, err := goquery.OuterHtml(content)
	if err != nil {
		return "", fmt.Errorf("serializing content: %w", err)
	}

	markdown, err := htmltomarkdown.ConvertString(fragment)
	if err != nil {
		return "", fmt.Errorf("converting to markdown: %w", err)
	}
	return markdown, nil
}
