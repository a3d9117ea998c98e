package extract

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// MetadataOnly is the last-resort WebPage strategy (§4.10, glossary
// "Metadata-only degradation"): it scans <title> and <meta> tags when
// nothing else could render the body.
type MetadataOnly struct {
	fetcher strategyFetcher
}

func NewMetadataOnly(f strategyFetcher) *MetadataOnly {
	return &MetadataOnly{fetcher: f}
}

func (m *MetadataOnly) Name() string { return "MetadataOnly" }

func (m *MetadataOnly) Extract(ctx context.Context, src Source) (string, error) {
	result, err := m.fetcher.Get(ctx, src.Input.Href)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", src.Input.Href, err)
	}

	meta, err := scanMetaTags(string(result.Bytes))
	if err != nil {
		return "", err
	}
	if meta == "" {
		return "", fmt.Errorf("no usable metadata found")
	}
	return meta, nil
}

func scanMetaTags(rawHTML string) (string, error) {
	tokenizer := html.NewTokenizer(strings.NewReader(rawHTML))

	var b strings.Builder
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return b.String(), nil
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := tokenizer.Token()
			switch tok.Data {
			case "title":
				if tt == html.StartTagToken {
					tokenizer.Next()
					text := strings.TrimSpace(tokenizer.Token().Data)
					if text != "" {
						fmt.Fprintf(&b, "Title: %s\n", text)
					}
				}
			case "meta":
				name := attr(tok, "name")
				property := attr(tok, "property")
				content := strings.TrimSpace(attr(tok, "content"))
				if content == "" {
					continue
				}
				switch {
				case name == "description", property == "og:description":
					fmt.Fprintf(&b, "Description: %s\n", content)
				case property == "og:title":
					fmt.Fprintf(&b, "Title: %s\n", content)
				case name == "keywords":
					fmt.Fprintf(&b, "Keywords: %s\n", content)
				}
			}
		}
	}
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
