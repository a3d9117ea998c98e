package extract

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
)

func youtubeVideoID(href string) (string, error) {
	u, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parsing youtube url: %w", err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "youtu.be" {
		return strings.Trim(u.Path, "/"), nil
	}
	if id := u.Query().Get("v"); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("could not extract video id from %s", href)
}

// CaptionTrack fetches the public timed-text caption track for a YouTube
// video; §4.10's first and cheapest YouTube strategy.
type CaptionTrack struct {
	fetcher strategyFetcher
}

func NewCaptionTrack(f strategyFetcher) *CaptionTrack {
	return &CaptionTrack{fetcher: f}
}

func (c *CaptionTrack) Name() string { return "CaptionTrack" }

type timedText struct {
	Texts []struct {
		Text string `xml:",chardata"`
	} `xml:"text"`
}

func (c *CaptionTrack) Extract(ctx context.Context, src Source) (string, error) {
	videoID, err := youtubeVideoID(src.Input.Href)
	if err != nil {
		return "", err
	}

	captionsURL := fmt.Sprintf("https://video.google.com/timedtext?lang=en&v=%s", url.QueryEscape(videoID))
	result, err := c.fetcher.Get(ctx, captionsURL)
	if err != nil {
		return "", fmt.Errorf("fetching caption track: %w", err)
	}
	if len(result.Bytes) == 0 {
		return "", fmt.Errorf("empty caption track")
	}

	var doc timedText
	if err := xml.Unmarshal(result.Bytes, &doc); err != nil {
		return "", fmt.Errorf("parsing caption track: %w", err)
	}
	if len(doc.Texts) == 0 {
		return "", fmt.Errorf("no caption cues found")
	}

	var b strings.Builder
	for _, cue := range doc.Texts {
		text := strings.TrimSpace(cue.Text)
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString(" ")
	}
	return strings.TrimSpace(b.String()), nil
}

// OEmbed fetches YouTube's public oEmbed metadata and the watch page's
// meta description concurrently, converging before returning — the §5
// example of independent I/O within a strategy running in parallel.
type OEmbed struct {
	fetcher strategyFetcher
}

func NewOEmbed(f strategyFetcher) *OEmbed {
	return &OEmbed{fetcher: f}
}

func (o *OEmbed) Name() string { return "OEmbed" }

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ProviderName string `json:"provider_name"`
}

func (o *OEmbed) Extract(ctx context.Context, src Source) (string, error) {
	type partial struct {
		text string
		err  error
	}

	oembedCh := make(chan partial, 1)
	descCh := make(chan partial, 1)

	go func() {
		oembedCh <- partial{text: o.fetchOEmbed(ctx, src.Input.Href)}
	}()
	go func() {
		descCh <- partial{text: o.fetchDescription(ctx, src.Input.Href)}
	}()

	oembedResult := <-oembedCh
	descResult := <-descCh

	var b strings.Builder
	if oembedResult.text != "" {
		b.WriteString(oembedResult.text)
		b.WriteString("\n")
	}
	if descResult.text != "" {
		b.WriteString(descResult.text)
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("no oembed metadata or description available")
	}
	return out, nil
}

func (o *OEmbed) fetchOEmbed(ctx context.Context, href string) string {
	endpoint := fmt.Sprintf("https://www.youtube.com/oembed?url=%s&format=json", url.QueryEscape(href))
	result, err := o.fetcher.Get(ctx, endpoint)
	if err != nil {
		return ""
	}
	var resp oembedResponse
	if err := json.Unmarshal(result.Bytes, &resp); err != nil {
		return ""
	}
	if resp.Title == "" {
		return ""
	}
	return fmt.Sprintf("Title: %s\nAuthor: %s\nProvider: %s", resp.Title, resp.AuthorName, resp.ProviderName)
}

func (o *OEmbed) fetchDescription(ctx context.Context, href string) string {
	result, err := o.fetcher.Get(ctx, href)
	if err != nil {
		return ""
	}
	meta, err := scanMetaTags(string(result.Bytes))
	if err != nil {
		return ""
	}
	return meta
}
