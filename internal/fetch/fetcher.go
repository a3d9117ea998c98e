// Package fetch performs bounded HTTP GETs on behalf of the extractor
// family: user-agent rotation, timeouts, size caps, MIME sniffing and
// transient-failure backoff, per spec §4.2 and §5.
package fetch

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the per-call deadline (§5).
	DefaultTimeout = 60 * time.Second

	// MaxMediaSize caps the response body (§4.2); overridable via
	// pipelineconfig.PipelineConfig.MaxMediaSize.
	MaxMediaSize = 100 * 1024 * 1024

	maxRetries   = 3
	backoffBase  = 800 * time.Millisecond
	backoffFactor = 2
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
}

// FetchTimeout is returned when a call exceeds its deadline.
type FetchTimeout struct{ URL string }

func (e *FetchTimeout) Error() string { return fmt.Sprintf("fetch timeout: %s", e.URL) }

// FetchHTTP is returned for a non-2xx response.
type FetchHTTP struct {
	URL    string
	Status int
}

func (e *FetchHTTP) Error() string { return fmt.Sprintf("fetch http %d: %s", e.Status, e.URL) }

// FetchNetwork wraps a lower-level transport error.
type FetchNetwork struct {
	URL string
	Err error
}

func (e *FetchNetwork) Error() string { return fmt.Sprintf("fetch network error for %s: %v", e.URL, e.Err) }
func (e *FetchNetwork) Unwrap() error { return e.Err }

// PayloadTooLarge is returned when the response body exceeds MaxMediaSize.
type PayloadTooLarge struct {
	URL   string
	Limit int64
}

func (e *PayloadTooLarge) Error() string {
	return fmt.Sprintf("payload too large (> %d bytes): %s", e.Limit, e.URL)
}

// Result is the fetched body plus the sniffed MIME type.
type Result struct {
	Bytes []byte
	MIME  string
}

// Fetcher performs bounded HTTP GETs. A single instance is a process-wide
// singleton shared across requests (§5): it is safe for concurrent calls.
type Fetcher struct {
	client      *http.Client
	maxBodySize int64
	limiters    *hostLimiters
}

// New creates a Fetcher with the spec's default timeout and size cap.
func New() *Fetcher {
	return &Fetcher{
		client:      &http.Client{Timeout: DefaultTimeout},
		maxBodySize: MaxMediaSize,
		limiters:    newHostLimiters(),
	}
}

// WithMaxBodySize overrides the size cap, e.g. from PipelineConfig.MaxMediaSize.
func (f *Fetcher) WithMaxBodySize(n int64) *Fetcher {
	f.maxBodySize = n
	return f
}

// Get performs a bounded GET with retry-with-backoff on transient failures.
// 4xx other than 429 is never retried; 403 specifically is surfaced
// immediately so the strategy layer (not this layer) picks a fallback.
func (f *Fetcher) Get(ctx context.Context, url string) (*Result, error) {
	if err := f.limiters.wait(ctx, url); err != nil {
		return nil, err
	}

	var lastErr error
	backoff := backoffBase
	for attempt := 0; attempt <= maxRetries; attempt++ {
		res, err := f.attempt(ctx, url)
		if err == nil {
			return res, nil
		}

		var httpErr *FetchHTTP
		if ok := asFetchHTTP(err, &httpErr); ok {
			if httpErr.Status == http.StatusTooManyRequests || httpErr.Status >= 500 {
				lastErr = err
				if attempt < maxRetries {
					if slept := sleepOrCancel(ctx, backoff); !slept {
						return nil, ctx.Err()
					}
					backoff *= backoffFactor
					continue
				}
				break
			}
			// Any other 4xx (incl. 403) is non-retriable.
			return nil, err
		}

		// Network error / timeout: retry with backoff.
		lastErr = err
		if attempt < maxRetries {
			if slept := sleepOrCancel(ctx, backoff); !slept {
				return nil, ctx.Err()
			}
			backoff *= backoffFactor
			continue
		}
	}
	return nil, lastErr
}

func (f *Fetcher) attempt(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", randomUserAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		if te, ok := err.(interface{ Timeout() bool }); ctx.Err() != nil || (ok && te.Timeout()) {
			return nil, &FetchTimeout{URL: url}
		}
		return nil, &FetchNetwork{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchHTTP{URL: url, Status: resp.StatusCode}
	}

	limited := io.LimitReader(resp.Body, f.maxBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, &FetchNetwork{URL: url, Err: err}
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, &PayloadTooLarge{URL: url, Limit: f.maxBodySize}
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(body)
	}

	return &Result{Bytes: body, MIME: mime}, nil
}

func randomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

func asFetchHTTP(err error, target **FetchHTTP) bool {
	if he, ok := err.(*FetchHTTP); ok {
		*target = he
		return true
	}
	return false
}

func sleepOrCancel(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// hostLimiters throttles outbound requests per host so a single extractor
// attempt cannot hammer one origin; shared process-wide like Fetcher itself,
// so access is guarded by a mutex.
type hostLimiters struct {
	mu     sync.Mutex
	byHost map[string]*rate.Limiter
}

func newHostLimiters() *hostLimiters {
	return &hostLimiters{byHost: make(map[string]*rate.Limiter)}
}

func (h *hostLimiters) wait(ctx context.Context, rawURL string) error {
	limiter := h.limiterFor(rawURL)
	return limiter.Wait(ctx)
}

func (h *hostLimiters) limiterFor(rawURL string) *rate.Limiter {
	host := hostOf(rawURL)

	h.mu.Lock()
	defer h.mu.Unlock()
	if l, ok := h.byHost[host]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Every(100*time.Millisecond), 5)
	h.byHost[host] = l
	return l
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
