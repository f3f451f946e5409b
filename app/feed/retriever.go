package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Retrieval tiers, in cascade order.
const (
	TierDirect    = "direct"
	TierHTTP      = "http"
	TierBrowser   = "browser"
	TierHTTPRetry = "http-retry"
)

const (
	directTimeout = 15 * time.Second
	// One initial call plus two retries for transient failures.
	directAttempts   = 3
	directRetryDelay = 1 * time.Second
	rawTimeout       = 20 * time.Second
	feedAcceptHeader = "application/rss+xml, application/xml, text/xml, application/atom+xml, */*"
)

var errNoEntries = errors.New("feed contains no entries")

// Strategy is a single retrieval tier: given a URL it either produces
// a parsed feed or fails, leaving the cascade to move on.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, url string) (*Parsed, error)
}

// PageRenderer renders a URL in a headless browser and returns the
// captured document as a string. Implemented by the browser package.
type PageRenderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Attempt records the outcome of one strategy invocation, making each
// tier of the cascade independently observable.
type Attempt struct {
	Tier     string
	Err      error
	Duration time.Duration
}

// AttemptRecorder receives every attempt the retriever makes. Used for
// fetch diagnostics; a nil recorder disables recording.
type AttemptRecorder func(url string, attempt Attempt)

// FetchError is returned when every tier of the cascade failed.
type FetchError struct {
	URL      string
	LastErr  error
	Attempts []Attempt
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("all retrieval strategies failed for %s: %v", e.URL, e.LastErr)
}

func (e *FetchError) Unwrap() error {
	return e.LastErr
}

// Retriever fetches a single source URL through cascading strategies:
// direct feed parsing, raw HTTP, headless-browser rendering, and one
// final raw HTTP attempt when the browser itself was blocked.
type Retriever struct {
	strategies []Strategy
	// blockedRetry runs once more after the browser tier fails with a
	// client-blocked network error.
	blockedRetry Strategy
	recorder     AttemptRecorder
}

func NewRetriever(userAgent string, renderer PageRenderer, recorder AttemptRecorder) *Retriever {
	parser := NewParser()
	raw := &rawHTTPStrategy{
		parser:    parser,
		userAgent: userAgent,
		client:    &http.Client{Timeout: rawTimeout},
	}

	strategies := []Strategy{
		&directStrategy{
			userAgent:  userAgent,
			client:     &http.Client{Timeout: directTimeout},
			retryDelay: directRetryDelay,
		},
		raw,
	}
	if renderer != nil {
		strategies = append(strategies, &browserStrategy{parser: parser, renderer: renderer})
	}

	return &Retriever{
		strategies:   strategies,
		blockedRetry: raw,
		recorder:     recorder,
	}
}

// NewRetrieverWithStrategies builds a retriever over an explicit
// strategy list. The last strategy is treated as the browser tier for
// the client-blocked retry rule when blockedRetry is non-nil.
func NewRetrieverWithStrategies(recorder AttemptRecorder, blockedRetry Strategy, strategies ...Strategy) *Retriever {
	return &Retriever{
		strategies:   strategies,
		blockedRetry: blockedRetry,
		recorder:     recorder,
	}
}

// Retrieve runs the cascade until a strategy yields a feed with at
// least one entry. When every tier fails a *FetchError carrying all
// attempts is returned.
func (r *Retriever) Retrieve(ctx context.Context, url string) (*Parsed, error) {
	var attempts []Attempt
	var lastErr error

	run := func(s Strategy, tier string) (*Parsed, error) {
		start := time.Now()
		parsed, err := s.Fetch(ctx, url)
		if err == nil && (parsed == nil || len(parsed.Entries) == 0) {
			err = errNoEntries
		}
		attempt := Attempt{Tier: tier, Err: err, Duration: time.Since(start)}
		attempts = append(attempts, attempt)
		if r.recorder != nil {
			r.recorder(url, attempt)
		}
		return parsed, err
	}

	for _, s := range r.strategies {
		parsed, err := run(s, s.Name())
		if err == nil {
			return parsed, nil
		}
		lastErr = err

		// A browser blocked by the client (ad-block style network
		// interception) is worth one last plain HTTP attempt.
		if s.Name() == TierBrowser && r.blockedRetry != nil && IsBlockedByClient(err) {
			parsed, retryErr := run(r.blockedRetry, TierHTTPRetry)
			if retryErr == nil {
				return parsed, nil
			}
			lastErr = retryErr
		}
	}

	return nil, &FetchError{URL: url, LastErr: lastErr, Attempts: attempts}
}

// IsBlockedByClient reports whether err looks like the browser's
// request was intercepted on the client side.
func IsBlockedByClient(err error) bool {
	return err != nil && strings.Contains(err.Error(), "ERR_BLOCKED_BY_CLIENT")
}

// directStrategy parses the feed straight from the URL via gofeed,
// retrying transient network failures with a fixed delay. Permanent
// failures (HTTP errors, malformed documents) skip the retry and fall
// through to the next tier immediately.
type directStrategy struct {
	userAgent  string
	client     *http.Client
	retryDelay time.Duration
}

func (s *directStrategy) Name() string { return TierDirect }

func (s *directStrategy) Fetch(ctx context.Context, url string) (*Parsed, error) {
	parser := gofeed.NewParser()
	parser.UserAgent = s.userAgent
	parser.Client = s.client

	var lastErr error
	for attempt := 1; attempt <= directAttempts; attempt++ {
		parsed, err := parser.ParseURLWithContext(url, ctx)
		if err == nil {
			return NewParser().normalize(parsed), nil
		}
		lastErr = err

		if !isTransient(err) || attempt == directAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}

	return nil, lastErr
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "ECONNRESET") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "deadline exceeded")
}

// rawHTTPStrategy issues a plain GET with a browser-like user agent
// and hands the body to the feed parser. Catches sources that reject
// feed readers but serve regular HTTP clients. The client is shared
// across calls.
type rawHTTPStrategy struct {
	parser    *Parser
	userAgent string
	client    *http.Client
}

func (s *rawHTTPStrategy) Name() string { return TierHTTP }

func (s *rawHTTPStrategy) Fetch(ctx context.Context, url string) (*Parsed, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, rawTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", feedAcceptHeader)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return s.parser.Parse(string(body))
}

// browserStrategy renders the URL in a headless browser, for sources
// that block anything without a real browsing fingerprint.
type browserStrategy struct {
	parser   *Parser
	renderer PageRenderer
}

func (s *browserStrategy) Name() string { return TierBrowser }

func (s *browserStrategy) Fetch(ctx context.Context, url string) (*Parsed, error) {
	content, err := s.renderer.Render(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("browser render failed: %w", err)
	}

	return s.parser.Parse(content)
}
