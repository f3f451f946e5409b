package enrich

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/liuhaoran/daybrief/app/browser"
)

// ContentFetcher supplies full article text when a feed entry only
// carries a stub summary. Optional; enrichment works without it.
type ContentFetcher interface {
	FetchArticle(ctx context.Context, url string) (string, error)
}

// ArticleFetcher pulls an article page over plain HTTP and reduces it
// to readable prose.
type ArticleFetcher struct {
	userAgent  string
	httpClient *http.Client
}

var _ ContentFetcher = (*ArticleFetcher)(nil)

func NewArticleFetcher(userAgent string) *ArticleFetcher {
	return &ArticleFetcher{
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (f *ArticleFetcher) FetchArticle(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read article body: %w", err)
	}

	return browser.ExtractReadable(string(body), url)
}
