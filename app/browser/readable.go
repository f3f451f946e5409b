package browser

import (
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// ExtractReadable reduces an HTML document to its main article text.
// Used to turn scraped article pages into plain prose before they are
// handed to the enrichment prompt.
func ExtractReadable(html string, pageURL string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", fmt.Errorf("HTML data is empty")
	}

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		parsedURL = nil
	}

	article, err := readability.FromReader(strings.NewReader(html), parsedURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	if strings.TrimSpace(article.TextContent) == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	return article.TextContent, nil
}
