package enrich

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// stripHTML flattens an HTML fragment to plain text with collapsed
// whitespace. Falls back to the input when parsing fails.
func stripHTML(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// cleanAndTruncate strips markup and bounds the text length so the
// prompt stays within the provider's context budget.
func cleanAndTruncate(s string, maxChars int) string {
	plain := stripHTML(s)
	runes := []rune(plain)
	if len(runes) <= maxChars {
		return plain
	}
	return string(runes[:maxChars]) + "..."
}
