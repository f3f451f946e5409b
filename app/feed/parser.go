package feed

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Parse parses a syndication document (RSS/Atom/JSON feed) from a raw
// string, as captured by the fallback retrieval strategies.
func (p *Parser) Parse(data string) (*Parsed, error) {
	// Strip a UTF-8 BOM; browser-captured bodies often carry one.
	data = strings.TrimPrefix(strings.TrimSpace(data), "\ufeff")

	parsed, err := p.gofeedParser.ParseString(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	return p.normalize(parsed), nil
}

func (p *Parser) normalize(parsed *gofeed.Feed) *Parsed {
	result := &Parsed{Title: parsed.Title}

	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		entry := Entry{
			GUID:        cmp.Or(item.GUID, item.Link),
			Title:       item.Title,
			Link:        item.Link,
			Summary:     cmp.Or(item.Description, item.Content, item.Title),
			PublishedAt: item.PublishedParsed,
		}
		result.Entries = append(result.Entries, entry)
	}

	return result
}
