// Package news holds the domain types shared across the aggregation
// pipeline: sources, items, topics and daily reports.
package news

import "time"

type Category string

const (
	CategoryAI         Category = "AI"
	CategoryTechnology Category = "Technology"
	CategoryUSStocks   Category = "US Stocks"
	CategoryUSEconomy  Category = "US Economy"
	CategoryOther      Category = "Other"
)

// Source describes a configured news source. Sources are externally
// managed; the pipeline only reads them.
type Source struct {
	URL      string   `json:"url" yaml:"url"`
	Category Category `json:"category" yaml:"category"`
	Name     string   `json:"source" yaml:"source"`
}

// Item is a single news item. Freshly harvested items carry only the
// raw fields; enrichment fills in the translated title/summary, the
// market reaction and the synthesized comments, stamping the original
// title/summary first. OriginalTitle/OriginalSummary are provenance
// fields and must never be overwritten after enrichment.
type Item struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Category        Category  `json:"category"`
	Summary         string    `json:"summary"`
	MarketReaction  string    `json:"marketReaction,omitempty"`
	PublishDate     time.Time `json:"publishDate"`
	Comments        []string  `json:"comments"`
	URL             string    `json:"url"`
	HeatIndex       int       `json:"heatIndex"`
	Source          string    `json:"source"`
	OriginalTitle   string    `json:"originalTitle,omitempty"`
	OriginalSummary string    `json:"originalSummary,omitempty"`
	MatchedTopics   []string  `json:"matchedTopics,omitempty"`
}

// Enriched reports whether the item already went through enrichment.
func (i Item) Enriched() bool {
	return i.OriginalTitle != ""
}

// Topic is a keyword-tagged interest profile used to boost the heat
// index of matching items.
type Topic struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
	Priority int      `json:"priority"`
	Enabled  bool     `json:"enabled"`
	Color    string   `json:"color"`
}

type ShortItem struct {
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Report is the per-date aggregation artifact. One report exists per
// calendar date and is overwritten as a whole on every run.
type Report struct {
	ID        string      `json:"id"`
	Date      string      `json:"date"`
	Title     string      `json:"title"`
	Items     []Item      `json:"items"`
	Shorts    []ShortItem `json:"shorts"`
	CreatedAt time.Time   `json:"createdAt"`
}
