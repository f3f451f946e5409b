package feed

import "time"

// Entry is a single dated entry of a parsed feed, reduced to the
// fields the harvester consumes.
type Entry struct {
	GUID        string
	Title       string
	Link        string
	Summary     string
	PublishedAt *time.Time
}

// Parsed is the result of running any retrieval strategy: the feed
// title plus its entries in feed order.
type Parsed struct {
	Title   string
	Entries []Entry
}
