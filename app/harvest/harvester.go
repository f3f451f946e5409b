// Package harvest iterates the configured sources and turns fresh
// feed entries into raw news items.
package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/liuhaoran/daybrief/app/feed"
	"github.com/liuhaoran/daybrief/app/news"
)

const (
	// Publish window looked at per run. Entries older than this
	// relative to asOf (or newer than asOf) are ignored.
	window = 24 * time.Hour

	heatIndexBase  = 1000
	heatIndexRange = 10000
)

type Retriever interface {
	Retrieve(ctx context.Context, url string) (*feed.Parsed, error)
}

// Harvester runs one pass over all sources. Sources are processed
// sequentially in a randomized order; a failing source is skipped and
// never aborts the pass.
type Harvester struct {
	retriever Retriever
	perSource int
	rng       *rand.Rand
}

// New builds a harvester. rng drives the source shuffle and the
// placeholder heat index; inject a seeded source in tests for
// deterministic ordering.
func New(retriever Retriever, perSource int, rng *rand.Rand) *Harvester {
	if perSource <= 0 {
		perSource = 3
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Harvester{
		retriever: retriever,
		perSource: perSource,
		rng:       rng,
	}
}

// Run harvests all sources as of the given time. Partial failures are
// logged and absorbed; the result is whatever could be collected.
func (h *Harvester) Run(ctx context.Context, sources []news.Source, asOf time.Time) []news.Item {
	if len(sources) == 0 {
		slog.Warn("No sources configured, harvest yields nothing")
		return nil
	}

	shuffled := make([]news.Source, len(sources))
	copy(shuffled, sources)
	h.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	windowStart := asOf.Add(-window)

	var items []news.Item
	seenURLs := make(map[string]struct{})
	seenTitles := make(map[string]struct{})

	for _, source := range shuffled {
		parsed, err := h.retriever.Retrieve(ctx, source.URL)
		if err != nil {
			slog.Warn("Source skipped", "source", source.Name, "url", source.URL, "error", err)
			continue
		}

		accepted := 0
		for _, entry := range parsed.Entries {
			if accepted >= h.perSource {
				break
			}

			// Entries without a parseable publish date cannot be
			// placed in the window and are skipped.
			if entry.PublishedAt == nil {
				continue
			}
			published := *entry.PublishedAt
			if !published.After(windowStart) || published.After(asOf) {
				continue
			}

			item := h.buildItem(source, entry, published)

			if _, dup := seenURLs[item.URL]; dup {
				continue
			}
			if _, dup := seenTitles[item.Title]; dup {
				continue
			}
			seenURLs[item.URL] = struct{}{}
			seenTitles[item.Title] = struct{}{}

			items = append(items, item)
			accepted++
		}

		slog.Debug("Source harvested", "source", source.Name, "accepted", accepted, "total", len(parsed.Entries))
	}

	slog.Info("Harvest completed", "sources", len(sources), "items", len(items))
	return items
}

func (h *Harvester) buildItem(source news.Source, entry feed.Entry, published time.Time) news.Item {
	id := entry.GUID
	if id == "" {
		id = entry.Link
	}
	if id == "" {
		id = fmt.Sprintf("%s-%d", source.Name, published.UnixNano())
	}

	title := entry.Title
	if title == "" {
		title = "No title"
	}
	summary := entry.Summary
	if summary == "" {
		summary = "No summary available"
	}

	return news.Item{
		ID:          id,
		Title:       title,
		Category:    source.Category,
		Summary:     summary,
		PublishDate: published,
		Comments:    []string{},
		URL:         entry.Link,
		// Placeholder popularity signal until topic scoring runs; a
		// real engagement metric would plug in here.
		HeatIndex: h.rng.Intn(heatIndexRange) + heatIndexBase,
		Source:    source.Name,
	}
}
