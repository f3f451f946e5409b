// Package enrich rewrites raw news items into structured Chinese
// reports through an LLM, in bounded-concurrency batches.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/liuhaoran/daybrief/app/news"
	"github.com/liuhaoran/daybrief/app/progress"
)

const (
	defaultBatchSize = 3
	batchPause       = 500 * time.Millisecond
	// One initial call plus two retries per item.
	maxAttempts    = 3
	maxPromptChars = 4000
	// Summaries shorter than this trigger a full-article fetch when a
	// content fetcher is configured.
	stubSummaryRunes = 200
)

const systemPrompt = `You are an expert tech news analyst and translator. Your task is to process a raw news item and convert it into a structured Chinese report.

Based on the provided Title and Content/Summary, generate a JSON response with the following fields:
1. "title": Translate the title to Chinese (attractive, click-baity but accurate).
2. "summary": A detailed summary in **Simplified Chinese**, between 150-300 words. Cover the key facts, context, and significance. Remove redundancy. **IMPORTANT**: Use **double asterisks** to highlight key terms, numbers, company names, and important concepts (e.g., **Microsoft**, **GPT-4**, **增长50%**).
3. "marketReaction": Analyze the potential impact on the market, stock prices, or industry trends. If not explicitly mentioned, infer reasonable reactions based on the news type. Write in **Simplified Chinese**. **IMPORTANT**: Use **double asterisks** to highlight key metrics, stock symbols, and important market terms.
4. "comments": Generate 5 distinct, realistic "user comments" that represent different viewpoints (e.g., excited, skeptical, analytical, humorous) regarding this news. Write in **Simplified Chinese**.

Ensure the tone is professional yet engaging for a tech-savvy audience. The output MUST be in Chinese.`

type completion struct {
	Title          string   `json:"title"`
	Summary        string   `json:"summary"`
	MarketReaction string   `json:"marketReaction"`
	Comments       []string `json:"comments"`
}

// Enricher runs items through the LLM in batches: full fan-out inside
// a batch, a fixed pause between batches to stay under provider rate
// limits, and a progress event after each batch.
type Enricher struct {
	completer Completer
	fetcher   ContentFetcher
	batchSize int
	pause     time.Duration
	backoff   func(attempt int) time.Duration
	sink      progress.Sink
}

// New builds an enricher. completer may be nil (no credential
// configured), in which case items pass through unchanged. fetcher is
// optional full-article extraction for stub summaries.
func New(completer Completer, fetcher ContentFetcher, batchSize int, sink progress.Sink) *Enricher {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if sink == nil {
		sink = progress.Nop
	}
	return &Enricher{
		completer: completer,
		fetcher:   fetcher,
		batchSize: batchSize,
		pause:     batchPause,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * time.Second
		},
		sink: sink,
	}
}

// Run enriches all items, preserving input order across batches. It
// never drops an item: every failure degrades to the raw item.
func (e *Enricher) Run(ctx context.Context, items []news.Item) []news.Item {
	if len(items) == 0 {
		return items
	}
	if e.completer == nil {
		slog.Warn("No enrichment credential configured, keeping raw items", "count", len(items))
		return items
	}

	total := len(items)
	results := make([]news.Item, total)

	for start := 0; start < total; start += e.batchSize {
		end := min(start+e.batchSize, total)

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = e.enrichItem(ctx, items[i])
			}(i)
		}
		wg.Wait()

		e.sink.Publish(progress.Event{
			Status:  progress.StatusTranslating,
			Current: end,
			Total:   total,
			Message: fmt.Sprintf("正在处理第 %d/%d 条新闻...", end, total),
		})

		if end < total {
			select {
			case <-ctx.Done():
				// Carry the remaining items through untouched.
				copy(results[end:], items[end:])
				return results
			case <-time.After(e.pause):
			}
		}
	}

	return results
}

// enrichItem processes a single item. It retries transient failures
// with increasing backoff and returns the item unchanged when all
// attempts fail; it never errors.
func (e *Enricher) enrichItem(ctx context.Context, item news.Item) news.Item {
	content := e.articleContent(ctx, item)
	user := fmt.Sprintf("Title: %s\nContent: %s", item.Title, content)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		raw, err := e.completer.Complete(ctx, systemPrompt, user)
		if err == nil {
			var parsed completion
			if jsonErr := json.Unmarshal([]byte(raw), &parsed); jsonErr == nil {
				return applyCompletion(item, parsed)
			} else {
				err = fmt.Errorf("malformed completion: %w", jsonErr)
			}
		}

		slog.Warn("Enrichment attempt failed", "title", item.Title, "attempt", attempt, "error", err)
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return item
		case <-time.After(e.backoff(attempt)):
		}
	}

	slog.Warn("Enrichment exhausted, keeping raw item", "title", item.Title)
	return item
}

func (e *Enricher) articleContent(ctx context.Context, item news.Item) string {
	content := cleanAndTruncate(item.Summary, maxPromptChars)

	if e.fetcher != nil && utf8.RuneCountInString(content) < stubSummaryRunes && item.URL != "" {
		full, err := e.fetcher.FetchArticle(ctx, item.URL)
		if err != nil {
			slog.Debug("Full-article fetch failed, using feed summary", "url", item.URL, "error", err)
		} else if utf8.RuneCountInString(full) > utf8.RuneCountInString(content) {
			content = cleanAndTruncate(full, maxPromptChars)
		}
	}

	return content
}

func applyCompletion(item news.Item, parsed completion) news.Item {
	// Provenance snapshot before the translation overwrites the raw
	// fields; the deduplicator relies on these on later runs.
	item.OriginalTitle = item.Title
	item.OriginalSummary = item.Summary

	if parsed.Title != "" {
		item.Title = parsed.Title
	}
	if parsed.Summary != "" {
		item.Summary = parsed.Summary
	}
	item.MarketReaction = parsed.MarketReaction
	if item.MarketReaction == "" {
		item.MarketReaction = "暂无市场反应"
	}
	item.Comments = parsed.Comments
	if item.Comments == nil {
		item.Comments = []string{}
	}

	return item
}
