// Package topic scores enriched items against keyword-tagged topic
// definitions and boosts their heat index accordingly. Pure logic, no
// I/O.
package topic

import (
	"math"
	"regexp"
	"strings"

	"github.com/liuhaoran/daybrief/app/news"
)

// matchThreshold is the minimum cumulative keyword score at which a
// topic counts as matched for an item.
const matchThreshold = 2

// Score attaches matched topic ids to each item and recomputes its
// heat index from the topic priorities. Items matching nothing keep
// their heat index unchanged.
func Score(items []news.Item, topics []news.Topic) []news.Item {
	scored := make([]news.Item, len(items))
	for i, item := range items {
		matched, boost := Match(item, topics)
		item.MatchedTopics = matched
		item.HeatIndex = int(math.Round(float64(item.HeatIndex) * boost))
		scored[i] = item
	}
	return scored
}

// Match returns the ids of the topics the item matches, in topic
// order, together with the resulting boost factor
// (1 + sum of priority/100 over matched topics).
func Match(item news.Item, topics []news.Topic) ([]string, float64) {
	// Enriched items carry a translated title/summary; keywords must
	// still hit the original wording, so both versions are scanned.
	searchText := item.Title + " " + item.Summary
	if item.OriginalTitle != "" {
		searchText += " " + item.OriginalTitle + " " + item.OriginalSummary
	}

	matched := []string{}
	boost := 1.0

	for _, t := range topics {
		if !t.Enabled {
			continue
		}
		if keywordScore(searchText, t.Keywords) >= matchThreshold {
			matched = append(matched, t.ID)
			boost += float64(t.Priority) / 100
		}
	}

	return matched, boost
}

// keywordScore sums per-keyword contributions over the scan text: a
// case-insensitive substring hit scores 1, a whole-word hit scores 2
// (superseding, not additive).
func keywordScore(text string, keywords []string) int {
	lowerText := strings.ToLower(text)

	score := 0
	for _, keyword := range keywords {
		lowerKeyword := strings.ToLower(keyword)
		if lowerKeyword == "" || !strings.Contains(lowerText, lowerKeyword) {
			continue
		}

		wordRe := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
		if wordRe.MatchString(text) {
			score += 2
		} else {
			score++
		}
	}

	return score
}
