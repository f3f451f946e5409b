package dedup

import (
	"log/slog"

	"github.com/liuhaoran/daybrief/app/news"
)

// FilterNew returns the candidates that are not already present in
// existing, preserving candidate order. A candidate is a duplicate on
// exact URL equality or on fuzzy title similarity against the existing
// item's original (pre-translation) title.
func FilterNew(candidates []news.Item, existing []news.Item) []news.Item {
	if len(existing) == 0 {
		return candidates
	}

	fresh := make([]news.Item, 0, len(candidates))
	for _, candidate := range candidates {
		if isDuplicate(candidate, existing) {
			continue
		}
		fresh = append(fresh, candidate)
	}

	return fresh
}

func isDuplicate(candidate news.Item, existing []news.Item) bool {
	for _, old := range existing {
		if old.URL == candidate.URL {
			return true
		}

		// The candidate title is raw; compare against the existing
		// item's pre-translation title when one was recorded.
		oldTitle := old.OriginalTitle
		if oldTitle == "" {
			oldTitle = old.Title
		}

		if IsSimilar(oldTitle, candidate.Title) {
			slog.Debug("Duplicate skipped", "title", candidate.Title, "matches", oldTitle)
			return true
		}
	}
	return false
}
