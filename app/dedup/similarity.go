// Package dedup filters harvested items against an already persisted
// report, so repeated runs within one day never re-process a story.
package dedup

import (
	"golang.org/x/text/cases"
)

// SimilarityThreshold is the minimum normalized title similarity at
// which two headlines count as the same story.
const SimilarityThreshold = 0.8

// Levenshtein computes the classic edit distance (unit-cost insert,
// delete, substitute) over runes with a two-row DP table. Headlines
// are short, so no early-exit tricks are needed.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for j := 0; j <= len(ra); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(rb); i++ {
		curr[0] = i
		for j := 1; j <= len(ra); j++ {
			cost := 1
			if rb[i-1] == ra[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j-1]+cost, min(curr[j-1]+1, prev[j]+1))
		}
		prev, curr = curr, prev
	}

	return prev[len(ra)]
}

// Similarity returns 1 - distance/maxLen over case-folded strings.
// Two empty strings are fully similar.
func Similarity(a, b string) float64 {
	// A fresh caser per call: cases.Caser is not safe for
	// concurrent use.
	folder := cases.Fold()
	fa := folder.String(a)
	fb := folder.String(b)

	maxLen := max(len([]rune(fa)), len([]rune(fb)))
	if maxLen == 0 {
		return 1
	}

	return 1 - float64(Levenshtein(fa, fb))/float64(maxLen)
}

// IsSimilar reports whether two titles are close enough to be the
// same story.
func IsSimilar(a, b string) bool {
	return Similarity(a, b) >= SimilarityThreshold
}
